// Package session keeps one in-memory board per browser session.
//
// A session's board is only ever replaced, never edited: every mutation runs
// board.Reduce and installs the returned snapshot under the store lock, so
// readers see either the old board or the new one.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gmllt/listboard/internal/board"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrUnknownPrompt = errors.New("unknown prompt token")
	ErrBadPromptKind = errors.New("unknown prompt kind")
)

type session struct {
	board    *board.Board
	prompts  map[string]Prompt
	subs     map[int]chan *board.Board
	nextSub  int
	lastSeen time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	newID    func() string
	now      func() time.Time
}

// New returns an empty store. Sessions idle for longer than ttl are removed
// by Sweep; a zero ttl keeps sessions forever.
func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		newID:    board.NewID,
		now:      time.Now,
	}
}

// Create starts a session with an empty board.
func (s *Store) Create() (string, *board.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	b := board.New()
	s.sessions[id] = &session{
		board:    b,
		prompts:  make(map[string]Prompt),
		subs:     make(map[int]chan *board.Board),
		lastSeen: s.now(),
	}
	return id, b
}

func (s *Store) Board(id string) (*board.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return sess.board, nil
}

// Apply reduces the session's board with a and returns the new board.
// Creation actions without ids get fresh ones.
func (s *Store) Apply(id string, a board.Action) (*board.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.apply(sess, a), nil
}

func (s *Store) apply(sess *session, a board.Action) *board.Board {
	next := board.Reduce(sess.board, board.StampIDs(a, s.newID))
	if next == sess.board {
		return next
	}
	sess.board = next
	for _, ch := range sess.subs {
		publish(ch, next)
	}
	return next
}

// Delete ends a session and closes its subscriptions.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	s.drop(id, sess)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the store ttl and returns how
// many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.sessions {
		if len(sess.subs) == 0 && sess.lastSeen.Before(cutoff) {
			s.drop(id, sess)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("Expired %d idle sessions", n)
			}
		}
	}
}

func (s *Store) get(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

func (s *Store) drop(id string, sess *session) {
	for k, ch := range sess.subs {
		close(ch)
		delete(sess.subs, k)
	}
	delete(s.sessions, id)
}
