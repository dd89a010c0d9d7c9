package session

import (
	"fmt"

	"github.com/gmllt/listboard/internal/board"
	"github.com/google/uuid"
)

type Kind string

const (
	ListTitle Kind = "list_title"
	CardTitle Kind = "card_title"
)

// Prompt is a pending request for text input. The client shows Message and
// answers with ResolveInput using Token.
type Prompt struct {
	Token   string `json:"token"`
	Kind    Kind   `json:"kind"`
	ListID  string `json:"list_id,omitempty"`
	Message string `json:"message"`
}

type Response struct {
	Text      string `json:"text"`
	Cancelled bool   `json:"cancelled"`
}

func (k Kind) message() (string, bool) {
	switch k {
	case ListTitle:
		return "Enter list title:", true
	case CardTitle:
		return "Enter card title:", true
	}
	return "", false
}

// RequestInput registers a pending prompt. listID is only used by CardTitle.
func (s *Store) RequestInput(id string, kind Kind, listID string) (Prompt, error) {
	msg, ok := kind.message()
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %q", ErrBadPromptKind, kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return Prompt{}, err
	}
	p := Prompt{Token: uuid.NewString(), Kind: kind, Message: msg}
	if kind == CardTitle {
		p.ListID = listID
	}
	sess.prompts[p.Token] = p
	return p, nil
}

// ResolveInput answers a pending prompt and applies the action it stood for.
// A cancelled or empty answer leaves the board as it was. The token is spent
// either way.
func (s *Store) ResolveInput(id, token string, r Response) (*board.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	p, ok := sess.prompts[token]
	if !ok {
		return nil, ErrUnknownPrompt
	}
	delete(sess.prompts, token)

	title := r.Text
	if r.Cancelled {
		title = ""
	}
	var a board.Action
	switch p.Kind {
	case ListTitle:
		a = board.AddList{Title: title}
	case CardTitle:
		a = board.AddCard{ListID: p.ListID, Title: title}
	}
	return s.apply(sess, a), nil
}

// Pending returns the number of unanswered prompts in a session.
func (s *Store) Pending(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return 0, err
	}
	return len(sess.prompts), nil
}
