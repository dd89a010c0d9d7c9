package session

import "github.com/gmllt/listboard/internal/board"

// Subscribe returns a channel that receives the current board and then every
// new board of the session. Slow readers only see the latest board. The
// channel is closed when cancel is called or the session ends.
func (s *Store) Subscribe(id string) (<-chan *board.Board, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan *board.Board, 1)
	ch <- sess.board
	key := sess.nextSub
	sess.nextSub++
	sess.subs[key] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := sess.subs[key]; ok {
			close(c)
			delete(sess.subs, key)
		}
	}
	return ch, cancel, nil
}

// publish replaces any unread board in ch with b. Callers hold the store lock.
func publish(ch chan *board.Board, b *board.Board) {
	select {
	case <-ch:
	default:
	}
	ch <- b
}
