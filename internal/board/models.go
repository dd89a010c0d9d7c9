package board

import (
	"fmt"

	"github.com/google/uuid"
)

type Card struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type List struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Cards []*Card `json:"cards"`
}

// EditTarget names the single card currently in inline-edit mode.
type EditTarget struct {
	ListID string `json:"list_id"`
	CardID string `json:"card_id"`
}

// Board is an immutable snapshot. Reduce never modifies a Board, its lists or
// its cards; it builds a new Board that shares whatever did not change.
type Board struct {
	Lists   []*List     `json:"lists"`
	Editing *EditTarget `json:"editing,omitempty"`
}

func New() *Board {
	return &Board{Lists: []*List{}}
}

// NewID returns a time-ordered unique id.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Validate checks a decoded snapshot for null lists or cards.
func (b *Board) Validate() error {
	for i, l := range b.Lists {
		if l == nil {
			return fmt.Errorf("list %d is null", i)
		}
		for j, c := range l.Cards {
			if c == nil {
				return fmt.Errorf("list %s: card %d is null", l.ID, j)
			}
		}
	}
	return nil
}

// List returns the list with the given id, or nil.
func (b *Board) List(id string) *List {
	if i := b.listIndex(id); i >= 0 {
		return b.Lists[i]
	}
	return nil
}

// FindList looks a list up by id first, then by title.
func (b *Board) FindList(ref string) *List {
	if l := b.List(ref); l != nil {
		return l
	}
	for _, l := range b.Lists {
		if l.Title == ref {
			return l
		}
	}
	return nil
}

// IsEditing reports whether the card is the one in edit mode.
func (b *Board) IsEditing(listID, cardID string) bool {
	return b.Editing != nil && b.Editing.ListID == listID && b.Editing.CardID == cardID
}

func (b *Board) listIndex(id string) int {
	for i, l := range b.Lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Card returns the card with the given id, or nil.
func (l *List) Card(id string) *Card {
	if j := l.cardIndex(id); j >= 0 {
		return l.Cards[j]
	}
	return nil
}

func (l *List) cardIndex(id string) int {
	for j, c := range l.Cards {
		if c.ID == id {
			return j
		}
	}
	return -1
}

func (l *List) withCards(cards []*Card) *List {
	return &List{ID: l.ID, Title: l.Title, Cards: cards}
}

// withLists copies b, substituting the lists at the given indexes.
func (b *Board) withLists(repl map[int]*List) *Board {
	lists := make([]*List, len(b.Lists))
	copy(lists, b.Lists)
	for i, l := range repl {
		lists[i] = l
	}
	return &Board{Lists: lists, Editing: b.Editing}
}
