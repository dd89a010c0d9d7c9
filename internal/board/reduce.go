package board

// Reduce returns the board that results from applying a to b.
//
// b is left untouched and lists or cards that a does not change are shared
// with the result. Requests that reference unknown lists or cards, carry an
// empty title on creation, or describe a drop outside any list change nothing:
// Reduce then returns b itself.
func Reduce(b *Board, a Action) *Board {
	if b == nil {
		b = New()
	}
	switch a := a.(type) {
	case AddList:
		return addList(b, a)
	case AddCard:
		return addCard(b, a)
	case DeleteCard:
		return deleteCard(b, a)
	case EditCard:
		return editCard(b, a)
	case EnterEditMode:
		return enterEditMode(b, a)
	case ExitEditMode:
		if b.Editing == nil {
			return b
		}
		return &Board{Lists: b.Lists}
	case Reorder:
		return reorder(b, a)
	}
	return b
}

func addList(b *Board, a AddList) *Board {
	if a.Title == "" || a.ListID == "" || b.listIndex(a.ListID) >= 0 {
		return b
	}
	lists := make([]*List, len(b.Lists), len(b.Lists)+1)
	copy(lists, b.Lists)
	lists = append(lists, &List{ID: a.ListID, Title: a.Title, Cards: []*Card{}})
	return &Board{Lists: lists, Editing: b.Editing}
}

func addCard(b *Board, a AddCard) *Board {
	i := b.listIndex(a.ListID)
	if i < 0 || a.Title == "" || a.CardID == "" {
		return b
	}
	l := b.Lists[i]
	if l.cardIndex(a.CardID) >= 0 {
		return b
	}
	cards := insertCard(l.Cards, len(l.Cards), &Card{ID: a.CardID, Title: a.Title})
	return b.withLists(map[int]*List{i: l.withCards(cards)})
}

func deleteCard(b *Board, a DeleteCard) *Board {
	i := b.listIndex(a.ListID)
	if i < 0 {
		return b
	}
	l := b.Lists[i]
	j := l.cardIndex(a.CardID)
	if j < 0 {
		return b
	}
	nb := b.withLists(map[int]*List{i: l.withCards(removeCard(l.Cards, j))})
	if b.IsEditing(a.ListID, a.CardID) {
		nb.Editing = nil
	}
	return nb
}

func editCard(b *Board, a EditCard) *Board {
	i := b.listIndex(a.ListID)
	if i < 0 {
		return b
	}
	l := b.Lists[i]
	j := l.cardIndex(a.CardID)
	if j < 0 {
		return b
	}
	cards := make([]*Card, len(l.Cards))
	copy(cards, l.Cards)
	cards[j] = &Card{ID: l.Cards[j].ID, Title: a.Title}
	nb := b.withLists(map[int]*List{i: l.withCards(cards)})
	nb.Editing = nil
	return nb
}

func enterEditMode(b *Board, a EnterEditMode) *Board {
	l := b.List(a.ListID)
	if l == nil || l.Card(a.CardID) == nil || b.IsEditing(a.ListID, a.CardID) {
		return b
	}
	return &Board{Lists: b.Lists, Editing: &EditTarget{ListID: a.ListID, CardID: a.CardID}}
}

// reorder moves one card. Within a list the card is removed first and the
// destination index is read against the shortened list. Across lists the
// destination index is read against the destination list as it was.
func reorder(b *Board, a Reorder) *Board {
	if a.Destination == nil {
		return b
	}
	src := b.listIndex(a.Source.ListID)
	if src < 0 {
		return b
	}
	from := b.Lists[src]
	if a.Source.Index < 0 || a.Source.Index >= len(from.Cards) {
		return b
	}
	moved := from.Cards[a.Source.Index]

	if a.Destination.ListID == a.Source.ListID {
		at := clampIndex(a.Destination.Index, len(from.Cards)-1)
		if at == a.Source.Index {
			return b
		}
		cards := insertCard(removeCard(from.Cards, a.Source.Index), at, moved)
		return b.withLists(map[int]*List{src: from.withCards(cards)})
	}

	dst := b.listIndex(a.Destination.ListID)
	if dst < 0 {
		return b
	}
	to := b.Lists[dst]
	if to.cardIndex(moved.ID) >= 0 {
		return b
	}
	at := clampIndex(a.Destination.Index, len(to.Cards))
	nb := b.withLists(map[int]*List{
		src: from.withCards(removeCard(from.Cards, a.Source.Index)),
		dst: to.withCards(insertCard(to.Cards, at, moved)),
	})
	if b.IsEditing(from.ID, moved.ID) {
		nb.Editing = &EditTarget{ListID: to.ID, CardID: moved.ID}
	}
	return nb
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func removeCard(cards []*Card, j int) []*Card {
	out := make([]*Card, 0, len(cards)-1)
	out = append(out, cards[:j]...)
	return append(out, cards[j+1:]...)
}

func insertCard(cards []*Card, at int, c *Card) []*Card {
	out := make([]*Card, 0, len(cards)+1)
	out = append(out, cards[:at]...)
	out = append(out, c)
	return append(out, cards[at:]...)
}
