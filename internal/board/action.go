package board

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action is a requested board mutation. The concrete types below are the only
// implementations.
type Action interface {
	actionType() string
}

type AddList struct {
	ListID string `json:"list_id,omitempty"`
	Title  string `json:"title"`
}

type AddCard struct {
	ListID string `json:"list_id"`
	CardID string `json:"card_id,omitempty"`
	Title  string `json:"title"`
}

type DeleteCard struct {
	ListID string `json:"list_id"`
	CardID string `json:"card_id"`
}

// EditCard commits a new title and leaves edit mode.
type EditCard struct {
	ListID string `json:"list_id"`
	CardID string `json:"card_id"`
	Title  string `json:"title"`
}

type EnterEditMode struct {
	ListID string `json:"list_id"`
	CardID string `json:"card_id"`
}

// ExitEditMode leaves edit mode without changing any card.
type ExitEditMode struct{}

// Location is a position inside a list.
type Location struct {
	ListID string `json:"list_id"`
	Index  int    `json:"index"`
}

// Reorder is a completed drag gesture. Destination is nil when the card was
// dropped outside every list.
type Reorder struct {
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

func (AddList) actionType() string       { return "add_list" }
func (AddCard) actionType() string       { return "add_card" }
func (DeleteCard) actionType() string    { return "delete_card" }
func (EditCard) actionType() string      { return "edit_card" }
func (EnterEditMode) actionType() string { return "enter_edit" }
func (ExitEditMode) actionType() string  { return "exit_edit" }
func (Reorder) actionType() string       { return "reorder" }

// TypeOf returns the wire name of a.
func TypeOf(a Action) string {
	return a.actionType()
}

var ErrUnknownAction = errors.New("unknown action type")

// DecodeAction decodes an action envelope of the form {"type": "...", ...}.
func DecodeAction(data []byte) (Action, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	var a Action
	var err error
	switch env.Type {
	case "add_list":
		var v AddList
		err = json.Unmarshal(data, &v)
		a = v
	case "add_card":
		var v AddCard
		err = json.Unmarshal(data, &v)
		a = v
	case "delete_card":
		var v DeleteCard
		err = json.Unmarshal(data, &v)
		a = v
	case "edit_card":
		var v EditCard
		err = json.Unmarshal(data, &v)
		a = v
	case "enter_edit":
		var v EnterEditMode
		err = json.Unmarshal(data, &v)
		a = v
	case "exit_edit":
		a = ExitEditMode{}
	case "reorder":
		var v Reorder
		err = json.Unmarshal(data, &v)
		a = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s action: %w", env.Type, err)
	}
	return a, nil
}

// StampIDs fills in the ids of a creation action that arrived without them.
func StampIDs(a Action, newID func() string) Action {
	switch v := a.(type) {
	case AddList:
		if v.ListID == "" {
			v.ListID = newID()
		}
		return v
	case AddCard:
		if v.CardID == "" {
			v.CardID = newID()
		}
		return v
	}
	return a
}
