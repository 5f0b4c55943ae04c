package ws

import (
	"fmt"

	"kruzhok/internal/models"
)

// Target is the addressing of a message: exactly one of a direct receiver
// or a group. The zero value is invalid; use the constructors.
type Target struct {
	user  string
	group string
}

func DirectTarget(userID string) Target { return Target{user: userID} }
func GroupTarget(groupID string) Target { return Target{group: groupID} }

// TargetFrom builds a Target from the two optional wire fields, rejecting
// the none and both cases.
func TargetFrom(receiverID, groupID string) (Target, error) {
	switch {
	case receiverID != "" && groupID != "":
		return Target{}, fmt.Errorf("%w: message cannot address both a receiver and a group", models.ErrValidation)
	case receiverID == "" && groupID == "":
		return Target{}, fmt.Errorf("%w: receiver or group is required", models.ErrValidation)
	case receiverID != "":
		return DirectTarget(receiverID), nil
	default:
		return GroupTarget(groupID), nil
	}
}

func (t Target) IsDirect() bool { return t.user != "" }
func (t Target) IsGroup() bool  { return t.group != "" }
func (t Target) User() string   { return t.user }
func (t Target) Group() string  { return t.group }
