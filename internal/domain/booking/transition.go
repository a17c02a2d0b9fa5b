package booking

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/localserve/service-booking/internal/common/domain"
)

// Action is a lifecycle action requested against a booking.
type Action string

const (
	ActionAdminAssign Action = "admin_assign"
	ActionAutoAssign  Action = "auto_assign"
	ActionAccept      Action = "accept"
	ActionCancel      Action = "cancel"
	ActionComplete    Action = "complete"
	ActionOverride    Action = "override"
)

// ActorRole identifies who is performing an action.
type ActorRole string

const (
	ActorCustomer ActorRole = "customer"
	ActorProvider ActorRole = "provider"
	ActorAdmin    ActorRole = "admin"
	ActorSystem   ActorRole = "system"
)

// Actor is the identity performing an action.
type Actor struct {
	ID   uuid.UUID
	Role ActorRole
}

// Command is one requested action with its arguments.
type Command struct {
	Action Action
	Actor  Actor
	Notes  string
	// ProviderID is the provider to assign for admin_assign and auto_assign,
	// and the optional provider for override.
	ProviderID uuid.UUID
	// TargetStatus is the destination of an override.
	TargetStatus BookingStatus
}

// Effect names what a transition did, for side effects and audit.
type Effect string

const (
	EffectAssigned          Effect = "assigned"
	EffectAccepted          Effect = "accepted"
	EffectProviderCancelled Effect = "provider_cancelled"
	EffectCompleted         Effect = "completed"
	EffectCancelled         Effect = "cancelled"
	EffectOverridden        Effect = "overridden"
)

// State is the part of a booking the state machine decides on.
type State struct {
	Status     BookingStatus
	ProviderID *uuid.UUID
	CustomerID uuid.UUID
}

// Change is the result of a legal transition.
type Change struct {
	From       BookingStatus
	To         BookingStatus
	ProviderID *uuid.UUID
	Effect     Effect
	// PreviousProviderID is the provider that held the booking before the change, if any.
	PreviousProviderID *uuid.UUID
}

// ProviderChanged reports whether the change moves the booking to a different provider.
func (c Change) ProviderChanged() bool {
	switch {
	case c.ProviderID == nil && c.PreviousProviderID == nil:
		return false
	case c.ProviderID == nil || c.PreviousProviderID == nil:
		return true
	default:
		return *c.ProviderID != *c.PreviousProviderID
	}
}

// Transition validates cmd against the current state and returns the resulting
// change. It performs no I/O; provider existence and verification for
// admin_assign are checked by the caller.
func Transition(s State, cmd Command) (Change, error) {
	change := Change{From: s.Status, PreviousProviderID: s.ProviderID}

	if cmd.Action != ActionOverride && s.Status.IsTerminal() {
		return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
	}

	switch cmd.Action {
	case ActionAdminAssign, ActionAutoAssign:
		if cmd.Action == ActionAdminAssign && cmd.Actor.Role != ActorAdmin {
			return Change{}, domain.NewUnauthorizedError("only admins can assign providers")
		}
		if cmd.Action == ActionAutoAssign && cmd.Actor.Role != ActorSystem {
			return Change{}, domain.NewUnauthorizedError("only the assignment engine can auto-assign")
		}
		if cmd.ProviderID == uuid.Nil {
			return Change{}, domain.NewValidationError("provider ID is required")
		}
		if !s.Status.IsOpen() {
			return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
		}
		pid := cmd.ProviderID
		change.To = StatusAssigned
		change.ProviderID = &pid
		change.Effect = EffectAssigned

	case ActionAccept:
		if s.Status != StatusAssigned {
			return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
		}
		if err := requireCurrentProvider(s, cmd.Actor); err != nil {
			return Change{}, err
		}
		change.To = StatusAccepted
		change.ProviderID = s.ProviderID
		change.Effect = EffectAccepted

	case ActionComplete:
		if s.Status != StatusAccepted {
			return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
		}
		if err := requireCurrentProvider(s, cmd.Actor); err != nil {
			return Change{}, err
		}
		change.To = StatusCompleted
		change.ProviderID = s.ProviderID
		change.Effect = EffectCompleted

	case ActionCancel:
		return cancel(s, cmd, change)

	case ActionOverride:
		return override(s, cmd, change)

	default:
		return Change{}, domain.NewValidationError(fmt.Sprintf("unknown action: %s", cmd.Action))
	}

	return change, nil
}

func cancel(s State, cmd Command, change Change) (Change, error) {
	switch cmd.Actor.Role {
	case ActorProvider:
		if s.Status != StatusAssigned && s.Status != StatusAccepted {
			return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
		}
		if err := requireCurrentProvider(s, cmd.Actor); err != nil {
			return Change{}, err
		}
		change.To = StatusUnassigned
		change.Effect = EffectProviderCancelled
	case ActorCustomer:
		if cmd.Actor.ID != s.CustomerID {
			return Change{}, domain.NewUnauthorizedError("booking does not belong to this customer")
		}
		change.To = StatusCancelled
		change.Effect = EffectCancelled
	case ActorAdmin:
		change.To = StatusCancelled
		change.Effect = EffectCancelled
	default:
		return Change{}, domain.NewUnauthorizedError(fmt.Sprintf("role %q cannot cancel bookings", cmd.Actor.Role))
	}
	return change, nil
}

func override(s State, cmd Command, change Change) (Change, error) {
	if cmd.Actor.Role != ActorAdmin {
		return Change{}, domain.NewUnauthorizedError("only admins can override booking status")
	}
	if s.Status.IsTerminal() {
		return Change{}, domain.NewInvalidTransitionError(string(s.Status), string(cmd.Action))
	}
	if !cmd.TargetStatus.IsValid() {
		return Change{}, domain.NewValidationError(fmt.Sprintf("invalid target status: %s", cmd.TargetStatus))
	}
	if cmd.TargetStatus == s.Status && (cmd.ProviderID == uuid.Nil || !cmd.TargetStatus.RequiresProvider()) {
		return Change{}, domain.NewValidationError("override does not change the booking")
	}

	change.To = cmd.TargetStatus
	change.Effect = EffectOverridden
	if !cmd.TargetStatus.RequiresProvider() {
		return change, nil
	}

	switch {
	case cmd.ProviderID != uuid.Nil:
		pid := cmd.ProviderID
		change.ProviderID = &pid
	case s.ProviderID != nil:
		change.ProviderID = s.ProviderID
	default:
		return Change{}, domain.NewValidationError(fmt.Sprintf("status %s requires a provider", cmd.TargetStatus))
	}
	return change, nil
}

func requireCurrentProvider(s State, actor Actor) error {
	if actor.Role != ActorProvider || s.ProviderID == nil || *s.ProviderID != actor.ID {
		return domain.NewUnauthorizedError("actor is not the assigned provider")
	}
	return nil
}
