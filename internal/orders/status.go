// Package orders places orders from a cart partition and moves them through
// their fulfilment lifecycle.
package orders

import (
	"slices"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// Status is a value of the order_status enum.
type Status string

const (
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusPacked         Status = "packed"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// forward is the fulfilment path in order.
var forward = []Status{StatusPending, StatusAccepted, StatusPacked, StatusOutForDelivery, StatusDelivered}

// Statuses lists every status.
var Statuses = append(slices.Clone(forward), StatusCancelled)

func (s Status) Valid() bool { return slices.Contains(Statuses, s) }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

// Next returns the immediate successor of s on the fulfilment path.
func Next(s Status) (Status, bool) {
	i := slices.Index(forward, s)
	if i < 0 || i == len(forward)-1 {
		return "", false
	}
	return forward[i+1], true
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return from == StatusPending
	}
	next, ok := Next(from)
	return ok && next == to
}

// Action is a lifecycle request.
type Action int

const (
	ActionAdvance Action = iota
	ActionCancel
)

// target returns the status action moves an order in status current to.
func target(current Status, action Action) (Status, error) {
	switch action {
	case ActionAdvance:
		next, ok := Next(current)
		if !ok {
			return "", apperr.Conflict(apperr.CodeIllegalTransition, "order is already "+string(current))
		}
		return next, nil
	case ActionCancel:
		if !CanTransition(current, StatusCancelled) {
			return "", apperr.Conflict(apperr.CodeIllegalTransition, "only pending orders can be cancelled")
		}
		return StatusCancelled, nil
	}
	return "", apperr.Validation("unknown action")
}
