package service

import (
	"github.com/stockledger/stockledger/internal/model"
	"github.com/stockledger/stockledger/internal/stock"
)

// Action is an order lifecycle operation.
type Action string

const (
	ActionCreate   Action = "create"
	ActionApprove  Action = "approve"
	ActionComplete Action = "complete"
	ActionVoid     Action = "void"
	ActionDelete   Action = "delete"
)

type effect int

const (
	effectNone effect = iota
	// effectApply moves stock in the order's own direction, converting
	// every line afresh and snapshotting the result.
	effectApply
	// effectReverse undoes a previous effectApply from the snapshots.
	effectReverse
)

// transition is the outcome of an action on an order in a given status.
type transition struct {
	next   model.OrderStatus
	effect effect
}

// planTransition looks up action in the lifecycle table:
//
//	create     -> pending (none) | completed (apply)
//	approve    pending   -> approved  (none)
//	complete   approved  -> completed (apply)
//	void       pending, approved -> void (none); completed -> void (reverse)
//	delete     completed -> removed (reverse); any other -> removed (none)
func planTransition(order *model.Order, action Action) (transition, error) {
	from := order.OrderStatus
	switch action {
	case ActionCreate:
		switch from {
		case "", model.StatusPending:
			return transition{next: model.StatusPending, effect: effectNone}, nil
		case model.StatusCompleted:
			return transition{next: model.StatusCompleted, effect: effectApply}, nil
		}
	case ActionApprove:
		if from == model.StatusPending {
			return transition{next: model.StatusApproved, effect: effectNone}, nil
		}
	case ActionComplete:
		if from == model.StatusApproved {
			return transition{next: model.StatusCompleted, effect: effectApply}, nil
		}
	case ActionVoid:
		switch from {
		case model.StatusPending, model.StatusApproved:
			return transition{next: model.StatusVoid, effect: effectNone}, nil
		case model.StatusCompleted:
			return transition{next: model.StatusVoid, effect: effectReverse}, nil
		}
	case ActionDelete:
		if from == model.StatusCompleted {
			return transition{next: from, effect: effectReverse}, nil
		}
		return transition{next: from, effect: effectNone}, nil
	}
	return transition{}, &stock.InvalidStateTransitionError{
		OrderID: order.ID.String(),
		From:    string(from),
		Action:  string(action),
	}
}

// applyDirection is the stock direction of completing an order of kind:
// a sale takes stock out, a purchase brings it in.
func applyDirection(kind model.OrderKind) stock.Direction {
	if kind == model.OrderPurchase {
		return stock.Credit
	}
	return stock.Debit
}

// direction resolves e for an order of kind. ok is false for effectNone.
func (e effect) direction(kind model.OrderKind) (dir stock.Direction, ok bool) {
	switch e {
	case effectApply:
		return applyDirection(kind), true
	case effectReverse:
		return applyDirection(kind).Opposite(), true
	}
	return 0, false
}
