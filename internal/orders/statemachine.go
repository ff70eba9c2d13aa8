package orders

import (
	"time"

	"github.com/angelmondragon/orderdesk/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
)

var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusRequested:      {enums.OrderStatusQuoted, enums.OrderStatusDirect},
	enums.OrderStatusQuoted:         {enums.OrderStatusAccepted, enums.OrderStatusRejected},
	enums.OrderStatusAccepted:       {enums.OrderStatusAssigned},
	enums.OrderStatusDirect:         {enums.OrderStatusAssigned},
	enums.OrderStatusAssigned:       {enums.OrderStatusPacked},
	enums.OrderStatusPacked:         {enums.OrderStatusShipped},
	enums.OrderStatusShipped:        {enums.OrderStatusOutForDelivery},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:      {enums.OrderStatusInvoiced},
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s enums.OrderStatus) []enums.OrderStatus {
	next := transitions[s]
	out := make([]enums.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// EdgeOwner is the party allowed to drive from -> to. Only the buyer answers a
// quote; the seller drives everything else.
func EdgeOwner(from, to enums.OrderStatus) enums.Namespace {
	if from == enums.OrderStatusQuoted && (to == enums.OrderStatusAccepted || to == enums.OrderStatusRejected) {
		return enums.NamespaceBuyer
	}
	return enums.NamespaceSeller
}

// Authorize checks that actor may move order to target without changing it.
// It returns the namespace the actor acts from.
func Authorize(order *Order, target enums.OrderStatus, actor Actor) (enums.Namespace, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	details := map[string]any{
		"orderId": order.ID.String(),
		"from":    order.Status.String(),
		"to":      target.String(),
	}
	if !target.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown target status").WithDetails(details)
	}
	if !CanTransition(order.Status, target) {
		return "", pkgerrors.New(pkgerrors.CodeInvalidTransition,
			"cannot move order from "+order.Status.String()+" to "+target.String()).WithDetails(details)
	}
	ns, ok := order.NamespaceOf(actor.ID)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a party to this order").WithDetails(details)
	}
	if owner := EdgeOwner(order.Status, target); ns != owner {
		details["namespace"] = ns.String()
		return "", pkgerrors.New(pkgerrors.CodeValidation, "only the "+owner.String()+" may move the order to "+target.String()).
			WithDetails(details)
	}
	return ns, nil
}

// Transition moves order to target, appending history, stamping the status
// timestamp and bumping the revision. On error the order is untouched.
func Transition(order *Order, target enums.OrderStatus, actor Actor, notes string, now time.Time) (enums.Namespace, error) {
	ns, err := Authorize(order, target, actor)
	if err != nil {
		return "", err
	}
	stamp(order, target, actor, notes, now)
	order.Revision++
	return ns, nil
}

// stamp records target as the current status. History stays time ordered
// even when the caller's clock runs behind the last entry.
func stamp(order *Order, target enums.OrderStatus, actor Actor, notes string, now time.Time) {
	at := now.UTC()
	if n := len(order.StatusHistory); n > 0 && order.StatusHistory[n-1].UpdatedAt.After(at) {
		at = order.StatusHistory[n-1].UpdatedAt
	}
	order.StatusHistory = append(order.StatusHistory, StatusHistoryEntry{
		Status:        target,
		UpdatedAt:     at,
		UpdatedBy:     actor.ID,
		UpdatedByName: actor.Name,
		Notes:         notes,
	})
	if order.StatusTimestamps == nil {
		order.StatusTimestamps = map[string]time.Time{}
	}
	order.StatusTimestamps[target.TimestampKey()] = at
	order.Status = target
}
