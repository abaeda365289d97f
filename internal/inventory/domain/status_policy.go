package domain

import (
	"fmt"
	"time"
)

// transitions is the fixed availability state machine. Self-transitions are
// not listed and therefore invalid.
var transitions = map[AvailabilityStatus][]AvailabilityStatus{
	StatusAvailable:   {StatusRented, StatusMaintenance, StatusDamaged, StatusLost},
	StatusRented:      {StatusAvailable, StatusDamaged, StatusLost},
	StatusMaintenance: {StatusAvailable, StatusDamaged, StatusLost},
	StatusDamaged:     {StatusAvailable, StatusMaintenance, StatusLost},
	StatusLost:        {StatusAvailable},
}

// AllowedTransitions returns the statuses reachable from from.
func AllowedTransitions(from AvailabilityStatus) []AvailabilityStatus {
	allowed := transitions[from]
	out := make([]AvailabilityStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to AvailabilityStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequiresReason reports whether entering to needs a reason.
func RequiresReason(to AvailabilityStatus) bool {
	return to == StatusMaintenance || to == StatusDamaged || to == StatusLost
}

// AllowsResolutionDate reports whether an expected resolution date may be
// recorded when entering to. The date stays optional.
func AllowsResolutionDate(to AvailabilityStatus) bool {
	return to == StatusMaintenance || to == StatusDamaged
}

// LeavingRentedNeedsClearance reports whether from -> to has to be cleared
// by the allocation system first. Returning an item is always allowed.
func LeavingRentedNeedsClearance(from, to AvailabilityStatus) bool {
	return from == StatusRented && to != StatusAvailable
}

// TransitionRequest is a requested availability change.
type TransitionRequest struct {
	From           AvailabilityStatus
	To             AvailabilityStatus
	Reason         string
	ResolutionDate *time.Time

	// Allocated is the allocation system's answer for the item. Only
	// consulted when leaving rented.
	Allocated bool
	ItemID    string
}

// CheckTransition validates req against the state machine and its field
// rules. It has no side effects.
func CheckTransition(req TransitionRequest, now time.Time) error {
	if !req.To.Valid() {
		return InvalidStatus(string(req.To))
	}
	if !CanTransition(req.From, req.To) {
		return InvalidStatusTransition(req.From, req.To, AllowedTransitions(req.From))
	}
	if LeavingRentedNeedsClearance(req.From, req.To) && req.Allocated {
		return ItemAllocated(req.ItemID)
	}
	if RequiresReason(req.To) && req.Reason == "" {
		return ReasonRequired(req.To)
	}
	if req.ResolutionDate != nil {
		if !AllowsResolutionDate(req.To) {
			return ResolutionDateNotAllowed(req.To)
		}
		if !req.ResolutionDate.After(now) {
			return ResolutionDateInPast()
		}
	}
	return nil
}

// StatusRestriction describes what entering one target status needs.
type StatusRestriction struct {
	Status                 AvailabilityStatus `json:"status"`
	RequiresReason         bool               `json:"requires_reason"`
	RequiresResolutionDate bool               `json:"requires_resolution_date"`
	AllowsResolutionDate   bool               `json:"allows_resolution_date"`
	Blocked                bool               `json:"blocked"`
	Message                string             `json:"message,omitempty"`
}

// StatusOptions lists the transitions available from an item's current status.
type StatusOptions struct {
	CurrentStatus    AvailabilityStatus   `json:"current_status"`
	ValidTransitions []AvailabilityStatus `json:"valid_transitions"`
	Restrictions     []StatusRestriction  `json:"restrictions"`
}

// Options builds the status options for an item in from. Targets blocked by
// an active allocation are still listed, flagged as blocked.
func Options(from AvailabilityStatus, allocated bool) StatusOptions {
	opts := StatusOptions{
		CurrentStatus:    from,
		ValidTransitions: AllowedTransitions(from),
	}

	for _, to := range opts.ValidTransitions {
		r := StatusRestriction{
			Status:                 to,
			RequiresReason:         RequiresReason(to),
			RequiresResolutionDate: AllowsResolutionDate(to),
			AllowsResolutionDate:   AllowsResolutionDate(to),
		}

		switch {
		case allocated && LeavingRentedNeedsClearance(from, to):
			r.Blocked = true
			r.Message = "item is allocated to an active rental and must be returned first"
		case r.RequiresReason && r.AllowsResolutionDate:
			r.Message = fmt.Sprintf("a reason is required for %s, an expected resolution date is recommended", to)
		case r.RequiresReason:
			r.Message = fmt.Sprintf("a reason is required for %s", to)
		}

		opts.Restrictions = append(opts.Restrictions, r)
	}

	return opts
}
