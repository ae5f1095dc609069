// Package status enforces the reservation lifecycle:
// pending -> confirmed -> shipped -> delivered, with cancellation possible
// from any non-terminal state. Delivered and cancelled are terminal.
package status

import (
	"fmt"
	"strings"
	"time"

	"envios-backend/internal/constants"
	"envios-backend/internal/models"
	"envios-backend/internal/pkg/apperr"
)

// Machine holds the transition table: each status mapped to its legal
// destinations. The table is plain data so it can be checked exhaustively;
// build one at startup and pass it to whoever mutates statuses.
type Machine struct {
	table map[string][]string
}

// NewMachine returns a machine with the shipping lifecycle table.
func NewMachine() *Machine {
	return &Machine{table: map[string][]string{
		constants.StatusPending:   {constants.StatusConfirmed, constants.StatusCancelled},
		constants.StatusConfirmed: {constants.StatusShipped, constants.StatusCancelled},
		constants.StatusShipped:   {constants.StatusDelivered, constants.StatusCancelled},
		constants.StatusDelivered: nil,
		constants.StatusCancelled: nil,
	}}
}

// AllowedNext returns the legal destination statuses from a given status.
func (m *Machine) AllowedNext(from string) []string {
	return m.table[from]
}

// IsTerminal reports whether a status admits no further transition.
func IsTerminal(status string) bool {
	return status == constants.StatusDelivered || status == constants.StatusCancelled
}

// Transition validates the requested change and, if accepted, sets the new
// status and stamps the matching date field with now's calendar date. Each
// date field is write-once: a stamp already present is never overwritten.
//
// Rules apply in order: terminal state, no-op, actor role (a non-admin may
// only move confirmed -> shipped), then the transition table.
func (m *Machine) Transition(r *models.Reservation, to, role string, now time.Time) error {
	if !constants.IsValidStatus(to) {
		return apperr.Validation(fmt.Sprintf("Invalid status: %s", to))
	}
	if IsTerminal(r.Status) {
		return apperr.InvalidTransition("Cannot modify final status", map[string]interface{}{
			"reason": "terminal",
			"status": r.Status,
		})
	}
	if to == r.Status {
		return apperr.InvalidTransition("Reservation already has this status", map[string]interface{}{
			"reason": "no_op",
			"status": r.Status,
		})
	}
	if role != constants.Admin {
		if r.Status != constants.StatusConfirmed || to != constants.StatusShipped {
			return apperr.PermissionDenied("You are not allowed to perform this status change")
		}
	}
	allowed := m.table[r.Status]
	if !contains(allowed, to) {
		return apperr.InvalidTransition(
			fmt.Sprintf("Cannot change status from %s to %s (allowed: %s)", r.Status, to, strings.Join(allowed, ", ")),
			map[string]interface{}{
				"reason":  "not_adjacent",
				"allowed": allowed,
			})
	}

	r.Status = to
	stamp := DateOnly(now)
	switch to {
	case constants.StatusConfirmed:
		if r.ConfirmedAt == nil {
			r.ConfirmedAt = &stamp
		}
	case constants.StatusShipped:
		if r.ShippedAt == nil {
			r.ShippedAt = &stamp
		}
	case constants.StatusDelivered:
		if r.DeliveredAt == nil {
			r.DeliveredAt = &stamp
		}
	}
	return nil
}

// DateOnly truncates a time to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
