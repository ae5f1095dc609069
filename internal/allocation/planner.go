package allocation

import (
	"fmt"
	"strings"
	"time"

	"envios-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// minChunk is the allocation granularity. Remaining capacity below 0.01 lb
// counts as zero so rounding noise never produces negligible-fraction rows.
var minChunk = decimal.New(1, -2)

// Candidate is a period the planner may allocate against, with its remaining
// capacity as read inside the committing transaction. Candidates must be
// ordered ascending by send date.
type Candidate struct {
	PeriodID  uuid.UUID
	SendDate  time.Time
	Remaining decimal.Decimal
}

// Entry is one chunk of a plan: a weight assigned to a period.
type Entry struct {
	PeriodID uuid.UUID
	SendDate time.Time
	Weight   decimal.Decimal
	Date     time.Time
}

// Plan is a satisfiable split of a requested weight across candidate
// periods. Entry weights sum exactly to Requested.
type Plan struct {
	Requested decimal.Decimal
	Entries   []Entry
}

// BuildPlan walks the candidates earliest-first and greedily assigns
// min(stillNeeded, remaining) to each. It either returns a plan covering the
// full requested weight or an error; it never returns a partial plan.
//
// The first chunk keeps the caller's requested date when that date is not
// after its period's send date; every other chunk is dated to its period's
// send date.
func BuildPlan(requested decimal.Decimal, requestedDate time.Time, candidates []Candidate) (*Plan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validation("Weight must be greater than zero")
	}
	if len(candidates) == 0 {
		return nil, apperr.NotFound("No active periods available for this date")
	}

	need := requested
	var entries []Entry
	for _, cand := range candidates {
		if need.IsZero() {
			break
		}
		if cand.Remaining.LessThan(minChunk) {
			continue
		}
		take := decimal.Min(need, cand.Remaining)
		date := cand.SendDate
		if len(entries) == 0 && !requestedDate.After(cand.SendDate) {
			date = requestedDate
		}
		entries = append(entries, Entry{
			PeriodID: cand.PeriodID,
			SendDate: cand.SendDate,
			Weight:   take,
			Date:     date,
		})
		need = need.Sub(take)
	}

	if need.GreaterThan(decimal.Zero) {
		satisfiable := requested.Sub(need)
		return nil, apperr.CapacityExceeded(
			fmt.Sprintf("Not enough capacity: %s lb of the requested %s lb can be reserved (%s lb short)",
				satisfiable.StringFixed(2), requested.StringFixed(2), need.StringFixed(2)),
			map[string]interface{}{
				"requested":   requested.StringFixed(2),
				"satisfiable": satisfiable.StringFixed(2),
				"shortfall":   need.StringFixed(2),
			})
	}
	return &Plan{Requested: requested, Entries: entries}, nil
}

// Split reports whether the plan spans more than one period.
func (p *Plan) Split() bool {
	return len(p.Entries) > 1
}

// Summary describes how the weight was divided, for the caller-visible message.
func (p *Plan) Summary() string {
	if !p.Split() {
		return "Reservation created successfully"
	}
	parts := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		parts[i] = fmt.Sprintf("%s lb for send date %s", e.Weight.StringFixed(2), e.SendDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("Weight split across %d periods: %s", len(p.Entries), strings.Join(parts, ", "))
}
