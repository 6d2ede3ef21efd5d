/*
types.go - Contract records and their persisted schedules

PURPOSE:
  A Contract is what ingestion produces: the source text, the fields the
  model extracted (possibly corrected by a user), and its milestones.
  RevenueItems are the persisted output of one engine run; they are
  replaced wholesale on every recalculation.

DATES:
  All contract dates are calendar dates. They are parsed as noon UTC so
  that converting to another zone never moves them to a different day.

SEE ALSO:
  - revenue/: the allocation engine
  - service.go: ingestion and scheduling workflow
*/
package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/revenue"
)

// Status is the ingestion outcome of a contract.
type Status string

const (
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
)

// Contract is an ingested customer contract.
type Contract struct {
	ID           string
	Filename     string
	OriginalText string
	Status       Status

	Value            *decimal.Decimal
	StartDate        *time.Time
	EndDate          *time.Time
	WorkStartDate    *time.Time
	WorkEndDate      *time.Time
	BillingStartDate *time.Time
	BillingEndDate   *time.Time

	ClientName   string
	Description  string
	PaymentTerms string
	Deliverables []string
	Confidence   float64
	Reasoning    string

	// Method is the last recognition method used to schedule the contract.
	Method        revenue.Method
	ActualRevenue decimal.Decimal

	Milestones []Milestone

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Milestone is a contract milestone. DueDate is nil when the contract does
// not state one; such milestones are skipped by the milestone methods.
type Milestone struct {
	ID         string
	ContractID string
	Name       string
	Amount     decimal.Decimal
	DueDate    *time.Time
	Completed  bool
}

// RevenueItem is one persisted schedule entry.
type RevenueItem struct {
	ID         string
	ContractID string
	Method     revenue.Method
	Sequence   int
	revenue.Allocation
	CreatedAt time.Time
}

// ForwardBookSnapshot records the forward book of a contract at a point in time.
type ForwardBookSnapshot struct {
	ID            string
	ContractID    string
	ActualRevenue decimal.Decimal
	revenue.ForwardBookSummary
	TakenAt time.Time
}

// Allocations returns the engine entries of a persisted schedule in order.
func Allocations(items []RevenueItem) []revenue.Allocation {
	out := make([]revenue.Allocation, len(items))
	for i, it := range items {
		out[i] = it.Allocation
	}
	return out
}

// =============================================================================
// DATES
// =============================================================================

const DateLayout = "2006-01-02"

// ParseDate parses a calendar date. YYYY-MM-DD is the canonical form; full
// RFC 3339 timestamps are accepted and reduced to their date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return revenue.Date(t.Year(), t.Month(), t.Day()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return revenue.Date(t.Year(), t.Month(), t.Day()), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// parseOptionalDate maps nil or empty to nil.
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders a nullable date as YYYY-MM-DD, or "" when nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
