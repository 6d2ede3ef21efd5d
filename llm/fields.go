// Package llm extracts structured contract fields from document text with a
// large language model.
package llm

import (
	"context"

	"github.com/shopspring/decimal"
)

// ContractFields is the normalized shape we want from the model.
// Every scalar is nullable: the model is told to leave out what it is unsure of.
type ContractFields struct {
	ContractValue    *decimal.Decimal  `json:"contractValue"`
	StartDate        *string           `json:"startDate"`        // YYYY-MM-DD
	EndDate          *string           `json:"endDate"`          // YYYY-MM-DD
	WorkStartDate    *string           `json:"workStartDate"`    // service period
	WorkEndDate      *string           `json:"workEndDate"`
	BillingStartDate *string           `json:"billingStartDate"` // invoicing period
	BillingEndDate   *string           `json:"billingEndDate"`
	ClientName       *string           `json:"clientName"`
	Description      *string           `json:"description"`
	PaymentTerms     *string           `json:"paymentTerms"`
	Milestones       []MilestoneFields `json:"milestones"`
	Deliverables     []string          `json:"deliverables"`
	Confidence       float64           `json:"confidence"` // 0..1
	Reasoning        string            `json:"reasoning"`
}

// MilestoneFields is one milestone as returned by the model.
type MilestoneFields struct {
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"dueDate"` // YYYY-MM-DD
}

// FieldExtractor is the interface the ingestion pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, text string) (*ContractFields, error)
}

const noReasoning = "No reasoning provided"

// normalize fills defaults for missing fields and clamps confidence to [0,1].
func (f *ContractFields) normalize() {
	if f.Milestones == nil {
		f.Milestones = []MilestoneFields{}
	}
	if f.Deliverables == nil {
		f.Deliverables = []string{}
	}
	if f.Reasoning == "" {
		f.Reasoning = noReasoning
	}
	switch {
	case f.Confidence < 0:
		f.Confidence = 0
	case f.Confidence > 1:
		f.Confidence = 1
	}

	// Empty strings carry no information; treat them as null.
	for _, p := range []**string{
		&f.StartDate, &f.EndDate,
		&f.WorkStartDate, &f.WorkEndDate,
		&f.BillingStartDate, &f.BillingEndDate,
		&f.ClientName, &f.Description, &f.PaymentTerms,
	} {
		if *p != nil && **p == "" {
			*p = nil
		}
	}
	if f.ContractValue != nil && f.ContractValue.IsZero() {
		f.ContractValue = nil
	}
}
