/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model (contract, revenue) from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

FORMATS:
  - Money is a decimal string ("1234.50") so no precision is lost in transit
  - Dates are YYYY-MM-DD, timestamps RFC 3339

VALIDATION:
  Request types carry validator/v10 struct tags. handlers.go runs them
  through one shared validator before calling the service.

SEE ALSO:
  - handlers.go: Uses these types
  - contract/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/contract"
	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID               string           `json:"id"`
	Filename         string           `json:"filename"`
	Status           string           `json:"status"`
	ContractValue    *decimal.Decimal `json:"contract_value"`
	StartDate        string           `json:"start_date,omitempty"`
	EndDate          string           `json:"end_date,omitempty"`
	WorkStartDate    string           `json:"work_start_date,omitempty"`
	WorkEndDate      string           `json:"work_end_date,omitempty"`
	BillingStartDate string           `json:"billing_start_date,omitempty"`
	BillingEndDate   string           `json:"billing_end_date,omitempty"`
	ClientName       string           `json:"client_name,omitempty"`
	Description      string           `json:"description,omitempty"`
	PaymentTerms     string           `json:"payment_terms,omitempty"`
	Deliverables     []string         `json:"deliverables"`
	Confidence       float64          `json:"confidence"`
	Reasoning        string           `json:"reasoning,omitempty"`
	Method           string           `json:"revenue_method,omitempty"`
	ActualRevenue    decimal.Decimal  `json:"actual_revenue"`
	Milestones       []MilestoneDTO   `json:"milestones"`
	OriginalText     string           `json:"original_text,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}

// MilestoneDTO represents a milestone in API responses and edit requests.
type MilestoneDTO struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	DueDate   string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Completed bool            `json:"completed"`
}

// UpdateContractRequest carries editor changes. Omitted fields are left
// untouched; an empty date string clears the date.
type UpdateContractRequest struct {
	ContractValue    *decimal.Decimal `json:"contract_value"`
	StartDate        *string          `json:"start_date"`
	EndDate          *string          `json:"end_date"`
	WorkStartDate    *string          `json:"work_start_date"`
	WorkEndDate      *string          `json:"work_end_date"`
	BillingStartDate *string          `json:"billing_start_date"`
	BillingEndDate   *string          `json:"billing_end_date"`
	ClientName       *string          `json:"client_name"`
	Description      *string          `json:"description"`
	PaymentTerms     *string          `json:"payment_terms"`
	Method           *string          `json:"revenue_method" validate:"omitempty,revenue_method"`
	ActualRevenue    *decimal.Decimal `json:"actual_revenue"`
	Status           *string          `json:"status" validate:"omitempty,oneof=completed needs_review"`
	Milestones       *[]MilestoneDTO  `json:"milestones" validate:"omitempty,dive"`
}

// UploadResponse is returned after a successful ingestion.
type UploadResponse struct {
	Success         bool                      `json:"success"`
	Contract        ContractDTO               `json:"contract"`
	ExtractedFields *llm.ContractFields       `json:"extracted_fields"`
	Validation      contract.ValidationResult `json:"validation"`
	TextLength      int                       `json:"text_length"`
}

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduleRequest selects how to schedule a stored contract.
type ScheduleRequest struct {
	Method        string           `json:"method" validate:"omitempty,revenue_method"`
	ActualRevenue *decimal.Decimal `json:"actual_revenue"`
	BilledLabel   string           `json:"billed_label" validate:"omitempty,oneof=billed-amount billed-on-achievement"`
}

// CalculateRequest runs the engine without touching storage.
type CalculateRequest struct {
	TotalValue    decimal.Decimal        `json:"total_value"`
	StartDate     string                 `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string                 `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Method        string                 `json:"method" validate:"omitempty,revenue_method"`
	Milestones    []CalculateMilestoneIn `json:"milestones" validate:"dive"`
	BilledLabel   string                 `json:"billed_label" validate:"omitempty,oneof=billed-amount billed-on-achievement"`
	ActualRevenue decimal.Decimal        `json:"actual_revenue"`
	AsOf          string                 `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// CalculateMilestoneIn is a milestone passed to the stateless calculator.
type CalculateMilestoneIn struct {
	Name    string          `json:"name" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"due_date" validate:"required,datetime=2006-01-02"`
}

// AllocationDTO is one schedule entry.
type AllocationDTO struct {
	Amount          decimal.Decimal `json:"amount"`
	RecognitionDate string          `json:"recognition_date"`
	Type            string          `json:"type"`
	Description     string          `json:"description"`
}

// ForwardBookDTO is a forward book summary.
type ForwardBookDTO struct {
	TotalContracted decimal.Decimal `json:"total_contracted"`
	EarnedToDate    decimal.Decimal `json:"earned_to_date"`
	Unearned        decimal.Decimal `json:"unearned"`
	ForwardBook     decimal.Decimal `json:"forward_book"`
	AsOf            string          `json:"as_of"`
}

// ScheduleDTO is a schedule with its forward book.
type ScheduleDTO struct {
	ContractID  string          `json:"contract_id,omitempty"`
	Method      string          `json:"method"`
	Items       []AllocationDTO `json:"items"`
	Total       decimal.Decimal `json:"total"`
	ForwardBook ForwardBookDTO  `json:"forward_book"`
	Warnings    []string        `json:"warnings"`
}

// SnapshotDTO is a recorded forward book.
type SnapshotDTO struct {
	ID            string          `json:"id"`
	ContractID    string          `json:"contract_id"`
	ActualRevenue decimal.Decimal `json:"actual_revenue"`
	ForwardBookDTO
	TakenAt string `json:"taken_at"`
}

// =============================================================================
// MISC
// =============================================================================

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Type    string `json:"type,omitempty"`
}

// VersionResponse describes the running build.
type VersionResponse struct {
	Version  string   `json:"version"`
	Commit   string   `json:"commit,omitempty"`
	Features []string `json:"features"`
}

// HealthResponse reports which optional backends are configured.
type HealthResponse struct {
	Status    string `json:"status"`
	AI        bool   `json:"ai_configured"`
	OCR       string `json:"ocr"`
	Scheduler bool   `json:"snapshot_scheduler"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toContractDTO(c contract.Contract, withText bool) ContractDTO {
	dto := ContractDTO{
		ID:               c.ID,
		Filename:         c.Filename,
		Status:           string(c.Status),
		ContractValue:    c.Value,
		StartDate:        contract.FormatDate(c.StartDate),
		EndDate:          contract.FormatDate(c.EndDate),
		WorkStartDate:    contract.FormatDate(c.WorkStartDate),
		WorkEndDate:      contract.FormatDate(c.WorkEndDate),
		BillingStartDate: contract.FormatDate(c.BillingStartDate),
		BillingEndDate:   contract.FormatDate(c.BillingEndDate),
		ClientName:       c.ClientName,
		Description:      c.Description,
		PaymentTerms:     c.PaymentTerms,
		Deliverables:     c.Deliverables,
		Confidence:       c.Confidence,
		Reasoning:        c.Reasoning,
		Method:           string(c.Method),
		ActualRevenue:    c.ActualRevenue,
		Milestones:       make([]MilestoneDTO, len(c.Milestones)),
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
	if dto.Deliverables == nil {
		dto.Deliverables = []string{}
	}
	if withText {
		dto.OriginalText = c.OriginalText
	}
	for i, m := range c.Milestones {
		dto.Milestones[i] = MilestoneDTO{
			ID:        m.ID,
			Name:      m.Name,
			Amount:    m.Amount,
			DueDate:   contract.FormatDate(m.DueDate),
			Completed: m.Completed,
		}
	}
	return dto
}

func toAllocationDTOs(allocations []revenue.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = AllocationDTO{
			Amount:          a.Amount,
			RecognitionDate: a.RecognitionDate.Format(contract.DateLayout),
			Type:            string(a.Kind),
			Description:     a.Description,
		}
	}
	return dtos
}

func toForwardBookDTO(s revenue.ForwardBookSummary) ForwardBookDTO {
	return ForwardBookDTO{
		TotalContracted: s.TotalContracted,
		EarnedToDate:    s.EarnedToDate,
		Unearned:        s.Unearned,
		ForwardBook:     s.ForwardBook,
		AsOf:            s.AsOf.Format(time.RFC3339),
	}
}

func toScheduleDTO(s *contract.Schedule) ScheduleDTO {
	warnings := s.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return ScheduleDTO{
		ContractID:  s.ContractID,
		Method:      string(s.Method),
		Items:       toAllocationDTOs(s.Allocations),
		Total:       revenue.Sum(s.Allocations),
		ForwardBook: toForwardBookDTO(s.ForwardBook),
		Warnings:    warnings,
	}
}

func toSnapshotDTO(s contract.ForwardBookSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:             s.ID,
		ContractID:     s.ContractID,
		ActualRevenue:  s.ActualRevenue,
		ForwardBookDTO: toForwardBookDTO(s.ForwardBookSummary),
		TakenAt:        s.TakenAt.Format(time.RFC3339),
	}
}

func (r UpdateContractRequest) toUpdate() contract.Update {
	u := contract.Update{
		Value:            r.ContractValue,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		WorkStartDate:    r.WorkStartDate,
		WorkEndDate:      r.WorkEndDate,
		BillingStartDate: r.BillingStartDate,
		BillingEndDate:   r.BillingEndDate,
		ClientName:       r.ClientName,
		Description:      r.Description,
		PaymentTerms:     r.PaymentTerms,
		ActualRevenue:    r.ActualRevenue,
	}
	if r.Method != nil {
		m := revenue.Method(*r.Method)
		u.Method = &m
	}
	if r.Status != nil {
		s := contract.Status(*r.Status)
		u.Status = &s
	}
	if r.Milestones != nil {
		in := make([]contract.MilestoneInput, len(*r.Milestones))
		for i, m := range *r.Milestones {
			in[i] = contract.MilestoneInput{
				Name:      m.Name,
				Amount:    m.Amount,
				DueDate:   m.DueDate,
				Completed: m.Completed,
			}
		}
		u.Milestones = &in
	}
	return u
}
