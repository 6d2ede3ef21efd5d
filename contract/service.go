/*
service.go - Contract ingestion and scheduling workflow

PURPOSE:
  Orchestrates the pieces around the revenue engine:

    document -> text -> model fields -> validation -> stored contract
    stored contract -> engine params -> schedule -> forward book

  Each ingestion failure is tagged with the stage it happened in so the
  HTTP layer can tell bad documents from model outages.

RECALCULATION:
  Schedule() always replaces the stored schedule of a contract. Nothing
  from an earlier run survives a recalculation.

SEE ALSO:
  - params.go: contract -> revenue.Params
  - validation.go: field and schedule checks
  - api/handlers.go: HTTP surface
*/
package contract

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/contract-revenue/extract"
	"github.com/warp/contract-revenue/llm"
	"github.com/warp/contract-revenue/revenue"
)

const defaultFilename = "unknown.pdf"

// Service implements the contract workflows on top of a Store.
type Service struct {
	Store  Store
	Text   extract.Extractor
	Fields llm.FieldExtractor
	Engine *revenue.Engine

	// NewID generates record IDs.
	NewID func() string
}

// NewService wires a service. fields may be nil when no model is configured;
// ingestion then fails at the AI stage with llm.ErrNotConfigured.
func NewService(store Store, text extract.Extractor, fields llm.FieldExtractor, engine *revenue.Engine) *Service {
	if engine == nil {
		engine = revenue.NewEngine(nil)
	}
	return &Service{
		Store:  store,
		Text:   text,
		Fields: fields,
		Engine: engine,
		NewID:  uuid.NewString,
	}
}

func (s *Service) now() time.Time {
	return s.Engine.Clock.Now()
}

// =============================================================================
// INGESTION
// =============================================================================

// IngestResult is a stored contract together with what the model returned.
type IngestResult struct {
	Contract   *Contract
	Fields     *llm.ContractFields
	Validation ValidationResult
	TextLength int
}

// Ingest extracts text from an uploaded document and ingests it.
func (s *Service) Ingest(ctx context.Context, doc extract.Document) (*IngestResult, error) {
	if s.Text == nil {
		return nil, &IngestError{Stage: StageText, Err: extract.ErrUnsupportedType}
	}
	text, err := s.Text.Extract(ctx, doc)
	if err != nil {
		return nil, &IngestError{Stage: StageText, Err: err}
	}
	return s.IngestText(ctx, doc.Filename, doc.ContentType, text)
}

// IngestText ingests text that was already extracted, e.g. by a client.
func (s *Service) IngestText(ctx context.Context, filename, contentType, text string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &IngestError{Stage: StageText, Err: extract.ErrEmptyText}
	}
	if filename == "" {
		filename = defaultFilename
	}
	log.Printf("[Ingest] %s (%s): %d characters", filename, contentType, len(text))

	if s.Fields == nil {
		return nil, &IngestError{Stage: StageAI, Err: llm.ErrNotConfigured}
	}
	fields, err := s.Fields.ExtractFields(ctx, text)
	if err != nil {
		return nil, &IngestError{Stage: StageAI, Err: err}
	}

	validation := ValidateFields(fields, s.now())

	c := FromFields(fields, filename, text)
	c.ID = s.NewID()
	c.Status = StatusCompleted
	if !validation.IsValid {
		c.Status = StatusNeedsReview
	}
	c.ActualRevenue = decimal.Zero
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	for i := range c.Milestones {
		c.Milestones[i].ID = s.NewID()
		c.Milestones[i].ContractID = c.ID
	}

	if err := s.Store.SaveContract(ctx, c); err != nil {
		return nil, &IngestError{Stage: StageStore, Err: err}
	}
	log.Printf("[Ingest] Stored contract %s with status %s (%d errors, %d warnings)",
		c.ID, c.Status, len(validation.Errors), len(validation.Warnings))

	return &IngestResult{
		Contract:   &c,
		Fields:     fields,
		Validation: validation,
		TextLength: len(text),
	}, nil
}

// =============================================================================
// CRUD
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (*Contract, error) {
	return s.Store.GetContract(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Contract, error) {
	return s.Store.ListContracts(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.DeleteContract(ctx, id)
}

// MilestoneInput is an edited milestone. DueDate may be empty.
type MilestoneInput struct {
	Name      string
	Amount    decimal.Decimal
	DueDate   string
	Completed bool
}

// Update carries editor changes. Nil fields are left untouched; an empty
// date string clears the date.
type Update struct {
	Value            *decimal.Decimal
	StartDate        *string
	EndDate          *string
	WorkStartDate    *string
	WorkEndDate      *string
	BillingStartDate *string
	BillingEndDate   *string
	ClientName       *string
	Description      *string
	PaymentTerms     *string
	Method           *revenue.Method
	ActualRevenue    *decimal.Decimal
	Status           *Status
	Milestones       *[]MilestoneInput
}

// Update applies editor changes to a contract.
func (s *Service) Update(ctx context.Context, id string, u Update) (*Contract, error) {
	c, err := s.Store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Value != nil {
		v := *u.Value
		c.Value = &v
	}

	for _, d := range []struct {
		field string
		in    *string
		out   **time.Time
	}{
		{"start_date", u.StartDate, &c.StartDate},
		{"end_date", u.EndDate, &c.EndDate},
		{"work_start_date", u.WorkStartDate, &c.WorkStartDate},
		{"work_end_date", u.WorkEndDate, &c.WorkEndDate},
		{"billing_start_date", u.BillingStartDate, &c.BillingStartDate},
		{"billing_end_date", u.BillingEndDate, &c.BillingEndDate},
	} {
		if d.in == nil {
			continue
		}
		t, err := parseOptionalDate(d.in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.field, ErrInvalidDate)
		}
		*d.out = t
	}

	if u.ClientName != nil {
		c.ClientName = *u.ClientName
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.PaymentTerms != nil {
		c.PaymentTerms = *u.PaymentTerms
	}
	if u.Method != nil {
		m, err := revenue.ParseMethod(string(*u.Method))
		if err != nil {
			return nil, err
		}
		c.Method = m
	}
	if u.ActualRevenue != nil {
		c.ActualRevenue = *u.ActualRevenue
	}
	if u.Status != nil {
		switch *u.Status {
		case StatusCompleted, StatusNeedsReview:
			c.Status = *u.Status
		default:
			return nil, fmt.Errorf("%q: %w", *u.Status, ErrInvalidStatus)
		}
	}

	if u.Milestones != nil {
		milestones := make([]Milestone, 0, len(*u.Milestones))
		for i, in := range *u.Milestones {
			due, err := parseOptionalDate(&in.DueDate)
			if err != nil {
				return nil, fmt.Errorf("milestone %d due_date: %w", i+1, ErrInvalidDate)
			}
			milestones = append(milestones, Milestone{
				ID:         s.NewID(),
				ContractID: c.ID,
				Name:       strings.TrimSpace(in.Name),
				Amount:     in.Amount,
				DueDate:    due,
				Completed:  in.Completed,
			})
		}
		c.Milestones = milestones
	}

	c.UpdatedAt = s.now()
	if err := s.Store.SaveContract(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// =============================================================================
// SCHEDULING
// =============================================================================

// ScheduleRequest selects how to schedule a contract. Zero values fall back
// to what is stored on the contract.
type ScheduleRequest struct {
	Method        revenue.Method
	ActualRevenue *decimal.Decimal
	BilledLabel   revenue.LabelStyle
}

// Schedule is a computed or stored schedule with its forward book.
type Schedule struct {
	ContractID  string
	Method      revenue.Method
	Allocations []revenue.Allocation
	ForwardBook revenue.ForwardBookSummary
	Warnings    []string
}

// Schedule runs the engine for a contract and replaces its stored schedule.
func (s *Service) Schedule(ctx context.Context, id string, req ScheduleRequest) (*Schedule, error) {
	c, err := s.Store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = c.Method
	}
	actual := c.ActualRevenue
	if req.ActualRevenue != nil {
		actual = *req.ActualRevenue
	}

	params, err := BuildParams(*c, method, req.BilledLabel)
	if err != nil {
		return nil, err
	}
	allocations, err := s.Engine.Allocate(params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]RevenueItem, len(allocations))
	for i, a := range allocations {
		items[i] = RevenueItem{
			ID:         s.NewID(),
			ContractID: c.ID,
			Method:     params.Method,
			Sequence:   i,
			Allocation: a,
			CreatedAt:  now,
		}
	}
	if err := s.Store.ReplaceSchedule(ctx, c.ID, items); err != nil {
		return nil, err
	}

	c.Method = params.Method
	c.ActualRevenue = actual
	c.UpdatedAt = now
	if err := s.Store.SaveContract(ctx, *c); err != nil {
		return nil, err
	}

	log.Printf("[Schedule] %s: %d entries via %s", c.ID, len(allocations), params.Method)

	return &Schedule{
		ContractID:  c.ID,
		Method:      params.Method,
		Allocations: allocations,
		ForwardBook: s.Engine.ForwardBook(allocations, actual),
		Warnings:    ScheduleWarnings(*c, params),
	}, nil
}

// CurrentSchedule returns the stored schedule with a freshly computed
// forward book. A contract never scheduled has an empty schedule.
func (s *Service) CurrentSchedule(ctx context.Context, id string) (*Schedule, error) {
	_, sched, err := s.current(ctx, id)
	return sched, err
}

// current loads a contract together with its stored schedule.
func (s *Service) current(ctx context.Context, id string) (*Contract, *Schedule, error) {
	c, err := s.Store.GetContract(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.Store.LoadSchedule(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	method := c.Method
	if len(items) > 0 {
		method = items[0].Method
	}
	allocations := Allocations(items)
	return c, &Schedule{
		ContractID:  c.ID,
		Method:      method,
		Allocations: allocations,
		ForwardBook: s.Engine.ForwardBook(allocations, c.ActualRevenue),
		Warnings:    []string{},
	}, nil
}

// Snapshot records the current forward book of a scheduled contract.
func (s *Service) Snapshot(ctx context.Context, id string) (*ForwardBookSnapshot, error) {
	c, sched, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(sched.Allocations) == 0 {
		return nil, ErrNoSchedule
	}

	snap := ForwardBookSnapshot{
		ID:                 s.NewID(),
		ContractID:         id,
		ActualRevenue:      c.ActualRevenue,
		ForwardBookSummary: sched.ForwardBook,
		TakenAt:            sched.ForwardBook.AsOf,
	}
	if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Snapshots lists the recorded snapshots of a contract.
func (s *Service) Snapshots(ctx context.Context, id string) ([]ForwardBookSnapshot, error) {
	if _, err := s.Store.GetContract(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.ListSnapshots(ctx, id)
}
