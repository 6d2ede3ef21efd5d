package contract

import (
	"errors"
	"fmt"

	"github.com/warp/contract-revenue/revenue"
)

var (
	// ErrContractNotFound is returned by stores for unknown IDs.
	ErrContractNotFound = errors.New("contract not found")

	// ErrMissingField is returned when a contract lacks a value the chosen
	// recognition method needs.
	ErrMissingField = errors.New("missing required field")

	// ErrNoInput is returned when an upload carries neither a file nor text.
	ErrNoInput = errors.New("no file or text provided")

	// ErrInvalidDate is returned for edits carrying a malformed date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidStatus is returned for edits to a status users cannot set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNoSchedule is returned when a snapshot is requested before any
	// schedule was calculated.
	ErrNoSchedule = errors.New("contract has no calculated schedule")
)

// MissingFieldError names the fields BuildParams could not find.
type MissingFieldError struct {
	Method revenue.Method
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s requires %v", e.Method, e.Fields)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// Stage is the ingestion step that failed.
type Stage string

const (
	StageText  Stage = "text"
	StageAI    Stage = "ai"
	StageStore Stage = "store"
)

// IngestError wraps a failure with the ingestion stage it happened in.
type IngestError struct {
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed at %s stage: %v", e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// StageOf returns the ingestion stage of err, or "" if it is not an IngestError.
func StageOf(err error) Stage {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Stage
	}
	return ""
}

// IsNotFound reports whether err means the contract does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound)
}

// IsClientError reports whether err was caused by bad caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrNoSchedule) ||
		revenue.IsClientError(err)
}
