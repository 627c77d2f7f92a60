package core

import (
	"fmt"
	"time"
)

// Shipment is one freight delivery record. The JSON layout is the persisted
// layout of the collection blob.
type Shipment struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Company       string    `json:"company"`
	Street        string    `json:"street"`
	PostalCode    string    `json:"postal_code"`
	City          string    `json:"city"`
	CreatedAt     time.Time `json:"created_at"`
	Destination   string    `json:"destination"`
	CorrectedCity string    `json:"corrected_city"`
	Confidence    *float64  `json:"confidence,omitempty"` // nil when the correction service sent none
}

// ShipmentInput holds the user-editable fields of a shipment, as submitted
// by a form or read from one import row.
type ShipmentInput struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// FormatDestination builds the display address "street, postal city".
func FormatDestination(street, postalCode, city string) string {
	return fmt.Sprintf("%s, %s %s", street, postalCode, city)
}

// CityCorrection is the result of one call to the city correction service.
type CityCorrection struct {
	Original   string   `json:"original"`
	Corrected  string   `json:"corrected"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ImportRowError pairs a 1-based line number of the uploaded file with the
// reason the row was not imported.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportStatistics summarizes a completed import run.
// Successful + Failed never exceeds Total.
type ImportStatistics struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []ImportRowError `json:"errors"`
}

// ImportOutcome classifies finished statistics for user notifications.
type ImportOutcome string

const (
	OutcomeSuccess ImportOutcome = "success"
	OutcomePartial ImportOutcome = "partial"
	OutcomeFailure ImportOutcome = "failure"
)

// Outcome returns success when nothing failed, failure when nothing
// succeeded out of a non-empty run, and partial otherwise.
func (s *ImportStatistics) Outcome() ImportOutcome {
	switch {
	case s.Failed == 0:
		return OutcomeSuccess
	case s.Successful == 0 && s.Total > 0:
		return OutcomeFailure
	default:
		return OutcomePartial
	}
}

// Title is the notification headline for the outcome.
func (s *ImportStatistics) Title() string {
	switch s.Outcome() {
	case OutcomeSuccess:
		return "Import successful"
	case OutcomeFailure:
		return "Import failed"
	default:
		return "Import partially successful"
	}
}

// Description is the notification body for the outcome.
func (s *ImportStatistics) Description() string {
	switch s.Outcome() {
	case OutcomeSuccess:
		return fmt.Sprintf("%d shipment(s) imported successfully.", s.Successful)
	case OutcomeFailure:
		return fmt.Sprintf("None of the %d row(s) could be imported.", s.Total)
	default:
		return fmt.Sprintf("%d of %d shipment(s) imported, %d failed.", s.Successful, s.Total, s.Failed)
	}
}

// ImportState is the lifecycle state of an import run.
type ImportState string

const (
	StateIdle      ImportState = "idle"
	StateRunning   ImportState = "running"
	StateCompleted ImportState = "completed"
	StateFailed    ImportState = "failed"
)

// Terminal reports whether no further progress will be made.
func (s ImportState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ImportProgress is the snapshot of a tracked import delivered to listeners.
type ImportProgress struct {
	ImportID string      `json:"import_id"`
	FileName string      `json:"file_name"`
	State    ImportState `json:"state"`
	Percent  int         `json:"percent"`
	Error    string      `json:"error,omitempty"` // set when State is StateFailed
}

// ImportResult is the final outcome of a tracked import.
// Stats is nil when the run failed before processing any row.
type ImportResult struct {
	ImportID string            `json:"import_id"`
	FileName string            `json:"file_name"`
	State    ImportState       `json:"state"`
	Stats    *ImportStatistics `json:"stats,omitempty"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration"`
}
