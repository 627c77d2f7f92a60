// Package core provides the business logic for shipment management.
//
// # Error Codes Reference
//
// User-facing errors carry a code that users can quote to support.
// Codes are grouped by category:
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid shipment: one or more fields failed validation
//	         Action: Correct the listed fields and try again
//	VAL002 - Invalid sort: unknown sort column or direction
//	         Action: Sort by id, name, company, street, city or created_at
//	VAL003 - Invalid request: the request body could not be read
//	         Action: Send a JSON object with the shipment fields
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the CSV exceeds the upload limit
//	          Action: Split the file into smaller files
//	FILE002 - Invalid file type: the upload is not a CSV file
//	          Action: Please upload a CSV file
//	FILE003 - Empty import: no well-formed data rows were found
//	          Action: Download the template and check the header and columns
//	FILE004 - No file: no file was selected
//	          Action: Please select a CSV file to upload
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - System busy: another import is running
//	IMP002 - Import not found: unknown or expired import id
//	IMP003 - Import running: the importer is already busy
//
// # Storage Errors (STORE001-STORE099)
//
//	STORE001 - Storage unavailable: the shipment collection could not be read or written
//	STORE002 - Connection refused: the database is not reachable
//
// # City Correction Errors (CORR001-CORR099)
//
//	CORR001 - Correction failed: the city correction service returned an error
//	CORR002 - Correction unreachable: the service could not be contacted
//
// # Shipment Errors (SHP001-SHP099)
//
//	SHP001 - Shipment not found
//	SHP002 - No shipments stored
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// technical error.
//
// # Matching
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Otherwise the lower-cased error text is searched for the
// patterns below in order; the first match wins.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgInvalidShipment = UserMessage{
		Message: "Some shipment fields are invalid",
		Action:  "Correct the listed fields and try again",
		Code:    "VAL001",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgInvalidFileType = UserMessage{
		Message: "Invalid file type",
		Action:  "Please upload a CSV file",
		Code:    "FILE002",
	}
	msgEmptyImport = UserMessage{
		Message: "The CSV file is empty or has an invalid format.",
		Action:  "Download the template and check the header and columns",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgTooManyImports = UserMessage{
		Message: "Another import is in progress",
		Action:  "Please wait for it to finish and try again",
		Code:    "IMP001",
	}
	msgImportNotFound = UserMessage{
		Message: "Import not found",
		Action:  "The import may have expired. Please start a new import",
		Code:    "IMP002",
	}
	msgImportRunning = UserMessage{
		Message: "The importer is busy",
		Action:  "Please wait a moment and try again",
		Code:    "IMP003",
	}
	msgStoreUnavailable = UserMessage{
		Message: "Shipment storage is unavailable",
		Action:  "Please try again in a few moments",
		Code:    "STORE001",
	}
	msgCorrectionFailed = UserMessage{
		Message: "Failed to correct city name",
		Action:  "Check the city name or try again later",
		Code:    "CORR001",
	}
	msgShipmentNotFound = UserMessage{
		Message: "Shipment not found",
		Action:  "Refresh the list; it may have been deleted",
		Code:    "SHP001",
	}
	msgNoShipments = UserMessage{
		Message: "No shipments found in storage",
		Action:  "Create or import shipments first",
		Code:    "SHP002",
	}
	msgRequestCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgRequestTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Please try again later",
		Code:    "REQ002",
	}
)

// ErrNoFile, ErrFileTooLarge and ErrInvalidFileType reject an import upload
// before it starts.
var (
	ErrNoFile          = errors.New("no file provided")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidFileType = errors.New("invalid file type")
)

// ErrCorrectionFailed wraps every failure of the city correction step.
var ErrCorrectionFailed = errors.New("city correction failed")

// sentinelMessages is checked before the text patterns.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrEmptyImport, msgEmptyImport},
	{ErrNoFile, msgNoFile},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrInvalidFileType, msgInvalidFileType},
	{ErrTooManyImports, msgTooManyImports},
	{ErrImportNotFound, msgImportNotFound},
	{ErrImportRunning, msgImportRunning},
	{ErrShipmentNotFound, msgShipmentNotFound},
	{ErrNoShipments, msgNoShipments},
	{ErrCorrectionFailed, msgCorrectionFailed},
	{ErrStoreUnavailable, msgStoreUnavailable},
	{context.Canceled, msgRequestCancelled},
	{context.DeadlineExceeded, msgRequestTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"invalid shipment", msgInvalidShipment},
	{"invalid sort", UserMessage{
		Message: "Unknown sort order",
		Action:  "Sort by id, name, company, street, city or created_at",
		Code:    "VAL002",
	}},
	{"invalid request body", UserMessage{
		Message: "The request could not be read",
		Action:  "Send a JSON object with the shipment fields",
		Code:    "VAL003",
	}},
	{"file too large", msgFileTooLarge},
	{"request body too large", msgFileTooLarge},
	{"invalid file type", msgInvalidFileType},
	{"no file provided", msgNoFile},
	{"city correction", msgCorrectionFailed},
	{"correction service", UserMessage{
		Message: "City correction service is unreachable",
		Action:  "Check that the correction service is running",
		Code:    "CORR002",
	}},
	{"storage unavailable", msgStoreUnavailable},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "STORE002",
	}},
	{"context canceled", msgRequestCancelled},
	{"context deadline exceeded", msgRequestTimeout},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := fmt.Errorf("update: %w", ErrShipmentNotFound)
//	msg := MapError(err)
//	// msg.Code == "SHP001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return msgInvalidShipment
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
