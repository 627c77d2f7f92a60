package core

// validation.go checks shipment fields before they are enriched and stored.
//
// Each field has a typed rule returning a FieldResult (normalized value or
// failure messages). validateFields composes the rules in field order, so
// import rows and form submissions share one set of checks:
//  1. ValidateRow: one parsed CSV row, errors rendered as "Row N: field: msg"
//  2. ValidateInput: a create/edit request, errors returned as ValidationErrors

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	businessIDHyphenated = regexp.MustCompile(`^\d{7}-\d$`)
	businessIDPlain      = regexp.MustCompile(`^\d{8}$`)
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is returned by ValidateInput when any field is invalid.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	return "invalid shipment: " + joinErrors(e)
}

// FieldResult is the outcome of one field rule: the normalized value when
// Messages is empty, otherwise every failed check.
type FieldResult struct {
	Value    string
	Messages []string
}

// OK reports whether the rule passed.
func (r FieldResult) OK() bool {
	return len(r.Messages) == 0
}

// FieldRule validates one field. present is false when the column is absent.
type FieldRule func(value string, present bool) FieldResult

type fieldRule struct {
	name string
	rule FieldRule
	set  func(*ShipmentInput, string)
}

var shipmentRules = []fieldRule{
	{"name", requiredText("Name is required"), func(in *ShipmentInput, v string) { in.Name = v }},
	{"company", BusinessID, func(in *ShipmentInput, v string) { in.Company = v }},
	{"street", requiredText("Street address is required"), func(in *ShipmentInput, v string) { in.Street = v }},
	{"postal_code", PostalCode, func(in *ShipmentInput, v string) { in.PostalCode = v }},
	{"city", requiredText("City is required"), func(in *ShipmentInput, v string) { in.City = v }},
}

func requiredText(message string) FieldRule {
	return func(value string, present bool) FieldResult {
		if !present {
			return FieldResult{Messages: []string{"Required"}}
		}
		if value == "" {
			return FieldResult{Messages: []string{message}}
		}
		return FieldResult{Value: value}
	}
}

// BusinessID accepts an empty value, DDDDDDD-D, or DDDDDDDD. The plain form
// is normalized by inserting the hyphen.
func BusinessID(value string, present bool) FieldResult {
	if !present || value == "" {
		return FieldResult{}
	}

	if strings.Contains(value, "-") {
		if !businessIDHyphenated.MatchString(value) {
			return FieldResult{Messages: []string{"Business ID must be in format 1234567-8 or 12345678"}}
		}
		return FieldResult{Value: value}
	}

	if !businessIDPlain.MatchString(value) {
		return FieldResult{Messages: []string{"Business ID must be in format 1234567-8 or 12345678"}}
	}
	return FieldResult{Value: value[:7] + "-" + value[7:]}
}

// PostalCode requires exactly five ASCII digits.
func PostalCode(value string, present bool) FieldResult {
	if !present {
		return FieldResult{Messages: []string{"Required"}}
	}
	if value == "" {
		return FieldResult{Messages: []string{"Postal code is required"}}
	}

	var msgs []string
	if len(value) != 5 {
		msgs = append(msgs, "Finnish postal code must be 5 digits")
	}
	if !allDigits(value) {
		msgs = append(msgs, "Postal code must contain only numbers")
	}
	if len(msgs) > 0 {
		return FieldResult{Messages: msgs}
	}
	return FieldResult{Value: value}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// validateFields applies every rule, reading values through lookup.
func validateFields(lookup func(name string) (string, bool)) (ShipmentInput, []ValidationError) {
	var (
		data ShipmentInput
		errs []ValidationError
	)

	for _, fr := range shipmentRules {
		value, present := lookup(fr.name)
		res := fr.rule(value, present)
		if !res.OK() {
			for _, msg := range res.Messages {
				errs = append(errs, ValidationError{Field: fr.name, Value: value, Message: msg})
			}
			continue
		}
		fr.set(&data, res.Value)
	}

	return data, errs
}

func joinErrors(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, ", ")
}

// RowResult is the tagged result of validating one import row.
type RowResult struct {
	Valid  bool
	Data   ShipmentInput     // normalized fields, set when Valid
	Errors []ValidationError // per-field failures
	Error  string            // "Row N: field: msg, ..." when not Valid
}

// ValidateRow validates one parsed row. It never panics: any failure inside
// the rules is reported as an invalid data format for that row.
func ValidateRow(row Row) (result RowResult) {
	defer func() {
		if r := recover(); r != nil {
			result = RowResult{Error: fmt.Sprintf("Row %d: Invalid data format", row.Line)}
		}
	}()

	data, errs := validateFields(func(name string) (string, bool) {
		v, ok := row.Fields[name]
		return v, ok
	})
	if len(errs) > 0 {
		return RowResult{
			Errors: errs,
			Error:  fmt.Sprintf("Row %d: %s", row.Line, joinErrors(errs)),
		}
	}
	return RowResult{Valid: true, Data: data}
}

// ValidateInput applies the row rules to a create or edit request. Values
// are trimmed first. The returned input carries the normalized company.
func ValidateInput(in ShipmentInput) (ShipmentInput, error) {
	values := map[string]string{
		"name":        strings.TrimSpace(in.Name),
		"company":     strings.TrimSpace(in.Company),
		"street":      strings.TrimSpace(in.Street),
		"postal_code": strings.TrimSpace(in.PostalCode),
		"city":        strings.TrimSpace(in.City),
	}

	data, errs := validateFields(func(name string) (string, bool) {
		return values[name], true
	})
	if len(errs) > 0 {
		return ShipmentInput{}, ValidationErrors(errs)
	}
	return data, nil
}
