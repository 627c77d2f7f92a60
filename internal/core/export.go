package core

import (
	"strings"
	"time"
)

// ExportDateLayout formats the Date Created column.
const ExportDateLayout = "2006-01-02 15:04:05"

// ExportHeader is the first line of every export.
var ExportHeader = []string{
	"Shipment ID",
	"Recipient Name",
	"Company",
	"Street Address",
	"Postal Code",
	"City",
	"Full Address",
	"Date Created",
}

// TemplateFileName is the download name of the import template.
const TemplateFileName = "shipment-import-template.csv"

// TemplateCSV is an import file with the recognized header and one example row.
const TemplateCSV = "name,company,street,postal_code,city\n" +
	"Matti Meikäläinen,1234567-8,Mannerheimintie 1,00100,Helsinki\n"

// ExportFileName returns shipments-export-YYYY-MM-DD.csv for the given day.
func ExportFileName(t time.Time) string {
	return "shipments-export-" + t.Format("2006-01-02") + ".csv"
}

// ExportCSV renders shipments in the given order. Lines are joined by "\n"
// with no trailing newline. Dates are shown in loc (time.Local when nil).
func ExportCSV(shipments []Shipment, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	lines := make([]string, 0, len(shipments)+1)
	lines = append(lines, strings.Join(ExportHeader, ","))

	for _, s := range shipments {
		row := []string{
			s.ID,
			escapeCSV(s.Name),
			escapeCSV(s.Company),
			escapeCSV(s.Street),
			s.PostalCode,
			escapeCSV(s.City),
			escapeCSV(s.Destination),
			s.CreatedAt.In(loc).Format(ExportDateLayout),
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return strings.Join(lines, "\n")
}

// escapeCSV quotes values containing a comma, quote or newline.
func escapeCSV(value string) string {
	if !strings.ContainsAny(value, ",\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
