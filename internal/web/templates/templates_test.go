package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestErrorAlert_Escapes(t *testing.T) {
	out := render(t, ErrorAlert(`<b>bad</b>`, "Try again", "ERR000"))

	if strings.Contains(out, "<b>") {
		t.Errorf("message not escaped: %s", out)
	}
	for _, want := range []string{"&lt;b&gt;bad&lt;/b&gt;", "Try again", "Code: ERR000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestShipmentsTable(t *testing.T) {
	conf := 0.876
	p := ShipmentsParams{
		Shipments: []core.Shipment{{
			ID:            "A1B2C3D4",
			Name:          `O'Brien & Sons`,
			Street:        "Mannerheimintie 1",
			PostalCode:    "00100",
			City:          "helsinki",
			CorrectedCity: "Helsinki",
			CreatedAt:     time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			Confidence:    &conf,
		}},
		Sort: core.SortSpec{Column: core.SortByName},
	}

	out := render(t, ShipmentsTable(p))

	for _, want := range []string{
		`data-id="A1B2C3D4"`,
		"O&#39;Brien &amp; Sons",
		"2024-03-15 10:30:00",
		"88%",
		`href="/?dir=desc&amp;sort=name"`,
		`href="/?dir=asc&amp;sort=city"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q", want)
		}
	}
}

func TestShipmentsTable_Empty(t *testing.T) {
	out := render(t, ShipmentsTable(ShipmentsParams{}))
	if !strings.Contains(out, "No shipments yet") {
		t.Errorf("empty table message missing: %s", out)
	}
}

func TestShipmentsPage_SubscribesToChanges(t *testing.T) {
	out := render(t, ShipmentsPage(ShipmentsParams{}))
	for _, want := range []string{"<!DOCTYPE html>", `action="/api/import"`, `"shipments-updated"`} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestImportSummary(t *testing.T) {
	res := &core.ImportResult{
		State: core.StateCompleted,
		Stats: &core.ImportStatistics{
			Total: 3, Successful: 2, Failed: 1,
			Errors: []core.ImportRowError{{Row: 3, Message: "Row 3: postal_code: Finnish postal code must be 5 digits"}},
		},
	}
	out := render(t, ImportSummary(res))
	for _, want := range []string{"outcome-partial", "Import partially successful", "2 of 3", "Row 3: postal_code"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q: %s", want, out)
		}
	}

	failed := render(t, ImportSummary(&core.ImportResult{State: core.StateFailed, Error: core.ErrEmptyImport.Error()}))
	if !strings.Contains(failed, "The CSV file is empty or has an invalid format.") {
		t.Errorf("failed summary missing error: %s", failed)
	}
}

func TestFormatConfidence(t *testing.T) {
	if got := FormatConfidence(nil); got != "-" {
		t.Errorf("FormatConfidence(nil) = %q, want -", got)
	}
	one := 1.0
	if got := FormatConfidence(&one); got != "100%" {
		t.Errorf("FormatConfidence(1) = %q, want 100%%", got)
	}
}
