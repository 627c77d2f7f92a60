package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		column, dir string
		want        SortSpec
		wantErr     bool
	}{
		{"", "", DefaultSort, false},
		{"", "asc", SortSpec{Column: SortByCreatedAt}, false},
		{"name", "", SortSpec{Column: SortByName}, false},
		{"City", "DESC", SortSpec{Column: SortByCity, Desc: true}, false},
		{"postal_code", "", SortSpec{}, true},
		{"name", "sideways", SortSpec{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSortSpec(tt.column, tt.dir)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortSpec(%q, %q) error = %v, wantErr %v", tt.column, tt.dir, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortSpec(%q, %q) = %+v, want %+v", tt.column, tt.dir, got, tt.want)
		}
	}
}

func TestSortShipments(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []Shipment{
		{ID: "B", Name: "bo", City: "Turku", CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "A", Name: "Anna", City: "espoo", CreatedAt: t0},
		{ID: "C", Name: "anna", City: "Oulu", CreatedAt: t0.Add(time.Hour)},
	}

	ids := func(in []Shipment) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = s.ID
		}
		return out
	}

	tests := []struct {
		spec SortSpec
		want []string
	}{
		{DefaultSort, []string{"B", "C", "A"}},
		{SortSpec{Column: SortByCreatedAt}, []string{"A", "C", "B"}},
		{SortSpec{Column: SortByName}, []string{"A", "C", "B"}}, // stable for equal names
		{SortSpec{Column: SortByName, Desc: true}, []string{"B", "A", "C"}},
		{SortSpec{Column: SortByCity}, []string{"A", "C", "B"}},
		{SortSpec{}, []string{"B", "C", "A"}},
	}

	for _, tt := range tests {
		got := SortShipments(list, tt.spec)
		if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
			t.Errorf("SortShipments(%+v) mismatch (-want +got):\n%s", tt.spec, diff)
		}
	}

	if diff := cmp.Diff([]string{"B", "A", "C"}, ids(list)); diff != "" {
		t.Errorf("input was reordered (-want +got):\n%s", diff)
	}
}
