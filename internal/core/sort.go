package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Sortable shipment columns.
const (
	SortByID        = "id"
	SortByName      = "name"
	SortByCompany   = "company"
	SortByStreet    = "street"
	SortByCity      = "city"
	SortByCreatedAt = "created_at"
)

// SortSpec orders a shipment listing.
type SortSpec struct {
	Column string
	Desc   bool
}

// DefaultSort lists the newest shipments first.
var DefaultSort = SortSpec{Column: SortByCreatedAt, Desc: true}

// ParseSortSpec builds a SortSpec from query values. An empty column gives
// DefaultSort; dir is "asc" or "desc" (default asc for explicit columns).
func ParseSortSpec(column, dir string) (SortSpec, error) {
	column = strings.ToLower(strings.TrimSpace(column))
	dir = strings.ToLower(strings.TrimSpace(dir))

	if column == "" {
		spec := DefaultSort
		if dir == "asc" {
			spec.Desc = false
		}
		return spec, nil
	}

	switch column {
	case SortByID, SortByName, SortByCompany, SortByStreet, SortByCity, SortByCreatedAt:
	default:
		return SortSpec{}, fmt.Errorf("invalid sort column: %q", column)
	}

	switch dir {
	case "", "asc":
		return SortSpec{Column: column}, nil
	case "desc":
		return SortSpec{Column: column, Desc: true}, nil
	default:
		return SortSpec{}, fmt.Errorf("invalid sort direction: %q", dir)
	}
}

// SortShipments returns a sorted copy. Text columns compare case-insensitively;
// equal keys keep their stored order.
func SortShipments(shipments []Shipment, spec SortSpec) []Shipment {
	out := slices.Clone(shipments)
	if spec.Column == "" {
		spec = DefaultSort
	}

	compare := func(a, b Shipment) int {
		switch spec.Column {
		case SortByCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt)
		case SortByID:
			return cmp.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
		case SortByName:
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByCompany:
			return cmp.Compare(strings.ToLower(a.Company), strings.ToLower(b.Company))
		case SortByStreet:
			return cmp.Compare(strings.ToLower(a.Street), strings.ToLower(b.Street))
		case SortByCity:
			return cmp.Compare(strings.ToLower(a.City), strings.ToLower(b.City))
		}
		return 0
	}

	slices.SortStableFunc(out, func(a, b Shipment) int {
		if spec.Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}
