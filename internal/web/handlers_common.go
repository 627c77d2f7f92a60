package web

// handlers_common.go holds request parsing and response shaping shared by
// the handlers.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/freight/internal/core"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads one JSON object into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON object", errInvalidBody)
	}
	return nil
}

// parseIDs reads a comma-separated id list from the query parameter name.
func parseIDs(r *http.Request, name string) []string {
	var ids []string
	for _, v := range r.URL.Query()[name] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// sortFromQuery reads ?sort=&dir=.
func sortFromQuery(r *http.Request) (core.SortSpec, error) {
	q := r.URL.Query()
	return core.ParseSortSpec(q.Get("sort"), q.Get("dir"))
}

// ImportResultResponse is the JSON form of a finished import.
type ImportResultResponse struct {
	ImportID    string                 `json:"import_id"`
	FileName    string                 `json:"file_name"`
	State       core.ImportState       `json:"state"`
	Outcome     core.ImportOutcome     `json:"outcome,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Stats       *core.ImportStatistics `json:"stats,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    string                 `json:"duration"`
}

// toResponse converts an ImportResult to its JSON form, adding the
// notification text for completed runs.
func toResponse(res *core.ImportResult) ImportResultResponse {
	out := ImportResultResponse{
		ImportID: res.ImportID,
		FileName: res.FileName,
		State:    res.State,
		Stats:    res.Stats,
		Error:    res.Error,
		Duration: res.Duration.String(),
	}
	if res.Stats != nil {
		out.Outcome = res.Stats.Outcome()
		out.Title = res.Stats.Title()
		out.Description = res.Stats.Description()
	}
	return out
}
