package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/JonMunkholm/freight/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleShipmentsPage renders the shipments page, or only the table when
// the page script refreshes it.
func (s *Server) handleShipmentsPage(w http.ResponseWriter, r *http.Request) {
	spec, err := sortFromQuery(r)
	if err != nil {
		spec = core.DefaultSort
	}

	list, err := s.service.List(r.Context(), spec)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	params := templates.ShipmentsParams{
		Shipments: list,
		Sort:      spec,
		Location:  s.cfg.Export.Location(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isFragment(r) {
		templates.ShipmentsTable(params).Render(r.Context(), w)
		return
	}
	templates.ShipmentsPage(params).Render(r.Context(), w)
}

// handleHealth reports whether the store can be read.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	imports := s.service.ImportStatus()
	if err := s.service.Ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"error":   core.MapError(err).Message,
			"imports": imports,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"imports": imports,
	})
}

func (s *Server) handleListShipments(w http.ResponseWriter, r *http.Request) {
	spec, err := sortFromQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	list, err := s.service.List(r.Context(), spec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var in core.ShipmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	sh, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/shipments/"+sh.ID)
	writeJSON(w, http.StatusCreated, sh)
}

func (s *Server) handleUpdateShipment(w http.ResponseWriter, r *http.Request) {
	var in core.ShipmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}

	sh, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleDeleteShipment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// handleDeleteShipments removes the selected shipments.
func (s *Server) handleDeleteShipments(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	n, err := s.service.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// handleExport downloads the selected shipments (all without ?ids) as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Export(r.Context(), parseIDs(r, "ids"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeCSV(w, s.service.ExportFileName(), data)
}

// handleTemplate downloads the import template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	writeCSV(w, core.TemplateFileName, core.TemplateCSV)
}

type correctCityRequest struct {
	City string `json:"city"`
}

func (s *Server) handleCorrectCity(w http.ResponseWriter, r *http.Request) {
	var req correctCityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	corr, err := s.service.CorrectCity(r.Context(), req.City)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, corr)
}

func writeCSV(w http.ResponseWriter, filename, data string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write([]byte(data))
}
