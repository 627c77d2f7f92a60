package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/JonMunkholm/freight/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// heartbeatInterval keeps idle SSE connections open through proxies.
const heartbeatInterval = 30 * time.Second

// handleImport accepts a CSV upload and starts a background import.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.fail(w, r, fmt.Errorf("%w: %w", core.ErrFileTooLarge, err))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %w", errInvalidBody, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	importID, err := s.service.StartImport(r.Context(), header.Filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"import_id": importID})
}

// handleImportStatus returns the latest progress snapshot without waiting.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.GetImportProgress(chi.URLParam(r, "importID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleImportResult waits for the import to finish and returns its result.
// The page script gets the summary fragment instead of JSON.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.GetImportResult(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if isFragment(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportSummary(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

// handleImportProgress streams progress via Server-Sent Events. Reconnecting
// clients send Last-Event-ID (or ?lastEventId) and only get newer
// percentages.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	lastEventID := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastEventID, _ = strconv.Atoi(v)
	} else if v := r.URL.Query().Get("lastEventId"); v != "" {
		lastEventID, _ = strconv.Atoi(v)
	}

	progressCh, err := s.service.SubscribeProgress(chi.URLParam(r, "importID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			if progress.Percent <= lastEventID && !progress.State.Terminal() {
				continue
			}
			lastEventID = progress.Percent

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleEvents streams collection change signals so open pages refresh.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	changes, unsubscribe := s.service.SubscribeChanges()
	defer unsubscribe()

	flusher, ok := startSSE(w)
	if !ok {
		s.respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: {}\n\n", core.ChangeEvent)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// startSSE writes the event-stream headers.
func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return flusher, true
}
