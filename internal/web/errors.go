package web

// errors.go turns service errors into responses.
//
// The technical error is logged with the request ID; the client only sees
// the mapped core.UserMessage. HTML fragment requests (HX-Request) get the
// ErrorAlert partial, everything else under /api gets JSON.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/freight/internal/core"
	"github.com/JonMunkholm/freight/internal/logging"
	"github.com/JonMunkholm/freight/internal/web/templates"
)

// errInvalidBody marks request payloads that could not be decoded.
var errInvalidBody = errors.New("invalid request body")

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errInvalidBody),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrFileTooLarge),
		errors.Is(err, core.ErrInvalidFileType),
		errors.Is(err, core.ErrEmptyImport):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrShipmentNotFound),
		errors.Is(err, core.ErrNoShipments),
		errors.Is(err, core.ErrImportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports),
		errors.Is(err, core.ErrImportRunning):
		return http.StatusConflict
	case errors.Is(err, core.ErrCorrectionFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor derives.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs err and answers with its user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if isFragment(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	body := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	// Field errors are shown as-is.
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		body.Error = verrs.Error()
	}
	if wantsJSON(r) {
		writeJSON(w, status, body)
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+")", status)
}

// isFragment reports whether the page script asked for an HTML fragment.
func isFragment(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
