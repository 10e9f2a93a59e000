package http

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

const (
	msgMalformed = "ledger data is malformed; fix it externally"
	msgPersist   = "could not save ledger"
	msgStale     = "ledger changed since it was loaded; reload and try again"
	msgInternal  = "internal error"
)

// clientIP returns the originating client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// statusFor maps a ledger or validation error to a status code and a
// user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrDescriptionTooLong):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "expense not found"
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return http.StatusConflict, msgStale
	case errors.Is(err, ledger.ErrMalformed):
		return http.StatusInternalServerError, msgMalformed
	case errors.Is(err, ledger.ErrPersist):
		return http.StatusInternalServerError, msgPersist
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
