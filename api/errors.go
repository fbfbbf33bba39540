package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/partner-ledger/ledger"
)

// =============================================================================
// ERROR MAPPING
// =============================================================================

// errBadRequest marks malformed requests caught before reaching the ledger.
var errBadRequest = errors.New("bad request")

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	var verr validator.ValidationErrors
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsConflict(err), errors.Is(err, ErrAlreadySeeded):
		return http.StatusConflict
	case ledger.IsClientError(err), errors.Is(err, errBadRequest), errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Internal errors are logged
// and their details hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(message,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// REQUEST DECODING
// =============================================================================

// decode reads a JSON body into dst and runs its validator tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return h.validate.Struct(dst)
}

// parseDate reads a YYYY-MM-DD value. Empty means the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (use YYYY-MM-DD)", errBadRequest, s)
	}
	return t, nil
}

// period reads ?from=&to= and defaults to the current calendar month.
// A single bound takes the month default for the other.
func (h *Handler) period(r *http.Request) (ledger.Period, error) {
	month := ledger.MonthOf(h.now())
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		return ledger.Period{}, err
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return ledger.Period{}, err
	}
	if from.IsZero() {
		from = month.Start
	}
	if to.IsZero() {
		to = month.End
	}
	return ledger.NewPeriod(from, to)
}

// intParam reads a positive integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}
