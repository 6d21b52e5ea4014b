package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// genericErrorMessage is all clients learn about infrastructure failures.
const genericErrorMessage = "Something went wrong. Please try again."

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to 4xx responses with a short display
// message. Anything else is logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if msg, ok := attendance.DisplayMessage(err); ok {
		writeJSON(w, statusFor(err), errorResponse{Error: msg})
		return
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	case errors.Is(err, errBadRequest),
		errors.Is(err, meeting.ErrInvalidInput),
		errors.Is(err, user.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericErrorMessage})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, attendance.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, attendance.ErrMeetingNotFound),
		errors.Is(err, attendance.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrRoomClosed):
		return http.StatusGone
	case errors.Is(err, attendance.ErrVerificationRequired):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// decodeBody reads an optional JSON body into out. An empty body leaves out
// untouched.
func decodeBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errBadRequestf("invalid JSON body")
	}
	return nil
}

func errBadRequestf(msg string) error {
	return &badRequestError{msg: msg}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func (e *badRequestError) Unwrap() error { return errBadRequest }
