package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/untoldecay/grns/internal/api"
)

// Symbolic error categories carried in the code response field.
const (
	codeInvalidArgument   = "invalid_argument"
	codeNotFound          = "not_found"
	codeConflict          = "conflict"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeResourceExhausted = "resource_exhausted"
	codeInternal          = "internal"
)

var (
	errUnauthorized = errors.New("missing or invalid API token")
	errForbidden    = errors.New("admin token required")
)

// apiError pairs an HTTP status with the symbolic and integer error codes
// the response body carries.
type apiError struct {
	status  int
	code    string
	errCode int
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return http.StatusText(e.status)
}

func (e *apiError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) *apiError {
	return badRequestCode(ErrCodeInvalidArgument, format, args...)
}

func badRequestCode(errCode int, format string, args ...any) *apiError {
	return &apiError{
		status:  http.StatusBadRequest,
		code:    codeInvalidArgument,
		errCode: errCode,
		err:     fmt.Errorf(format, args...),
	}
}

func notFoundCode(errCode int, format string, args ...any) *apiError {
	return &apiError{
		status:  http.StatusNotFound,
		code:    codeNotFound,
		errCode: errCode,
		err:     fmt.Errorf(format, args...),
	}
}

func conflictCode(errCode int, format string, args ...any) *apiError {
	return &apiError{
		status:  http.StatusConflict,
		code:    codeConflict,
		errCode: errCode,
		err:     fmt.Errorf(format, args...),
	}
}

func tooManyRequests(format string, args ...any) *apiError {
	return &apiError{
		status:  http.StatusTooManyRequests,
		code:    codeResourceExhausted,
		errCode: ErrCodeResourceExhausted,
		err:     fmt.Errorf(format, args...),
	}
}

func internalError(errCode int, err error) *apiError {
	return &apiError{
		status:  http.StatusInternalServerError,
		code:    codeInternal,
		errCode: errCode,
		err:     err,
	}
}

// writeServiceError maps a service-layer error to an HTTP response. Errors
// that are not apiError become opaque 500s.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		s.writeError(w, r, ae)
		return
	}
	s.writeError(w, r, internalError(ErrCodeInternal, err))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, ae *apiError) {
	status := ae.status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	errCode := ae.errCode
	if errCode == 0 {
		errCode = defaultErrorCodeByStatus(status)
	}
	code := ae.code
	if code == "" {
		code = codeInternal
	}

	msg := ae.Error()
	if status >= 500 {
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", msg),
		)
		// Internal details stay in the log.
		msg = "internal server error"
	}

	writeJSON(w, status, api.ErrorResponse{
		Error:     msg,
		Code:      code,
		ErrorCode: errCode,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
}

// decodeJSON reads a JSON body with a byte cap, mapping oversize and
// malformed payloads to the stable validation codes.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) *apiError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &apiError{
				status:  http.StatusRequestEntityTooLarge,
				code:    codeInvalidArgument,
				errCode: ErrCodeRequestTooLarge,
				err:     fmt.Errorf("request body exceeds %d bytes", maxErr.Limit),
			}
		}
		return badRequestCode(ErrCodeInvalidJSON, "invalid JSON body: %v", err)
	}
	return nil
}
