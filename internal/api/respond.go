// internal/api/respond.go
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "icfes-recommender/internal/common/errors"
	"icfes-recommender/internal/common/validation"
)

// maxBodyBytes bounds request bodies; a full batch fits comfortably.
const maxBodyBytes = 4 << 20

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details string                       `json:"details,omitempty"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("failed to marshal JSON response", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write JSON response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// respondError answers with the status mapped from the error code. Server
// side failures are logged; client errors are not.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.FromError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"path":    r.URL.Path,
			"method":  r.Method,
			"code":    stdErr.Code,
			"details": stdErr.Details,
		})
	}

	s.respondJSON(w, status, ErrorResponse{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	})
}

func (s *Server) respondValidation(w http.ResponseWriter, result *validation.ValidationResult) {
	s.respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    string(apperrors.ErrCodeInvalidRequest),
		Message: "Datos de entrada inválidos",
		Details: result.Summary(),
		Errors:  result.Errors,
	})
}

// readValidated reads the body and checks it against validator. It writes
// the error answer itself and returns false when the request is rejected.
func (s *Server) readValidated(w http.ResponseWriter, r *http.Request, validator *validation.SchemaValidator) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, r, apperrors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err)))
		return nil, false
	}

	if result := validator.ValidateJSON(raw); !result.Valid {
		s.respondValidation(w, result)
		return nil, false
	}
	return raw, true
}

// decode unmarshals an already validated body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		s.respondError(w, r, apperrors.NewInvalidRequestError(fmt.Sprintf("decode body: %v", err)))
		return false
	}
	return true
}

// withMessage keeps the error code but replaces the user-facing message.
func withMessage(err error, message string) *apperrors.StandardError {
	stdErr := *apperrors.FromError(err)
	stdErr.Message = message
	return &stdErr
}
