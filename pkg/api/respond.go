package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/clients/aiclient"
	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/db"
)

// errBadRequest marks malformed request bodies
var errBadRequest = errors.New("bad request")

// errUnavailable marks features that are not configured on this server
var errUnavailable = errors.New("not configured")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, matchflow.ErrInvalidCommand),
		errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	case matchflow.IsPrecondition(err), errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, aiclient.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, aiclient.ErrInvalidCredential),
		errors.Is(err, aiclient.ErrBadPrompt),
		errors.Is(err, aiclient.ErrEmptyResponse):
		return http.StatusBadGateway
	}
	var statusErr *aiclient.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	} else {
		s.logger.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into dst, rejecting unknown fields
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}
