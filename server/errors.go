package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rushteam/admitkit/core"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Module string `json:"module,omitempty"`
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch {
	case core.IsUnparsableInput(err):
		return http.StatusBadRequest
	case core.IsMissingFeature(err):
		return http.StatusUnprocessableEntity
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsModelInference(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error(), Code: "INTERNAL"}
	if de := core.AsDomainError(err); de != nil {
		resp.Code = de.Code
		resp.Module = de.Module
	}
	log := s.logger.With(
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Warn("request rejected")
	}
	writeJSON(w, status, resp)
}
