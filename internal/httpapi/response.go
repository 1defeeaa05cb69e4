package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ai-researcher/server/internal/agent/model"
	errx "github.com/ai-researcher/server/internal/core/error"
	"github.com/ai-researcher/server/internal/render"
)

const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeTooLarge       = "request_too_large"
	errorCodeNotFound       = "not_found"
	errorCodeTurnFailed     = "turn_failed"
	errorCodeTimeout        = "timeout"
	errorCodeUpstream       = "upstream_error"
	errorCodeInternal       = "internal_error"
)

var (
	errInvalidRequest = errors.New("invalid request")
	errEmptyBody      = fmt.Errorf("%w: request body is required", errInvalidRequest)
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response     string   `json:"response"`
	ToolCalls    []string `json:"tool_calls"`
	PDFAvailable bool     `json:"pdf_available"`
	PDFFilename  string   `json:"pdf_filename,omitempty"`
	SessionID    string   `json:"session_id"`
	TurnID       string   `json:"turn_id"`
	CostUSD      float64  `json:"cost_usd,omitempty"`
}

type historyResponse struct {
	SessionID string                  `json:"session_id"`
	Messages  []model.TranscriptEntry `json:"messages"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func newChatResponse(res *model.TurnResult) chatResponse {
	return chatResponse{
		Response:     res.Answer,
		ToolCalls:    res.ToolCalls,
		PDFAvailable: res.ArtifactFilename != "",
		PDFFilename:  res.ArtifactFilename,
		SessionID:    res.ConversationID,
		TurnID:       res.TurnID,
		CostUSD:      res.CostUSD,
	}
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code := mapError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = errx.SystemErrorMessage
	}
	writeError(w, status, code, message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiErrorResponse{
		Error: apiError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errEmptyBody
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errx.New(err, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return invalidRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidRequestError("request body must contain exactly one JSON object")
	}
	return nil
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidRequest), errors.Is(err, model.ErrEmptyQuery):
		return http.StatusBadRequest, errorCodeInvalidRequest
	case errors.Is(err, render.ErrArtifactNotFound):
		return http.StatusNotFound, errorCodeNotFound
	case errors.Is(err, model.ErrIterationLimit), errors.Is(err, model.ErrUnknownTool):
		return http.StatusUnprocessableEntity, errorCodeTurnFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorCodeTimeout
	}

	switch status := errx.StatusOf(err); status {
	case http.StatusBadRequest:
		return status, errorCodeInvalidRequest
	case http.StatusRequestEntityTooLarge:
		return status, errorCodeTooLarge
	case http.StatusNotFound:
		return status, errorCodeNotFound
	case http.StatusUnprocessableEntity:
		return status, errorCodeTurnFailed
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return status, errorCodeUpstream
	case http.StatusGatewayTimeout:
		return status, errorCodeTimeout
	default:
		return http.StatusInternalServerError, errorCodeInternal
	}
}

func invalidRequestError(message string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, message)
}
