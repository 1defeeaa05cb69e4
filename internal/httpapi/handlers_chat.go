package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ai-researcher/server/internal/agent/model"
	logx "github.com/ai-researcher/server/pkg/logger"
)

func (h *handlers) decodeChat(r *http.Request) (model.QueryInput, error) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return model.QueryInput{}, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return model.QueryInput{}, invalidRequestError("no message provided")
	}
	return model.QueryInput{ConversationID: req.SessionID, Query: req.Message}, nil
}

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeChat(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	res, err := h.runner.Invoke(r.Context(), in)
	if err != nil {
		logx.Ctx(r.Context()).Error().Err(err).Msg("Chat turn failed")
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newChatResponse(res))
}

// handleChatStream reports the turn as server-sent events. Errors after the
// stream has started arrive as an error event, not an HTTP status.
func (h *handlers) handleChatStream(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeChat(r)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errorCodeInternal, "streaming is unsupported by response writer")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := func(ev model.Event) {
		if err := writeSSEEvent(w, flusher, ev); err != nil {
			logx.Ctx(r.Context()).Debug().Err(err).Msg("Stream client went away")
		}
	}
	if _, err := h.runner.Stream(r.Context(), in, sink); err != nil {
		logx.Ctx(r.Context()).Error().Err(err).Msg("Streamed turn failed")
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
