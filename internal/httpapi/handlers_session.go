package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ai-researcher/server/internal/agent/model"
	logx "github.com/ai-researcher/server/pkg/logger"
)

func sessionKey(id string) string {
	if id = strings.TrimSpace(id); id == "" {
		return model.DefaultConversationID
	}
	return id
}

func (h *handlers) handleClear(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeMappedError(w, err)
		return
	}
	id := sessionKey(req.SessionID)
	if err := h.runner.Clear(r.Context(), id); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "cleared"})
}

func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := sessionKey(r.URL.Query().Get("session_id"))
	entries, err := h.runner.Transcript(r.Context(), id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Messages: entries})
}

func (h *handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	f, err := h.artifacts.OpenArtifact(name)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeMappedError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
	logx.Ctx(r.Context()).Debug().Str("filename", name).Int64("bytes", info.Size()).Msg("Artifact served")
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
