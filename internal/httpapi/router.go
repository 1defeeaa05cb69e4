package httpapi

import (
	"context"
	"net/http"
	"os"

	"github.com/ai-researcher/server/internal/agent/model"
)

// DefaultMaxRequestBodyBytes caps JSON request bodies.
const DefaultMaxRequestBodyBytes int64 = 1 << 20

// TurnRunner runs turns and owns conversation history.
type TurnRunner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
	Stream(ctx context.Context, in model.QueryInput, sink model.EventSink) (*model.TurnResult, error)
	Transcript(ctx context.Context, conversationID string) ([]model.TranscriptEntry, error)
	Clear(ctx context.Context, conversationID string) error
}

// ArtifactStore serves compiled documents by file name.
type ArtifactStore interface {
	OpenArtifact(name string) (*os.File, error)
}

type handlers struct {
	runner       TurnRunner
	artifacts    ArtifactStore
	maxBodyBytes int64
}

func NewRouter(runner TurnRunner, artifacts ArtifactStore) http.Handler {
	h := &handlers{
		runner:       runner,
		artifacts:    artifacts,
		maxBodyBytes: DefaultMaxRequestBodyBytes,
	}

	limitBody := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chat", limitBody(http.HandlerFunc(h.handleChat)))
	mux.Handle("POST /chat/stream", limitBody(http.HandlerFunc(h.handleChatStream)))
	mux.Handle("POST /clear", limitBody(http.HandlerFunc(h.handleClear)))
	mux.HandleFunc("GET /history", h.handleHistory)
	mux.HandleFunc("GET /download/{filename}", h.handleDownload)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return chain(logRequests, recoverPanics)(mux)
}

type middleware func(http.Handler) http.Handler

func chain(middlewares ...middleware) middleware {
	return func(next http.Handler) http.Handler {
		wrapped := next
		for i := len(middlewares) - 1; i >= 0; i-- {
			wrapped = middlewares[i](wrapped)
		}
		return wrapped
	}
}
