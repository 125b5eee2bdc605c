package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"lexvault/internal/app"
	"lexvault/internal/chat"
	"lexvault/internal/docstore"
	"lexvault/internal/extract/docdata"
	"lexvault/internal/formfill"
	"lexvault/internal/httputil"
	"lexvault/internal/llm"
	"lexvault/internal/queue"
	"lexvault/internal/retrieval"
)

func main() {
	deps, err := app.Build("gateway")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	retriever := retrieval.New(deps.Embedder, deps.Index, deps.Log)
	chatSvc := chat.New(retriever, deps.LLM, deps.Cache, chat.Options{
		MaxContextChunks: deps.Config.MaxContextChunk,
		CacheTTL:         time.Duration(deps.Config.CacheTTL) * time.Second,
	}, deps.Log)
	filler := formfill.New(retriever, deps.LLM, deps.Config.MaxContextChunk, deps.Log)

	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents/{id}/index", enqueueHandler(deps, queue.NewIndexTask))
	r.Delete("/api/documents/{id}/index", enqueueHandler(deps, queue.NewDeleteIndexTask))
	r.Get("/api/documents/{id}/data", extractDataHandler(deps))
	r.Get("/api/documents/{id}/category", categorizeHandler(deps))
	r.Post("/api/retrieve", retrieveHandler(deps, retriever))
	r.Post("/api/chat", chatHandler(deps, chatSvc))
	r.Post("/api/forms/fill", fillHandler(deps, filler))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

// enqueueHandler accepts the request and hands the document to the indexer
// through the queue; the caller polls the document's indexed flag for
// completion.
func enqueueHandler(deps app.Deps, makeTask func(int64) queue.Task) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || documentID <= 0 {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}

		task := makeTask(documentID)
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue task; please retry", err, http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"task_id":     task.ID,
			"document_id": documentID,
			"status":      "queued",
		})
	}
}

// documentText loads a document and extracts its text for the on-demand
// analysis endpoints.
func documentText(r *http.Request, deps app.Deps) (string, int, error) {
	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || documentID <= 0 {
		return "", http.StatusBadRequest, fmt.Errorf("invalid document id")
	}
	doc, err := deps.Docs.GetDocument(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return "", http.StatusNotFound, err
		}
		return "", http.StatusInternalServerError, err
	}
	extraction, err := deps.Extractor.Extract(r.Context(), doc.FilePath, doc.MimeType)
	if err != nil {
		return "", http.StatusInternalServerError, err
	}
	return extraction.Text, http.StatusOK, nil
}

func extractDataHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, status, err := documentText(r, deps)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to extract document data", err, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, docdata.Extract(text))
	}
}

func categorizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, status, err := documentText(r, deps)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to categorize document", err, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, docdata.Categorize(text))
	}
}

type retrieveRequest struct {
	Query       string  `json:"query" validate:"required"`
	OfficeID    int64   `json:"office_id" validate:"required,gt=0"`
	CaseID      *int64  `json:"case_id"`
	DocumentIDs []int64 `json:"document_ids"`
	TopK        int     `json:"top_k"`
}

func (req retrieveRequest) scope() retrieval.Scope {
	return retrieval.Scope{OfficeID: req.OfficeID, CaseID: req.CaseID, DocumentIDs: req.DocumentIDs}
}

func retrieveHandler(deps app.Deps, retriever *retrieval.Retriever) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req retrieveRequest
		if err := httputil.DecodeValid(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		res, err := retriever.Retrieve(r.Context(), req.Query, req.scope(), req.TopK)
		if err != nil {
			httputil.Fail(deps.Log, w, "retrieval failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"chunks":       res.Chunks,
			"document_ids": res.DocumentIDs,
		})
	}
}

type chatRequest struct {
	Message     string        `json:"message" validate:"required"`
	History     []llm.Message `json:"history"`
	OfficeID    int64         `json:"office_id" validate:"required,gt=0"`
	CaseID      *int64        `json:"case_id"`
	DocumentIDs []int64       `json:"document_ids"`
	Stream      bool          `json:"stream"`
}

func chatHandler(deps app.Deps, svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := httputil.DecodeValid(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		chatReq := chat.Request{
			Message: req.Message,
			History: req.History,
			Scope:   retrieval.Scope{OfficeID: req.OfficeID, CaseID: req.CaseID, DocumentIDs: req.DocumentIDs},
		}

		if req.Stream {
			streamChat(deps.Log, w, r, svc, chatReq)
			return
		}

		resp, err := svc.Ask(r.Context(), chatReq)
		if err != nil {
			httputil.Fail(deps.Log, w, "chat failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// streamChat sends the answer as server-sent events: one "delta" event per
// model delta, then a final "done" event carrying the sources.
func streamChat(log *slog.Logger, w http.ResponseWriter, r *http.Request, svc *chat.Service, req chat.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Fail(log, w, "streaming unsupported", nil, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	resp, err := svc.AskStream(r.Context(), req, func(delta string) error {
		writeSSE(w, "delta", map[string]string{"text": delta})
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.Error("chat stream failed", "err", err)
		writeSSE(w, "error", map[string]string{"message": "chat failed"})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", map[string]any{"answer": resp.Answer, "sources": resp.Sources})
	flusher.Flush()
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

type fillRequest struct {
	Fields      []formfill.Field `json:"fields" validate:"required,min=1,dive"`
	OfficeID    int64            `json:"office_id" validate:"required,gt=0"`
	CaseID      *int64           `json:"case_id"`
	DocumentIDs []int64          `json:"document_ids"`
}

func fillHandler(deps app.Deps, filler *formfill.Filler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req fillRequest
		if err := httputil.DecodeValid(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		res, err := filler.Fill(r.Context(), formfill.Request{
			Fields: req.Fields,
			Scope:  retrieval.Scope{OfficeID: req.OfficeID, CaseID: req.CaseID, DocumentIDs: req.DocumentIDs},
		})
		if err != nil {
			httputil.Fail(deps.Log, w, "form fill failed", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}
