package http //nolint:testpackage // Exercises handlers against the unexported session state

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptlab/internal/analytics"
	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/export"
	"github.com/davidbz/promptlab/internal/history"
	"github.com/davidbz/promptlab/internal/provider/echo"
	"github.com/davidbz/promptlab/internal/provider/registry"
)

func newTestHandler(t *testing.T) (*Handler, *history.Store) {
	t.Helper()

	reg := registry.NewRegistry()
	require.NoError(t, reg.Register(context.Background(), echo.NewProvider()))

	store := history.NewStore(history.NewMemoryStorage())
	sessions := NewSessionManager(reg, nil, store, nil, nil, 30*time.Second, time.Millisecond)
	comparison := domain.NewComparisonOrchestrator(reg, analytics.NewHeuristicScorer(), nil)
	exports := export.NewDispatcher(nil)

	return NewHandler(sessions, comparison, store, exports), store
}

func postJSON(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestHandleGenerate(t *testing.T) {
	t.Run("should stream deltas and a terminal result event", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := domain.GenerationRequest{
			UserPrompt: "hello playground",
			Provider:   "echo",
			Model:      "echo4",
		}
		httpReq := httptest.NewRequest(http.MethodPost, "/v1/generate", postJSON(t, req))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, httpReq)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		body := w.Body.String()
		require.Contains(t, body, "hello")
		require.Contains(t, body, "event: result")
		require.NotContains(t, body, "event: error")
	})

	t.Run("should reject invalid JSON", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		httpReq := httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader("invalid json"))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, httpReq)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject an empty prompt before streaming", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := domain.GenerationRequest{Provider: "echo", Model: "echo4"}
		httpReq := httptest.NewRequest(http.MethodPost, "/v1/generate", postJSON(t, req))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, httpReq)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotContains(t, w.Body.String(), "event:")
	})
}

func TestHandleGenerationState(t *testing.T) {
	handler, _ := newTestHandler(t)

	genReq := domain.GenerationRequest{
		UserPrompt: "state check",
		Provider:   "echo",
		Model:      "echo4",
	}
	w := httptest.NewRecorder()
	handler.HandleGenerate(w, httptest.NewRequest(http.MethodPost, "/v1/generate", postJSON(t, genReq)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.HandleGenerationState(w, httptest.NewRequest(http.MethodGet, "/v1/generate/state", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var state generationStateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
	require.Equal(t, "succeeded", state.Phase)
	require.Equal(t, "state check", state.Displayed)
}

func TestHandleSelectCandidate(t *testing.T) {
	t.Run("should reject an out of range index", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		httpReq := httptest.NewRequest(http.MethodPost, "/v1/generate/select",
			postJSON(t, selectRequest{Index: 7}))
		w := httptest.NewRecorder()

		handler.HandleSelectCandidate(w, httpReq)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should swap the displayed candidate", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		genReq := domain.GenerationRequest{
			UserPrompt:     "variants please",
			Provider:       "echo",
			Model:          "echo4",
			CandidateCount: 3,
		}
		w := httptest.NewRecorder()
		handler.HandleGenerate(w, httptest.NewRequest(http.MethodPost, "/v1/generate", postJSON(t, genReq)))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.HandleSelectCandidate(w, httptest.NewRequest(http.MethodPost, "/v1/generate/select",
			postJSON(t, selectRequest{Index: 2})))

		require.Equal(t, http.StatusOK, w.Code)

		var resp selectResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, 2, resp.SelectedIndex)
		require.Equal(t, "echo 3: variants please", resp.Displayed)
	})
}

func TestHandleCompare(t *testing.T) {
	t.Run("should reject fewer than two models", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := domain.ComparisonRequest{
			Prompt: "compare me",
			Models: []domain.ModelRef{{Provider: "echo", Model: "echo4"}},
		}
		w := httptest.NewRecorder()

		handler.HandleCompare(w, httptest.NewRequest(http.MethodPost, "/v1/compare", postJSON(t, req)))

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should return per-model results with a ranking", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := domain.ComparisonRequest{
			Prompt: "compare me",
			Models: []domain.ModelRef{
				{Provider: "echo", Model: "echo4"},
				{Provider: "echo", Model: "echo4"},
			},
		}
		w := httptest.NewRecorder()

		handler.HandleCompare(w, httptest.NewRequest(http.MethodPost, "/v1/compare", postJSON(t, req)))

		require.Equal(t, http.StatusOK, w.Code)

		var resp compareResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.PerModelResults, 2)
		require.Len(t, resp.Ranked, 2)
		require.Equal(t, 1, resp.Ranked[0].Rank)
		require.NotEmpty(t, resp.Recommendations)
	})
}

func TestHandleLanguage_NotConfigured(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleLanguageInput(w, httptest.NewRequest(http.MethodPost, "/v1/language",
		postJSON(t, languageInputRequest{Text: "bonjour"})))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	handler.HandleLanguageState(w, httptest.NewRequest(http.MethodGet, "/v1/language", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleHistory(t *testing.T) {
	handler, store := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, domain.PromptHistoryEntry{ID: "h1", UserPrompt: "first", Type: domain.EntryGenerate}))
	require.NoError(t, store.Add(ctx, domain.PromptHistoryEntry{ID: "h2", UserPrompt: "second", Type: domain.EntryGenerate}))

	t.Run("should list entries newest first", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleHistoryList(w, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var entries []domain.PromptHistoryEntry
		require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
		require.Len(t, entries, 2)
		require.Equal(t, "h2", entries[0].ID)
	})

	t.Run("should filter by query", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleHistoryList(w, httptest.NewRequest(http.MethodGet, "/v1/history?q=first", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var entries []domain.PromptHistoryEntry
		require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
		require.Len(t, entries, 1)
		require.Equal(t, "h1", entries[0].ID)
	})

	t.Run("should remove one entry by id", func(t *testing.T) {
		httpReq := httptest.NewRequest(http.MethodDelete, "/v1/history/h1", nil)
		httpReq.SetPathValue("id", "h1")
		w := httptest.NewRecorder()

		handler.HandleHistoryRemove(w, httpReq)

		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("should return 404 for an unknown id", func(t *testing.T) {
		httpReq := httptest.NewRequest(http.MethodDelete, "/v1/history/missing", nil)
		httpReq.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.HandleHistoryRemove(w, httpReq)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should clear the history", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleHistoryClear(w, httptest.NewRequest(http.MethodDelete, "/v1/history", nil))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = httptest.NewRecorder()
		handler.HandleHistoryList(w, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

		var entries []domain.PromptHistoryEntry
		require.NoError(t, json.NewDecoder(w.Body).Decode(&entries))
		require.Empty(t, entries)
	})
}

func TestHandleExport(t *testing.T) {
	t.Run("should reject an export with no content", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := exportRequest{Format: export.FormatMarkdown, Payload: export.Payload{UserPrompt: "p"}}
		w := httptest.NewRecorder()

		handler.HandleExport(w, httptest.NewRequest(http.MethodPost, "/v1/export", postJSON(t, req)))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "no content to export")
	})

	t.Run("should return a markdown attachment", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := exportRequest{
			Format: export.FormatMarkdown,
			Payload: export.Payload{
				UserPrompt: "write a haiku",
				Content:    "leaves fall in autumn",
			},
		}
		w := httptest.NewRecorder()

		handler.HandleExport(w, httptest.NewRequest(http.MethodPost, "/v1/export", postJSON(t, req)))

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, `attachment; filename="generated_content.markdown"`, w.Header().Get("Content-Disposition"))
		require.Contains(t, w.Body.String(), "leaves fall in autumn")
	})
}

func TestHandleHealth(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Equal(t, "healthy", response["status"])
}
