package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/export"
	"github.com/davidbz/promptlab/internal/history"
	"github.com/davidbz/promptlab/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	sessions   *SessionManager
	comparison *domain.ComparisonOrchestrator
	history    *history.Store
	exports    *export.Dispatcher
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(
	sessions *SessionManager,
	comparison *domain.ComparisonOrchestrator,
	historyStore *history.Store,
	exports *export.Dispatcher,
) *Handler {
	return &Handler{
		sessions:   sessions,
		comparison: comparison,
		history:    historyStore,
		exports:    exports,
	}
}

// client resolves the per-client state from the X-Session-Id header.
func (h *Handler) client(r *http.Request) *clientState {
	return h.sessions.get(r.Header.Get("X-Session-Id"))
}

// HandleGenerate processes generation requests as a server-sent event
// stream: one data event per delta, then a terminal result event.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	// Validate before committing to the event stream; the session validates
	// again but by then headers are out.
	req.Normalize()
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx = observability.WithProvider(ctx, req.Provider)
	ctx = observability.WithModel(ctx, req.Model)
	logger := observability.FromContext(ctx)
	logger.Info("generation request received",
		zap.String("provider", req.Provider),
		zap.String("model", req.Model),
		zap.Int("candidates", req.CandidateCount),
	)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	state := h.client(r)
	result, err := state.session.Generate(ctx, &req, func(delta string) {
		data, _ := json.Marshal(map[string]string{"content": delta})
		fmt.Fprintf(w, "data: %s\n\n", string(data))
		flusher.Flush()
	})
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return
	}

	data, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", string(data))
	flusher.Flush()
}

type selectRequest struct {
	Index int `json:"index"`
}

type selectResponse struct {
	Displayed     string `json:"displayed"`
	SelectedIndex int    `json:"selected_index"`
}

// HandleSelectCandidate swaps the displayed response to another candidate.
func (h *Handler) HandleSelectCandidate(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	state := h.client(r)
	displayed, err := state.session.SelectCandidate(req.Index)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, selectResponse{
		Displayed:     displayed,
		SelectedIndex: req.Index,
	})
}

type generationStateResponse struct {
	Phase         string            `json:"phase"`
	Displayed     string            `json:"displayed"`
	SelectedIndex int               `json:"selected_index"`
	Candidates    domain.Candidates `json:"candidates"`
	Error         string            `json:"error,omitempty"`
}

// HandleGenerationState reports the session's current generation state.
func (h *Handler) HandleGenerationState(w http.ResponseWriter, r *http.Request) {
	state := h.client(r)
	opState := state.session.State()

	resp := generationStateResponse{
		Phase:         opState.Phase().String(),
		Displayed:     state.session.Displayed(),
		SelectedIndex: state.session.SelectedIndex(),
		Candidates:    state.session.Candidates(),
	}
	if err := opState.Err(); err != nil {
		resp.Error = err.Error()
	}

	h.writeJSON(w, r, resp)
}

type compareResponse struct {
	*domain.ComparisonResult
	Ranked []domain.RankedModel `json:"ranked"`
}

// HandleCompare fans one prompt out to several models and returns the
// aggregate with a presentation-side ranking attached.
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.ComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.comparison.Compare(ctx, &req)
	if err != nil {
		observability.FromContext(ctx).Error("comparison failed", zap.Error(err))
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, compareResponse{
		ComparisonResult: result,
		Ranked:           domain.RankModels(result.PerModelResults),
	})
}

type languageInputRequest struct {
	Text string `json:"text"`
}

// HandleLanguageInput records a prompt edit with the debouncer. The call
// returns immediately; detection happens after the quiet interval.
func (h *Handler) HandleLanguageInput(w http.ResponseWriter, r *http.Request) {
	state := h.client(r)
	if state.debouncer == nil {
		http.Error(w, "language detection not configured", http.StatusServiceUnavailable)
		return
	}

	var req languageInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	state.debouncer.Input(req.Text)
	w.WriteHeader(http.StatusAccepted)
}

type languageStateResponse struct {
	Detection *domain.LanguageDetection `json:"detection"`
}

// HandleLanguageState returns the current detection, if any.
func (h *Handler) HandleLanguageState(w http.ResponseWriter, r *http.Request) {
	state := h.client(r)
	if state.debouncer == nil {
		http.Error(w, "language detection not configured", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, languageStateResponse{Detection: state.debouncer.Detection()})
}

// HandleHistoryList returns history entries newest-first, optionally
// filtered by the q and type query parameters.
func (h *Handler) HandleHistoryList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Filter(
		r.Context(),
		r.URL.Query().Get("q"),
		domain.EntryType(r.URL.Query().Get("type")),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.PromptHistoryEntry{}
	}

	h.writeJSON(w, r, entries)
}

// HandleHistoryClear empties the history.
func (h *Handler) HandleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistoryRemove deletes one history entry by id.
func (h *Handler) HandleHistoryRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Remove(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	Format  export.Format  `json:"format"`
	Payload export.Payload `json:"payload"`
}

// HandleExport renders the payload into the requested format and returns
// it as a file download.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	file, err := h.exports.Export(ctx, req.Format, &req.Payload)
	if err != nil {
		observability.FromContext(ctx).Error("export failed", zap.Error(err))
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	if _, err := w.Write(file.Data); err != nil {
		observability.FromContext(ctx).Error("failed to write export", zap.Error(err))
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.FromContext(r.Context()).Error("failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrTooFewModels),
		errors.Is(err, domain.ErrCandidateIndex),
		errors.Is(err, export.ErrNoContent),
		errors.Is(err, export.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrComparisonInFlight),
		errors.Is(err, export.ErrExportInFlight):
		status = http.StatusConflict
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTimedOut):
		status = http.StatusGatewayTimeout
	}

	http.Error(w, err.Error(), status)
}
