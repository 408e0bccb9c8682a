package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wca-openai-proxy/internal/adapter"
	"wca-openai-proxy/internal/metrics"
	"wca-openai-proxy/internal/prompt"
	"wca-openai-proxy/pkg/logging"
)

// ChatHandler holds dependencies for the completion endpoints.
type ChatHandler struct {
	Backend Backend
	Adapter *adapter.Adapter
}

func NewChatHandler(backend Backend, a *adapter.Adapter) *ChatHandler {
	return &ChatHandler{
		Backend: backend,
		Adapter: a,
	}
}

// ChatCompletion handles POST /v1/chat/completions.
//
// The backend call completes before anything is written, so a backend
// failure always yields a single JSON error and never a partial stream.
func (h *ChatHandler) ChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.L(ctx).Warn("invalid request", zap.Error(err))
		writeAPIError(w, decodeError(err))
		return
	}

	ctx = logging.WithFields(ctx,
		zap.String("requested_model", req.Model),
		zap.Bool("stream", req.Stream),
	)
	logger := logging.L(ctx)

	if err := prompt.Validate(req.Messages); err != nil {
		logger.Info("rejected request",
			zap.Int("message_count", len(req.Messages)),
			zap.Error(err),
		)
		writeAPIError(w, badRequest("No user messages provided"))
		return
	}

	text := prompt.Build(req.Messages)
	payload, err := prompt.EncodePayload(text)
	if err != nil {
		logger.Error("encode_payload_error", zap.Error(err))
		writeAPIError(w, backendFailure())
		return
	}

	backendStart := time.Now()
	content, err := h.Backend.Submit(ctx, payload, req.FileList)
	metrics.ObserveBackend(backendStart, err)
	backendLatency := time.Since(backendStart)

	if err != nil {
		logger.Error("backend_error",
			zap.Error(err),
			zap.Duration("backend_latency_ms", backendLatency),
		)
		writeAPIError(w, backendFailure())
		return
	}

	if req.Stream {
		res, err := h.Adapter.Stream(ctx, w, content)
		metrics.StreamChunksTotal.Add(float64(res.Chunks))

		fields := []zap.Field{
			zap.String("completion_id", res.ID),
			zap.Int("chunks", res.Chunks),
			zap.Bool("completed", res.Completed),
			zap.Duration("backend_latency_ms", backendLatency),
			zap.Duration("total_latency_ms", time.Since(start)),
		}
		switch {
		case err != nil:
			logger.Error("stream_error", append(fields, zap.Error(err))...)
		case !res.Completed:
			logger.Info("stream_client_gone", fields...)
		default:
			logger.Info("chat_completion", fields...)
		}
		return
	}

	resp := h.Adapter.ChatCompletion(text, content)

	logger.Info("chat_completion",
		zap.String("completion_id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("backend_latency_ms", backendLatency),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, resp)
}

// Completion handles the legacy POST /v1/completions. The prompt is sent
// verbatim, without role formatting, and the reply is never streamed.
func (h *ChatHandler) Completion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request", zap.Error(err))
		writeAPIError(w, decodeError(err))
		return
	}

	ctx = logging.WithFields(ctx, zap.String("requested_model", req.Model))
	logger = logging.L(ctx)

	text := string(req.Prompt)
	payload, err := prompt.EncodePayload(text)
	if err != nil {
		logger.Error("encode_payload_error", zap.Error(err))
		writeAPIError(w, backendFailure())
		return
	}

	backendStart := time.Now()
	content, err := h.Backend.Submit(ctx, payload, nil)
	metrics.ObserveBackend(backendStart, err)

	if err != nil {
		logger.Error("backend_error",
			zap.Error(err),
			zap.Duration("backend_latency_ms", time.Since(backendStart)),
		)
		writeAPIError(w, backendFailure())
		return
	}

	resp := h.Adapter.TextCompletion(text, content)

	logger.Info("text_completion",
		zap.String("completion_id", resp.ID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("total_latency_ms", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, resp)
}
