package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/rsvphook/internal/form"
	"github.com/hitoshi/rsvphook/internal/intake"
	"github.com/hitoshi/rsvphook/internal/metrics"
	"github.com/hitoshi/rsvphook/internal/model"
)

// bodyPreviewLimit は失敗レスポンスに含める生ボディのプレビューの最大バイト数。
const bodyPreviewLimit = 512

// defaultMaxBodyBytes はリクエストボディの上限（デフォルト）。
const defaultMaxBodyBytes int64 = 1 << 20

// SubmissionRouter はWebhookハンドラーが必要とする振り分けインターフェース。
type SubmissionRouter interface {
	// Route は解析済みの送信を処理し、処理結果を返す。
	Route(ctx context.Context, env *intake.Envelope) (*intake.Outcome, error)
}

// WebhookHandlerConfig はWebhookハンドラーの設定。
type WebhookHandlerConfig struct {
	Labels          form.Labels
	DefaultProvider string
	MaxBodyBytes    int64
}

// WebhookHandler はフォーム送信WebhookのHTTPハンドラー。
type WebhookHandler struct {
	router  SubmissionRouter
	metrics metrics.MetricsCollector
	config  WebhookHandlerConfig
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(router SubmissionRouter, collector metrics.MetricsCollector, config WebhookHandlerConfig) *WebhookHandler {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &WebhookHandler{
		router:  router,
		metrics: collector,
		config:  config,
	}
}

// --- レスポンス型 ---

// webhookResponse は処理成功時のレスポンス。
type webhookResponse struct {
	OK              bool   `json:"ok"`
	Ignored         bool   `json:"ignored,omitempty"`
	Routed          string `json:"routed,omitempty"`
	Action          string `json:"action,omitempty"`
	HouseholdID     string `json:"household_id,omitempty"`
	RSVPStatus      string `json:"rsvp_status,omitempty"`
	GuestsUpdated   *int   `json:"guests_updated,omitempty"`
	RawSubmissionID string `json:"raw_submission_id,omitempty"`
	Duplicate       bool   `json:"duplicate,omitempty"`
	RawOnly         bool   `json:"raw_only,omitempty"`
}

// webhookErrorResponse は処理失敗時のレスポンス。
// Webhook設定の調査用に、受け取った公開コード・トップレベルのキー・ボディの先頭を含める。
type webhookErrorResponse struct {
	OK            bool     `json:"ok"`
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	Received      string   `json:"received"`
	AvailableKeys []string `json:"available_keys"`
	BodyPreview   string   `json:"body_preview"`
}

// Receive はフォーム送信Webhookを受信する。
// POST /webhooks/forms, POST /webhooks/forms/{code}
// POST以外のメソッドはヘルスチェックとみなし、処理せずに200を返す。
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSON(w, http.StatusOK, webhookResponse{OK: true, Ignored: true})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		h.writeFailure(w, body, nil, model.NewInvalidRequestError("ボディの読み取りに失敗しました"))
		return
	}

	src := intake.Source{
		PathCode:       chi.URLParam(r, "code"),
		QueryCode:      r.URL.Query().Get("code"),
		ProviderHeader: r.Header.Get("X-Webhook-Provider"),
	}

	env, err := intake.ParseEnvelope(body, src, h.config.Labels, h.config.DefaultProvider)
	if err != nil {
		h.writeFailure(w, body, nil, err)
		return
	}

	out, err := h.router.Route(r.Context(), env)
	if err != nil {
		h.writeFailure(w, body, env, err)
		return
	}

	slog.Info("webhook processed",
		slog.String("wedding_id", out.WeddingID),
		slog.String("provider", env.Provider),
		slog.String("routed", out.Routed),
		slog.Int("fields", env.Fields.Len()),
		slog.String("raw_submission_id", out.RawSubmissionID),
		slog.Bool("duplicate", out.Duplicate),
	)

	h.writeJSON(w, http.StatusOK, toWebhookResponse(out))
}

// toWebhookResponse は処理結果をレスポンス型に変換する。
func toWebhookResponse(out *intake.Outcome) webhookResponse {
	resp := webhookResponse{
		OK:              true,
		Routed:          out.Routed,
		RawSubmissionID: out.RawSubmissionID,
		Duplicate:       out.Duplicate,
		RawOnly:         out.RawOnly(),
	}
	if out.Household != nil {
		resp.Action = string(out.Household.Action)
		resp.HouseholdID = out.Household.ID
	}
	if out.RSVP != nil {
		guests := out.RSVP.GuestsUpdated
		resp.Action = "updated"
		resp.HouseholdID = out.RSVP.HouseholdID
		resp.RSVPStatus = string(out.RSVP.Status)
		resp.GuestsUpdated = &guests
	}
	return resp
}

// writeFailure はエラーを分類して失敗レスポンスを書き込む。
// APIErrorはクライアントエラー（400/404）、それ以外はストア障害として500を返す。
func (h *WebhookHandler) writeFailure(w http.ResponseWriter, body []byte, env *intake.Envelope, err error) {
	resp := webhookErrorResponse{
		OK:            false,
		AvailableKeys: []string{},
		BodyPreview:   bodyPreview(body),
	}
	if env != nil {
		resp.Received = env.Code
		resp.AvailableKeys = env.Keys
	}

	statusCode := http.StatusInternalServerError
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode = mapAPIErrorToHTTPStatus(apiErr)
		resp.Code = apiErr.Code
		resp.Error = apiErr.Message
		slog.Warn("webhook rejected",
			slog.String("code", apiErr.Code),
			slog.String("received", resp.Received),
			slog.String("error", apiErr.Message),
		)
	} else {
		resp.Code = model.ErrCodeInternal
		resp.Error = err.Error()
		slog.Error("webhook processing failed",
			slog.String("received", resp.Received),
			slog.String("error", err.Error()),
		)
	}

	h.metrics.RecordFailure(resp.Code)
	h.writeJSON(w, statusCode, resp)
}

func (h *WebhookHandler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	h.metrics.RecordHTTPStatus(statusCode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeUnknownCode,
		model.ErrCodeAmbiguousIdentity,
		model.ErrCodeInvalidReference,
		model.ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case model.ErrCodeHouseholdNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// bodyPreview はボディの先頭を最大bodyPreviewLimitバイトで返す。
// 途中で切れたマルチバイト文字は除去する。
func bodyPreview(body []byte) string {
	if len(body) > bodyPreviewLimit {
		body = body[:bodyPreviewLimit]
	}
	return strings.ToValidUTF8(string(body), "")
}
