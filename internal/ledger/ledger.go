// Package ledger はWebhookの生ペイロードを冪等に記録する台帳を提供する。
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rsvphook/internal/model"
	"github.com/hitoshi/rsvphook/internal/repository"
)

// Ledger は生ペイロードの追記専用台帳。
// 同一送信IDの重複配信はストアの一意制約で検出し、既存エントリを返す。
type Ledger struct {
	submissionRepo repository.SubmissionRepository
	now            func() time.Time
}

// NewLedger はLedgerの新しいインスタンスを生成する。
func NewLedger(submissionRepo repository.SubmissionRepository) *Ledger {
	return &Ledger{
		submissionRepo: submissionRepo,
		now:            time.Now,
	}
}

// Record は生ペイロードを台帳に追記し、エントリIDを返す。
//
// 一意制約違反（同一結婚式・同一送信元・同一送信IDの再配信）は失敗として扱わず、
// 既存エントリを検索してそのIDを Duplicate=true で返す。
// それ以外のストア障害はエラーとして返す。
// providerSubmissionIDが空の場合は重複を検出できず、呼び出しごとに新規エントリを作成する。
func (l *Ledger) Record(
	ctx context.Context,
	weddingID, provider, providerSubmissionID string,
	payload json.RawMessage,
) (*model.LedgerEntry, error) {
	sub := &model.RawSubmission{
		ID:                   uuid.New().String(),
		WeddingID:            weddingID,
		Provider:             provider,
		ProviderSubmissionID: providerSubmissionID,
		Payload:              payload,
		CreatedAt:            l.now().UTC(),
	}

	err := l.submissionRepo.Create(ctx, sub)
	if err == nil {
		return &model.LedgerEntry{ID: sub.ID}, nil
	}

	if providerSubmissionID == "" || !repository.IsUniqueViolation(err) {
		return nil, fmt.Errorf("生ペイロードの記録に失敗: %w", err)
	}

	existing, findErr := l.submissionRepo.FindByProviderSubmissionID(ctx, weddingID, provider, providerSubmissionID)
	if findErr != nil {
		return nil, fmt.Errorf("既存の台帳エントリの検索に失敗: %w", findErr)
	}
	if existing == nil {
		return nil, fmt.Errorf("一意制約違反後に既存の台帳エントリが見つかりません: %w", err)
	}

	slog.Info("重複配信を検出",
		"wedding_id", weddingID,
		"provider", provider,
		"provider_submission_id", providerSubmissionID,
		"raw_submission_id", existing.ID,
	)

	return &model.LedgerEntry{ID: existing.ID, Duplicate: true}, nil
}
