package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rsvphook/internal/model"
)

// PostgresSubmissionRepo はPostgreSQLを使用した生ペイロード台帳リポジトリ。
type PostgresSubmissionRepo struct {
	db *sql.DB
}

// NewPostgresSubmissionRepo はPostgresSubmissionRepoを生成する。
func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

// Create は台帳エントリを作成する。
// provider_submission_idが空の場合はNULLとして保存し、一意制約の対象外とする。
func (r *PostgresSubmissionRepo) Create(ctx context.Context, sub *model.RawSubmission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO raw_submissions (id, wedding_id, provider, provider_submission_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ID, sub.WeddingID, sub.Provider,
		sql.NullString{String: sub.ProviderSubmissionID, Valid: sub.ProviderSubmissionID != ""},
		[]byte(sub.Payload), sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("台帳エントリの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByProviderSubmissionID は送信元の送信IDで台帳エントリを検索する。見つからない場合はnilを返す。
func (r *PostgresSubmissionRepo) FindByProviderSubmissionID(ctx context.Context, weddingID, provider, providerSubmissionID string) (*model.RawSubmission, error) {
	sub := &model.RawSubmission{}
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, wedding_id, provider, provider_submission_id, payload, created_at
		 FROM raw_submissions
		 WHERE wedding_id = $1 AND provider = $2 AND provider_submission_id = $3`,
		weddingID, provider, providerSubmissionID,
	).Scan(&sub.ID, &sub.WeddingID, &sub.Provider, &sub.ProviderSubmissionID, &payload, &sub.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("送信IDによる台帳エントリの検索に失敗しました: %w", err)
	}

	sub.Payload = payload
	return sub, nil
}

// compile-time interface check
var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
