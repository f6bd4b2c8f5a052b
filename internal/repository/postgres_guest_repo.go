package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/rsvphook/internal/model"
)

// PostgresGuestRepo はPostgreSQLを使用したゲストリポジトリ。
type PostgresGuestRepo struct {
	db *sql.DB
}

// NewPostgresGuestRepo はPostgresGuestRepoを生成する。
func NewPostgresGuestRepo(db *sql.DB) *PostgresGuestRepo {
	return &PostgresGuestRepo{db: db}
}

// ApplyToGuests は世帯に属する全ゲストに出欠回答を部分更新で反映し、世帯の最終送信参照を更新する。
// NULLのパラメータはCOALESCEにより既存の値を維持する。
// 世帯とゲストの更新は同一トランザクションで行う。
func (r *PostgresGuestRepo) ApplyToGuests(ctx context.Context, weddingID, householdID string, update model.RSVPUpdate) (int, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE households SET last_submission_id = $3, updated_at = $4
		 WHERE id = $1 AND wedding_id = $2`,
		householdID, weddingID, nullString(update.SubmissionID), now,
	)
	if err != nil {
		return 0, fmt.Errorf("世帯の最終送信参照の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return 0, nil
	}

	var events any
	if update.Events != nil {
		events = pq.Array(update.Events)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE guests SET
			rsvp_status = $3,
			dietary_notes = COALESCE($4, dietary_notes),
			questions = COALESCE($5, questions),
			events = COALESCE($6::text[], events),
			party_size = COALESCE($7, party_size),
			updated_at = $8
		 WHERE household_id = $1 AND wedding_id = $2`,
		householdID, weddingID, string(update.Status),
		nullStringPtr(update.DietaryNotes), nullStringPtr(update.Questions),
		events, nullIntPtr(update.PartySize), now,
	)
	if err != nil {
		return 0, fmt.Errorf("ゲストの出欠回答の更新に失敗しました: %w", err)
	}
	guests, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return int(guests), nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// compile-time interface check
var _ RSVPRepository = (*PostgresGuestRepo)(nil)
