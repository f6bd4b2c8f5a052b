package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/rsvphook/internal/model"
)

// PostgresWeddingRepo はPostgreSQLを使用した結婚式リポジトリ。
type PostgresWeddingRepo struct {
	db *sql.DB
}

// NewPostgresWeddingRepo はPostgresWeddingRepoを生成する。
func NewPostgresWeddingRepo(db *sql.DB) *PostgresWeddingRepo {
	return &PostgresWeddingRepo{db: db}
}

// FindByPublicCode は公開コードに完全一致する結婚式を取得する。見つからない場合はnilを返す。
// idはtext型で読み出し、形式の検証は呼び出し側で行う。
func (r *PostgresWeddingRepo) FindByPublicCode(ctx context.Context, code string) (*model.Wedding, error) {
	w := &model.Wedding{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id::text, public_code, name, created_at FROM weddings WHERE public_code = $1`,
		code,
	).Scan(&w.ID, &w.PublicCode, &w.Name, &w.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("公開コードによる結婚式の検索に失敗しました: %w", err)
	}

	return w, nil
}

// compile-time interface check
var _ WeddingRepository = (*PostgresWeddingRepo)(nil)
