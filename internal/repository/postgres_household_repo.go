package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hitoshi/rsvphook/internal/model"
)

const householdColumns = `id, wedding_id, primary_name,
	phone_raw, phone_normalized, email_raw, email_normalized,
	address_line1, address_line2, city, region, postal_code, country,
	last_submission_id, created_at, updated_at`

// PostgresHouseholdRepo はPostgreSQLを使用した世帯リポジトリ。
// WithIdentityLock内ではトランザクションにバインドされたインスタンスがfnに渡される。
type PostgresHouseholdRepo struct {
	db TxBeginner
	q  querier
}

// NewPostgresHouseholdRepo はPostgresHouseholdRepoを生成する。
func NewPostgresHouseholdRepo(db *sql.DB) *PostgresHouseholdRepo {
	return &PostgresHouseholdRepo{db: db, q: db}
}

// FindByID は結婚式IDと世帯IDの両方に一致する世帯を取得する。見つからない場合はnilを返す。
func (r *PostgresHouseholdRepo) FindByID(ctx context.Context, weddingID, id string) (*model.Household, error) {
	h, err := r.findOne(ctx,
		`SELECT `+householdColumns+` FROM households WHERE id = $1 AND wedding_id = $2`,
		id, weddingID,
	)
	if err != nil {
		return nil, fmt.Errorf("世帯の取得に失敗しました: %w", err)
	}
	return h, nil
}

// FindByPhone は正規化済み電話番号で世帯を検索する。見つからない場合はnilを返す。
// 同一番号の世帯が複数存在する場合は最も古い世帯を正とする。
func (r *PostgresHouseholdRepo) FindByPhone(ctx context.Context, weddingID, phoneNormalized string) (*model.Household, error) {
	h, err := r.findOne(ctx,
		`SELECT `+householdColumns+` FROM households
		 WHERE wedding_id = $1 AND phone_normalized = $2
		 ORDER BY created_at ASC LIMIT 1`,
		weddingID, phoneNormalized,
	)
	if err != nil {
		return nil, fmt.Errorf("電話番号による世帯の検索に失敗しました: %w", err)
	}
	return h, nil
}

// FindByEmail は正規化済みメールアドレスで世帯を検索する。見つからない場合はnilを返す。
func (r *PostgresHouseholdRepo) FindByEmail(ctx context.Context, weddingID, emailNormalized string) (*model.Household, error) {
	h, err := r.findOne(ctx,
		`SELECT `+householdColumns+` FROM households
		 WHERE wedding_id = $1 AND email_normalized = $2
		 ORDER BY created_at ASC LIMIT 1`,
		weddingID, emailNormalized,
	)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによる世帯の検索に失敗しました: %w", err)
	}
	return h, nil
}

// Create は世帯を作成する。
func (r *PostgresHouseholdRepo) Create(ctx context.Context, h *model.Household) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO households (`+householdColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		h.ID, h.WeddingID, h.PrimaryName,
		h.PhoneRaw, nullString(h.PhoneNormalized), h.EmailRaw, nullString(h.EmailNormalized),
		h.Address.Line1, h.Address.Line2, h.Address.City, h.Address.Region, h.Address.PostalCode, h.Address.Country,
		nullString(h.LastSubmissionID), h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("世帯の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は世帯の連絡先・住所・最終送信参照を上書き更新する。
func (r *PostgresHouseholdRepo) Update(ctx context.Context, h *model.Household) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE households SET
			primary_name = $3,
			phone_raw = $4, phone_normalized = $5,
			email_raw = $6, email_normalized = $7,
			address_line1 = $8, address_line2 = $9, city = $10, region = $11, postal_code = $12, country = $13,
			last_submission_id = $14, updated_at = $15
		 WHERE id = $1 AND wedding_id = $2`,
		h.ID, h.WeddingID, h.PrimaryName,
		h.PhoneRaw, nullString(h.PhoneNormalized),
		h.EmailRaw, nullString(h.EmailNormalized),
		h.Address.Line1, h.Address.Line2, h.Address.City, h.Address.Region, h.Address.PostalCode, h.Address.Country,
		nullString(h.LastSubmissionID), h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("世帯の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("世帯が見つかりません: %s", h.ID)
	}
	return nil
}

// WithIdentityLock はトランザクション内で識別キーごとのアドバイザリロックを取得してからfnを実行する。
// ロックはトランザクション終了時に解放される。
// デッドロックを避けるため、キーはソートしてから取得する。
func (r *PostgresHouseholdRepo) WithIdentityLock(ctx context.Context, weddingID string, keys []string, fn func(repo HouseholdRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range lockKeys(weddingID, keys) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("識別キーのロック取得に失敗しました: %w", err)
		}
	}

	if err := fn(&PostgresHouseholdRepo{db: r.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresHouseholdRepo) findOne(ctx context.Context, query string, args ...any) (*model.Household, error) {
	h := &model.Household{}
	var phoneNorm, emailNorm, lastSub sql.NullString
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&h.ID, &h.WeddingID, &h.PrimaryName,
		&h.PhoneRaw, &phoneNorm, &h.EmailRaw, &emailNorm,
		&h.Address.Line1, &h.Address.Line2, &h.Address.City, &h.Address.Region, &h.Address.PostalCode, &h.Address.Country,
		&lastSub, &h.CreatedAt, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h.PhoneNormalized = phoneNorm.String
	h.EmailNormalized = emailNorm.String
	h.LastSubmissionID = lastSub.String
	return h, nil
}

// lockKeys は結婚式IDで修飾した重複のないロックキーをソート済みで返す。
func lockKeys(weddingID string, keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		scoped := weddingID + "|" + k
		if _, ok := seen[scoped]; ok {
			continue
		}
		seen[scoped] = struct{}{}
		out = append(out, scoped)
	}
	sort.Strings(out)
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var (
	_ HouseholdRepository = (*PostgresHouseholdRepo)(nil)
	_ IdentityLocker      = (*PostgresHouseholdRepo)(nil)
)
