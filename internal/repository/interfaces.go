// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/rsvphook/internal/model"
)

// WeddingRepository は結婚式（テナント）の参照用インターフェース。
type WeddingRepository interface {
	// FindByPublicCode は公開コードに完全一致する結婚式を取得する。見つからない場合はnilを返す。
	FindByPublicCode(ctx context.Context, code string) (*model.Wedding, error)
}

// SubmissionRepository は生ペイロード台帳の永続化インターフェース。
// 台帳は追記専用で、更新・削除の操作は持たない。
type SubmissionRepository interface {
	// Create は台帳エントリを作成する。
	// (wedding_id, provider, provider_submission_id) の一意制約違反時は
	// IsUniqueViolationで判定可能なエラーを返す。
	Create(ctx context.Context, sub *model.RawSubmission) error

	// FindByProviderSubmissionID は送信元の送信IDで台帳エントリを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderSubmissionID(ctx context.Context, weddingID, provider, providerSubmissionID string) (*model.RawSubmission, error)
}

// HouseholdRepository は世帯データの永続化インターフェース。
// すべての操作は結婚式IDで絞り込む。
type HouseholdRepository interface {
	// FindByID は結婚式IDと世帯IDの両方に一致する世帯を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, weddingID, id string) (*model.Household, error)

	// FindByPhone は正規化済み電話番号で世帯を検索する。見つからない場合はnilを返す。
	FindByPhone(ctx context.Context, weddingID, phoneNormalized string) (*model.Household, error)

	// FindByEmail は正規化済みメールアドレスで世帯を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, weddingID, emailNormalized string) (*model.Household, error)

	// Create は世帯を作成する。
	Create(ctx context.Context, household *model.Household) error

	// Update は世帯の連絡先・住所・最終送信参照を上書き更新する。
	Update(ctx context.Context, household *model.Household) error
}

// IdentityLocker は世帯の照合と書き込みを排他的に実行する。
type IdentityLocker interface {
	// WithIdentityLock は結婚式内の識別キー（電話番号・メールアドレス）ごとのロックを取得し、
	// ロック下で有効なHouseholdRepositoryを渡してfnを実行する。
	// fnがエラーを返した場合は書き込みを破棄する。
	WithIdentityLock(ctx context.Context, weddingID string, keys []string, fn func(repo HouseholdRepository) error) error
}

// RSVPRepository は出欠回答の反映インターフェース。
type RSVPRepository interface {
	// ApplyToGuests は世帯に属する全ゲストに出欠回答を部分更新で反映し、
	// 世帯の最終送信参照を更新する。更新したゲスト数を返す。
	// 世帯IDと結婚式IDの組み合わせが存在しない場合は0件として扱う。
	ApplyToGuests(ctx context.Context, weddingID, householdID string, update model.RSVPUpdate) (int, error)
}

// querier は*sql.DBと*sql.Txの共通操作。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
