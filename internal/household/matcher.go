// Package household は連絡先情報から世帯を重複排除・統合する機能を提供する。
package household

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rsvphook/internal/model"
	"github.com/hitoshi/rsvphook/internal/repository"
)

// MatchInput は世帯照合の入力。
type MatchInput struct {
	WeddingID       string
	PhoneNormalized string
	EmailNormalized string
	Fields          model.ContactFields
	// SubmissionID は台帳に記録済みの生ペイロードのID。
	SubmissionID string
}

// Matcher は世帯の同一性判定とUPSERT処理を提供する。
// 2段階の同一性判定ロジックにより、重複登録を防ぎつつ既存世帯の上書き更新を行う。
type Matcher struct {
	locker repository.IdentityLocker
	now    func() time.Time
}

// NewMatcher はMatcherの新しいインスタンスを生成する。
func NewMatcher(locker repository.IdentityLocker) *Matcher {
	return &Matcher{
		locker: locker,
		now:    time.Now,
	}
}

// Match は正規化済みの電話番号・メールアドレスで世帯を照合し、更新または作成する。
// 同一性判定の優先順位:
//  1. (wedding_id, phone_normalized)
//  2. (wedding_id, email_normalized)
//
// 一致した場合は連絡先・住所を全項目上書きし、一致しない場合は新規作成する。
// 電話番号・メールアドレスの両方がない場合はAMBIGUOUS_IDENTITYエラーを返し、書き込みは行わない。
// 照合から書き込みまでは識別キーごとのロック下で実行する。
func (m *Matcher) Match(ctx context.Context, in MatchInput) (*model.HouseholdMatch, error) {
	if in.PhoneNormalized == "" && in.EmailNormalized == "" {
		return nil, model.NewAmbiguousIdentityError()
	}

	if in.Fields.PrimaryName == "" {
		in.Fields.PrimaryName = model.DefaultHouseholdName
	}

	keys := identityKeys(in.PhoneNormalized, in.EmailNormalized)

	var result *model.HouseholdMatch
	err := m.locker.WithIdentityLock(ctx, in.WeddingID, keys, func(repo repository.HouseholdRepository) error {
		existing, err := findExisting(ctx, repo, in)
		if err != nil {
			return fmt.Errorf("世帯の同一性判定に失敗: %w", err)
		}

		now := m.now().UTC()

		if existing != nil {
			existing.Apply(in.Fields, in.PhoneNormalized, in.EmailNormalized)
			existing.LastSubmissionID = in.SubmissionID
			existing.UpdatedAt = now
			if err := repo.Update(ctx, existing); err != nil {
				return fmt.Errorf("世帯の更新に失敗: %w", err)
			}
			result = &model.HouseholdMatch{ID: existing.ID, Action: model.HouseholdUpdated}
			return nil
		}

		h := &model.Household{
			ID:               uuid.New().String(),
			WeddingID:        in.WeddingID,
			LastSubmissionID: in.SubmissionID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		h.Apply(in.Fields, in.PhoneNormalized, in.EmailNormalized)
		if err := repo.Create(ctx, h); err != nil {
			return fmt.Errorf("世帯の作成に失敗: %w", err)
		}
		result = &model.HouseholdMatch{ID: h.ID, Action: model.HouseholdInserted}
		return nil
	})
	if err != nil {
		slog.Error("世帯の照合でエラー",
			"wedding_id", in.WeddingID,
			"error", err,
		)
		return nil, err
	}

	slog.Info("世帯照合完了",
		"wedding_id", in.WeddingID,
		"household_id", result.ID,
		"action", string(result.Action),
	)

	return result, nil
}

// findExisting は2段階の同一性判定で既存世帯を検索する。
func findExisting(ctx context.Context, repo repository.HouseholdRepository, in MatchInput) (*model.Household, error) {
	// 第1優先: 電話番号
	if in.PhoneNormalized != "" {
		h, err := repo.FindByPhone(ctx, in.WeddingID, in.PhoneNormalized)
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}

	// 第2優先: メールアドレス
	if in.EmailNormalized != "" {
		h, err := repo.FindByEmail(ctx, in.WeddingID, in.EmailNormalized)
		if err != nil {
			return nil, err
		}
		if h != nil {
			return h, nil
		}
	}

	return nil, nil
}

// identityKeys はロック対象の識別キーを返す。
func identityKeys(phone, email string) []string {
	var keys []string
	if phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	if email != "" {
		keys = append(keys, "email:"+email)
	}
	return keys
}
