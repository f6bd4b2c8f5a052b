// Package rsvp は出欠回答を世帯配下のゲストに反映する機能を提供する。
package rsvp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/rsvphook/internal/model"
	"github.com/hitoshi/rsvphook/internal/normalize"
	"github.com/hitoshi/rsvphook/internal/repository"
)

// ApplyInput は出欠回答の入力。
// オプション項目はnilの場合「回答なし」を表し、既存の値を変更しない。
type ApplyInput struct {
	WeddingID string
	// HouseholdRef はフォームの隠しフィールドで渡される世帯ID。
	HouseholdRef string
	Status       string
	DietaryNotes *string
	Questions    *string
	Events       []string
	PartySize    *int
	SubmissionID string
}

// ApplyResult は出欠回答の反映結果。
type ApplyResult struct {
	HouseholdID   string
	Status        model.RSVPStatus
	GuestsUpdated int
}

// Applier は出欠回答を世帯配下の全ゲストに部分更新で反映する。
type Applier struct {
	householdRepo repository.HouseholdRepository
	rsvpRepo      repository.RSVPRepository
}

// NewApplier はApplierの新しいインスタンスを生成する。
func NewApplier(householdRepo repository.HouseholdRepository, rsvpRepo repository.RSVPRepository) *Applier {
	return &Applier{
		householdRepo: householdRepo,
		rsvpRepo:      rsvpRepo,
	}
}

// Apply は出欠回答を反映する。
//   - 世帯IDがUUIDとして不正な場合はINVALID_REFERENCE
//   - 出欠ステータスが yes/no に正規化できない場合はINVALID_STATUS
//   - 世帯が存在しない、または他の結婚式に属する場合はHOUSEHOLD_NOT_FOUND
//
// いずれの検証エラーでも書き込みは行わない。
// ステータスと最終送信参照は常に更新し、それ以外は入力にある項目のみ更新する。
func (a *Applier) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	ref := strings.TrimSpace(in.HouseholdRef)
	householdID, err := uuid.Parse(ref)
	if err != nil {
		return nil, model.NewInvalidReferenceError(in.HouseholdRef)
	}

	status, ok := normalize.RSVPStatus(in.Status)
	if !ok {
		return nil, model.NewInvalidStatusError(in.Status)
	}

	// 世帯IDと結婚式IDの両方で検索する。他テナントの世帯も「存在しない」として扱う。
	h, err := a.householdRepo.FindByID(ctx, in.WeddingID, householdID.String())
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, model.NewHouseholdNotFoundError()
	}

	update := model.RSVPUpdate{
		Status:       model.RSVPStatus(status),
		SubmissionID: in.SubmissionID,
		DietaryNotes: in.DietaryNotes,
		Questions:    in.Questions,
		Events:       in.Events,
		PartySize:    in.PartySize,
	}

	guests, err := a.rsvpRepo.ApplyToGuests(ctx, in.WeddingID, h.ID, update)
	if err != nil {
		return nil, fmt.Errorf("出欠回答の反映に失敗: %w", err)
	}

	slog.Info("出欠回答を反映",
		"wedding_id", in.WeddingID,
		"household_id", h.ID,
		"status", status,
		"guests_updated", guests,
	)

	return &ApplyResult{
		HouseholdID:   h.ID,
		Status:        update.Status,
		GuestsUpdated: guests,
	}, nil
}
