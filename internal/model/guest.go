package model

import "time"

// RSVPStatus は正規化済みの出欠ステータス。
type RSVPStatus string

const (
	RSVPYes RSVPStatus = "yes"
	RSVPNo  RSVPStatus = "no"
)

// Guest は世帯に属する個々の出席者を表す。
// WeddingIDは必ず所属世帯のWeddingIDと一致する。
type Guest struct {
	ID           string
	HouseholdID  string
	WeddingID    string
	FullName     string
	RSVPStatus   *RSVPStatus
	DietaryNotes *string
	Questions    *string
	Events       []string
	PartySize    *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RSVPUpdate は出欠回答の部分更新を表す。
// Status と SubmissionID は常に反映し、nilのフィールドは既存の値を維持する。
type RSVPUpdate struct {
	Status       RSVPStatus
	SubmissionID string
	DietaryNotes *string
	Questions    *string
	Events       []string // nilの場合は変更しない
	PartySize    *int
}
