package model

import "time"

// HouseholdAction は世帯の照合結果として行われた操作を表す。
type HouseholdAction string

const (
	HouseholdInserted HouseholdAction = "inserted"
	HouseholdUpdated  HouseholdAction = "updated"
)

// DefaultHouseholdName は氏名が送信されなかった場合の表示名。
const DefaultHouseholdName = "Guest Household"

// Household は結婚式ごとに重複排除された招待単位（世帯）を表す。
type Household struct {
	ID               string
	WeddingID        string
	PrimaryName      string
	PhoneRaw         string
	PhoneNormalized  string
	EmailRaw         string
	EmailNormalized  string
	Address          Address
	LastSubmissionID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Address は世帯の住所。
type Address struct {
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// ContactFields は連絡先フォームから抽出した世帯の連絡先・住所情報。
// 照合一致時はこの内容で既存世帯を全項目上書きする。
type ContactFields struct {
	PrimaryName string
	PhoneRaw    string
	EmailRaw    string
	Address     Address
}

// Apply は連絡先情報を世帯に反映する。
func (h *Household) Apply(fields ContactFields, phoneNormalized, emailNormalized string) {
	h.PrimaryName = fields.PrimaryName
	h.PhoneRaw = fields.PhoneRaw
	h.PhoneNormalized = phoneNormalized
	h.EmailRaw = fields.EmailRaw
	h.EmailNormalized = emailNormalized
	h.Address = fields.Address
}

// HouseholdMatch は世帯照合の結果を表す。
type HouseholdMatch struct {
	ID     string
	Action HouseholdAction
}
