package form

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Labels は正規フィールド名ごとに受け付けるラベル候補を保持する。
// フォームごとに質問文が異なるため、複数の候補を先頭から順に照合する。
type Labels struct {
	FormType     []string `toml:"form_type"`
	WeddingCode  []string `toml:"wedding_code"`
	FirstName    []string `toml:"first_name"`
	LastName     []string `toml:"last_name"`
	FullName     []string `toml:"full_name"`
	Phone        []string `toml:"phone"`
	Email        []string `toml:"email"`
	AddressLine1 []string `toml:"address_line1"`
	AddressLine2 []string `toml:"address_line2"`
	City         []string `toml:"city"`
	Region       []string `toml:"region"`
	PostalCode   []string `toml:"postal_code"`
	Country      []string `toml:"country"`
	HouseholdID  []string `toml:"household_id"`
	RSVPStatus   []string `toml:"rsvp_status"`
	DietaryNotes []string `toml:"dietary_notes"`
	Questions    []string `toml:"questions"`
	Events       []string `toml:"events"`
	PartySize    []string `toml:"party_size"`
}

// DefaultLabels は組み込みのラベル候補を返す。
func DefaultLabels() Labels {
	return Labels{
		FormType:     []string{"form_type"},
		WeddingCode:  []string{"wedding_code", "code"},
		FirstName:    []string{"first_name", "First name"},
		LastName:     []string{"last_name", "Last name"},
		FullName:     []string{"name", "full_name", "primary_name"},
		Phone:        []string{"phone_number", "phone", "Phone number"},
		Email:        []string{"email", "email_address", "Email"},
		AddressLine1: []string{"address_line1", "address", "Street address"},
		AddressLine2: []string{"address_line2", "Address line 2"},
		City:         []string{"city"},
		Region:       []string{"state", "region", "province"},
		PostalCode:   []string{"postal_code", "zip", "zip_code"},
		Country:      []string{"country"},
		HouseholdID:  []string{"household_id"},
		RSVPStatus:   []string{"rsvp_status", "attending", "rsvp"},
		DietaryNotes: []string{"dietary_notes", "dietary_restrictions", "Dietary restrictions"},
		Questions:    []string{"questions", "Questions for the couple"},
		Events:       []string{"events", "attending_events"},
		PartySize:    []string{"party_size", "number_attending"},
	}
}

// LoadLabels はTOMLファイルからラベル候補を読み込む。
// ファイルに記載のない項目は組み込みの候補を使用する。
// pathが空の場合は組み込みの候補をそのまま返す。
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if path == "" {
		return labels, nil
	}

	var override Labels
	if _, err := toml.DecodeFile(path, &override); err != nil {
		return Labels{}, fmt.Errorf("failed to decode label file %s: %w", path, err)
	}

	labels.merge(override)
	return labels, nil
}

func (l *Labels) merge(o Labels) {
	pick := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	pick(&l.FormType, o.FormType)
	pick(&l.WeddingCode, o.WeddingCode)
	pick(&l.FirstName, o.FirstName)
	pick(&l.LastName, o.LastName)
	pick(&l.FullName, o.FullName)
	pick(&l.Phone, o.Phone)
	pick(&l.Email, o.Email)
	pick(&l.AddressLine1, o.AddressLine1)
	pick(&l.AddressLine2, o.AddressLine2)
	pick(&l.City, o.City)
	pick(&l.Region, o.Region)
	pick(&l.PostalCode, o.PostalCode)
	pick(&l.Country, o.Country)
	pick(&l.HouseholdID, o.HouseholdID)
	pick(&l.RSVPStatus, o.RSVPStatus)
	pick(&l.DietaryNotes, o.DietaryNotes)
	pick(&l.Questions, o.Questions)
	pick(&l.Events, o.Events)
	pick(&l.PartySize, o.PartySize)
}
