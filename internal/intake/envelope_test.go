package intake

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hitoshi/rsvphook/internal/form"
	"github.com/hitoshi/rsvphook/internal/model"
)

func parse(t *testing.T, body string, src Source) *Envelope {
	t.Helper()
	env, err := ParseEnvelope([]byte(body), src, form.DefaultLabels(), "tally")
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	return env
}

func TestParseEnvelope_TallyPayload(t *testing.T) {
	body := `{
		"eventId": "evt-9",
		"eventType": "FORM_RESPONSE",
		"data": {
			"responseId": "resp-1",
			"fields": [
				{"key":"q1","label":"form_type","type":"HIDDEN_FIELDS","value":"Contact_Sheet"},
				{"key":"q2","label":"wedding_code","type":"HIDDEN_FIELDS","value":"TT01"},
				{"key":"q3","label":"first_name","type":"INPUT_TEXT","value":"Jane"}
			]
		}
	}`
	env := parse(t, body, Source{})

	if env.Code != "TT01" {
		t.Errorf("Code = %q, want TT01", env.Code)
	}
	if env.FormType != "contact_sheet" {
		t.Errorf("FormType = %q, want contact_sheet", env.FormType)
	}
	if env.Provider != "tally" {
		t.Errorf("Provider = %q, want tally", env.Provider)
	}
	if env.ProviderSubmissionID != "resp-1" {
		t.Errorf("ProviderSubmissionID = %q, want resp-1", env.ProviderSubmissionID)
	}
	if !reflect.DeepEqual(env.Keys, []string{"data", "eventId", "eventType"}) {
		t.Errorf("Keys = %v", env.Keys)
	}
	if name, _ := env.Fields.String("first_name"); name != "Jane" {
		t.Errorf("first_name = %q", name)
	}
}

// TestParseEnvelope_CodePrecedence は公開コードの探索順を検証する。
func TestParseEnvelope_CodePrecedence(t *testing.T) {
	fields := `"fields":[{"label":"wedding_code","value":"FIELD"}]`
	tests := []struct {
		name string
		body string
		src  Source
		want string
	}{
		{"パスが最優先", `{"code":"TOP",` + fields + `}`, Source{PathCode: "PATH", QueryCode: "QUERY"}, "PATH"},
		{"クエリ", `{"code":"TOP",` + fields + `}`, Source{QueryCode: "QUERY"}, "QUERY"},
		{"トップレベルcode", `{"code":"TOP","wedding_code":"WC",` + fields + `}`, Source{}, "TOP"},
		{"wedding_code", `{"wedding_code":"WC","public_code":"PC"}`, Source{}, "WC"},
		{"public_code", `{"public_code":"PC","data":{"code":"DC"}}`, Source{}, "PC"},
		{"data.code", `{"data":{"code":"DC","wedding_code":"DWC"}}`, Source{}, "DC"},
		{"data.wedding_code", `{"data":{"wedding_code":"DWC"}}`, Source{}, "DWC"},
		{"フィールド", `{` + fields + `}`, Source{}, "FIELD"},
		{"空白のみは無視", `{"code":"  ","wedding_code":"WC"}`, Source{QueryCode: " "}, "WC"},
		{"数値のコード", `{"code":1234}`, Source{}, "1234"},
		{"コードなし", `{"fields":[]}`, Source{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(t, tt.body, tt.src).Code; got != tt.want {
				t.Errorf("Code = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseEnvelope_ProviderAndSubmissionID(t *testing.T) {
	env := parse(t, `{"provider":"Typeform","submission_id":"s-1"}`, Source{ProviderHeader: "jotform"})
	if env.Provider != "typeform" {
		t.Errorf("Provider = %q, want typeform", env.Provider)
	}
	if env.ProviderSubmissionID != "s-1" {
		t.Errorf("ProviderSubmissionID = %q", env.ProviderSubmissionID)
	}

	env = parse(t, `{"response_id":"r-2"}`, Source{ProviderHeader: " JotForm "})
	if env.Provider != "jotform" {
		t.Errorf("Provider = %q, want jotform from header", env.Provider)
	}
	if env.ProviderSubmissionID != "r-2" {
		t.Errorf("ProviderSubmissionID = %q", env.ProviderSubmissionID)
	}

	env = parse(t, `{"eventId":"evt-1","data":{"submissionId":"sub-1"}}`, Source{})
	if env.ProviderSubmissionID != "sub-1" {
		t.Errorf("ProviderSubmissionID = %q, want data.submissionId first", env.ProviderSubmissionID)
	}
}

func TestParseEnvelope_TopLevelFieldsAndFormType(t *testing.T) {
	env := parse(t, `{"form_type":"RSVP","fields":[{"label":"form_type","value":"contact_sheet"},{"label":"household_id","value":"h"}]}`, Source{})
	if env.FormType != "rsvp" {
		t.Errorf("FormType = %q, want top-level rsvp", env.FormType)
	}
	if env.Fields.Len() != 2 {
		t.Errorf("Fields.Len = %d, want 2", env.Fields.Len())
	}
}

func TestParseEnvelope_NotAnObject(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2]`, `"string"`, `null`} {
		_, err := ParseEnvelope([]byte(body), Source{}, form.DefaultLabels(), "tally")
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
			t.Errorf("body %q: err = %v, want INVALID_REQUEST", body, err)
		}
	}
}

func TestParseEnvelope_MalformedDataIsIgnored(t *testing.T) {
	env := parse(t, `{"code":"TT01","data":"oops","fields":"also oops"}`, Source{})
	if env.Code != "TT01" {
		t.Errorf("Code = %q", env.Code)
	}
	if env.Fields.Len() != 0 {
		t.Errorf("Fields.Len = %d, want 0", env.Fields.Len())
	}
}
