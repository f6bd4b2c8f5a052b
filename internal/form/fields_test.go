package form

import (
	"encoding/json"
	"reflect"
	"testing"
)

// parseJSON はJSON文字列のフィールド一覧を解析する。
func parseJSON(t *testing.T, s string) *Fields {
	t.Helper()
	var descriptors []Descriptor
	if err := json.Unmarshal([]byte(s), &descriptors); err != nil {
		t.Fatalf("failed to unmarshal descriptors: %v", err)
	}
	return Parse(descriptors)
}

func TestParse_LookupIsCaseInsensitiveAndTrimmed(t *testing.T) {
	f := parseJSON(t, `[{"label":"  Phone Number ","value":"555-000-1111"}]`)

	got, ok := f.String("phone number")
	if !ok {
		t.Fatal("expected label to be found")
	}
	if got != "555-000-1111" {
		t.Errorf("String = %q, want %q", got, "555-000-1111")
	}
}

func TestParse_MissingLabelIsAbsent(t *testing.T) {
	f := parseJSON(t, `[{"label":"first_name","value":"Jane"}]`)

	if _, ok := f.String("dietary_notes"); ok {
		t.Error("missing label should be absent")
	}
	if _, ok := f.Int("party_size"); ok {
		t.Error("missing label should be absent for Int")
	}
	if _, ok := f.Strings("events"); ok {
		t.Error("missing label should be absent for Strings")
	}
}

func TestParse_NullValueIsAbsent(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"dietary_notes","value":null},
		{"label":"questions"}
	]`)

	if _, ok := f.Lookup("dietary_notes"); ok {
		t.Error("null value should be absent")
	}
	if _, ok := f.Lookup("questions"); ok {
		t.Error("missing value should be absent")
	}
	if f.Len() != 0 {
		t.Errorf("Len = %d, want 0", f.Len())
	}
}

func TestParse_FirstDescriptorWins(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"email","value":"first@example.com"},
		{"label":"EMAIL","value":"second@example.com"}
	]`)

	got, _ := f.String("email")
	if got != "first@example.com" {
		t.Errorf("String = %q, want first occurrence", got)
	}
}

func TestParse_NullDoesNotShadowLaterValue(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"email","value":null},
		{"label":"email","value":"later@example.com"}
	]`)

	got, ok := f.String("email")
	if !ok || got != "later@example.com" {
		t.Errorf("String = %q, %v; want later@example.com", got, ok)
	}
}

func TestParse_ResolvesOptionIDs(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"attending","type":"MULTIPLE_CHOICE","value":"opt-1",
		 "options":[{"id":"opt-1","text":"Yes"},{"id":"opt-2","text":"No"}]},
		{"label":"events","type":"CHECKBOXES","value":["ev-a","ev-c","unknown"],
		 "options":[{"id":"ev-a","text":"Ceremony"},{"id":"ev-b","text":"Brunch"},{"id":"ev-c","text":"Reception"}]}
	]`)

	status, _ := f.String("attending")
	if status != "Yes" {
		t.Errorf("attending = %q, want %q", status, "Yes")
	}

	events, ok := f.Strings("events")
	if !ok {
		t.Fatal("events should be present")
	}
	want := []string{"Ceremony", "Reception", "unknown"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	joined, _ := f.String("events")
	if joined != "Ceremony, Reception, unknown" {
		t.Errorf("joined events = %q", joined)
	}
}

func TestParse_Scalars(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"party_size","value":3},
		{"label":"fraction","value":2.50},
		{"label":"plus_one","value":true},
		{"label":"count_text","value":" 4 "},
		{"label":"not_a_number","value":"many"},
		{"label":"float_size","value":2.5}
	]`)

	if n, ok := f.Int("party_size"); !ok || n != 3 {
		t.Errorf("Int(party_size) = %d, %v; want 3, true", n, ok)
	}
	if s, _ := f.String("party_size"); s != "3" {
		t.Errorf("String(party_size) = %q, want %q", s, "3")
	}
	if s, _ := f.String("fraction"); s != "2.5" {
		t.Errorf("String(fraction) = %q, want %q", s, "2.5")
	}
	if s, _ := f.String("plus_one"); s != "true" {
		t.Errorf("String(plus_one) = %q, want %q", s, "true")
	}
	if n, ok := f.Int("count_text"); !ok || n != 4 {
		t.Errorf("Int(count_text) = %d, %v; want 4, true", n, ok)
	}
	if _, ok := f.Int("not_a_number"); ok {
		t.Error("unparseable Int should be absent")
	}
	if _, ok := f.Int("float_size"); ok {
		t.Error("non-integral number should be absent for Int")
	}
}

func TestParse_IgnoresObjectValues(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"file","value":{"url":"https://example.com/a.png"}},
		{"label":"mixed","value":["a",{"x":1},null,"b"]}
	]`)

	if _, ok := f.Lookup("file"); ok {
		t.Error("object value should be absent")
	}
	got, _ := f.Strings("mixed")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("mixed = %v, want [a b]", got)
	}
}

func TestFields_FirstHelpersCheckAliasesInOrder(t *testing.T) {
	f := parseJSON(t, `[
		{"label":"Phone number","value":"555"},
		{"label":"phone","value":"777"},
		{"label":"number_attending","value":"2"}
	]`)

	got, ok := f.FirstString("phone_number", "phone", "Phone number")
	if !ok || got != "777" {
		t.Errorf("FirstString = %q, %v; want 777", got, ok)
	}
	if _, ok := f.FirstString("nope", "missing"); ok {
		t.Error("FirstString with no matching alias should be absent")
	}
	if n, ok := f.FirstInt("party_size", "number_attending"); !ok || n != 2 {
		t.Errorf("FirstInt = %d, %v; want 2", n, ok)
	}
	if s, ok := f.FirstStrings("events", "phone"); !ok || !reflect.DeepEqual(s, []string{"777"}) {
		t.Errorf("FirstStrings = %v, %v; want [777]", s, ok)
	}
}

func TestFields_NilIsEmpty(t *testing.T) {
	var f *Fields
	if f.Len() != 0 {
		t.Error("nil Fields should be empty")
	}
	if _, ok := f.String("anything"); ok {
		t.Error("nil Fields lookup should be absent")
	}
}
