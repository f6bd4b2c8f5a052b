package security

import (
	"sync"
	"testing"
)

// TestSanitize_StripsMarkup はHTML要素のタグが除去されテキストのみが残ることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "Jane Doe", want: "Jane Doe"},
		{name: "前後の空白を除去", input: "  Jane  ", want: "Jane"},
		{name: "空文字列", input: "", want: ""},
		{name: "太字タグを除去", input: "<b>Jane</b> Doe", want: "Jane Doe"},
		{name: "大文字のタグを除去", input: "<STRONG>Jane</STRONG>", want: "Jane"},
		{name: "scriptは内容ごと除去", input: "Jane<script>alert(1)</script>", want: "Jane"},
		{name: "属性付きタグを除去", input: `<a href="https://example.com" onclick="x()">Link</a>`, want: "Link"},
		{name: "日本語テキスト", input: "<p>卵アレルギーあり</p>", want: "卵アレルギーあり"},
		{name: "タグのみは空", input: "<br><hr/>", want: ""},
		{name: "除去後に現れるタグも除去", input: "<<b>b>x", want: "x"},
		{name: "タグと同時に含まれる記号は保持", input: `<i>"Vegan"</i> & no <dairy>`, want: `"Vegan" & no <dairy>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_KeepsTypedText は送信者が入力したHTML要素以外の文字列が変化しないことを検証する。
func TestSanitize_KeepsTypedText(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"a<b",
		"No <dairy> please",
		"allergy: shellfish <severe>",
		"5 < 6 and 7 > 3",
		"Tom & Jerry",
		"Tom &amp; Jerry",
		"&lt;x&gt;",
		"<name>",
		"<3 you",
		"x\ue000ay",
	}

	for _, input := range inputs {
		if got := sanitizer.Sanitize(input); got != input {
			t.Errorf("Sanitize(%q) = %q, want unchanged", input, got)
		}
	}
}

// TestSanitize_Idempotent は再適用しても結果が変化しないことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	inputs := []string{
		"<i>Vegan</i>, no nuts",
		"Tom &amp; Jerry",
		"&lt;b&gt;x&lt;/b&gt;",
		"<<b>b>",
		"<b>&lt;i&gt;</b>",
		"a<b",
		"plain",
	}

	for _, input := range inputs {
		first := sanitizer.Sanitize(input)
		if again := sanitizer.Sanitize(input); again != first {
			t.Errorf("Sanitize(%q) not deterministic: %q vs %q", input, first, again)
		}
		if twice := sanitizer.Sanitize(first); twice != first {
			t.Errorf("Sanitize(Sanitize(%q)) = %q, want %q", input, twice, first)
		}
	}
}

// TestSanitize_Concurrent は並行呼び出しで結果が変わらないことを検証する。
func TestSanitize_Concurrent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := sanitizer.Sanitize("<b>Jane</b>"); got != "Jane" {
				t.Errorf("Sanitize = %q, want Jane", got)
			}
		}()
	}
	wg.Wait()
}
