// Package normalize は電話番号・メールアドレス・出欠ステータスを正規化する。
// いずれの関数も入力に対して全域で、パニックしない。
// 正規化できない入力には ok=false を返す。
package normalize

import (
	"strings"
	"unicode"
)

// DefaultCountryCode は10桁の国内番号に付与する国番号。
const DefaultCountryCode = "1"

// Phone は電話番号から数字以外を除去し、E.164形式に近い形に正規化する。
//   - 10桁未満: 使用不可として ok=false
//   - 10桁: 国内番号とみなし "+" + 国番号 を付与
//   - 11桁以上: 国番号を含むとみなし "+" のみ付与
func Phone(raw string) (string, bool) {
	return PhoneWithCountryCode(raw, DefaultCountryCode)
}

// PhoneWithCountryCode はPhoneと同様だが、10桁の番号に付与する国番号を指定できる。
func PhoneWithCountryCode(raw, countryCode string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) < 10:
		return "", false
	case len(digits) == 10:
		return "+" + countryCode + digits, true
	default:
		return "+" + digits, true
	}
}

// Email は前後の空白を除去して小文字化する。空になる場合は ok=false。
func Email(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimFunc(raw, unicode.IsSpace))
	if email == "" {
		return "", false
	}
	return email, true
}

// RSVPStatus は出欠回答を "yes" / "no" に正規化する。
// それ以外の回答は ok=false を返す。
func RSVPStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y":
		return "yes", true
	case "no", "n":
		return "no", true
	default:
		return "", false
	}
}
