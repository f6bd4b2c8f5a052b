// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はフォームの自由記述欄に混入したHTML要素を除去し、
// プレーンテキストとして保存できる形にする。
// 除去の対象は既知のHTML要素名を持つタグのみで、"a<b" や "<dairy>" のような
// 送信者が入力した文字列はそのまま保存する。エンティティのデコードも行わない。
// 表示時のエスケープは表示側で行う。
package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/atom"
)

// TextSanitizer は自由記述テキストのサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はHTML要素のタグを除去したテキストを返す。
	// 前後の空白は除去する。空文字列の入力には空文字列を返す。
	// Sanitize(Sanitize(x)) == Sanitize(x) が常に成り立つ。
	Sanitize(raw string) string
}

// tagPattern はタグの形をした部分文字列にマッチする。
// 要素名がHTML要素かどうかはhtmlElementsで判定する。
var tagPattern = regexp.MustCompile(`</?([A-Za-z][A-Za-z0-9]*)(?:\s[^<>]*)?/?>`)

// htmlElements は除去対象とするHTML要素。
var htmlElements = map[atom.Atom]struct{}{
	atom.A: {}, atom.Abbr: {}, atom.Address: {}, atom.Article: {}, atom.Aside: {}, atom.Audio: {},
	atom.B: {}, atom.Base: {}, atom.Blockquote: {}, atom.Body: {}, atom.Br: {}, atom.Button: {},
	atom.Caption: {}, atom.Center: {}, atom.Code: {}, atom.Dd: {}, atom.Del: {}, atom.Div: {},
	atom.Dl: {}, atom.Dt: {}, atom.Em: {}, atom.Embed: {}, atom.Figure: {}, atom.Font: {},
	atom.Footer: {}, atom.Form: {}, atom.Frame: {}, atom.Frameset: {},
	atom.H1: {}, atom.H2: {}, atom.H3: {}, atom.H4: {}, atom.H5: {}, atom.H6: {},
	atom.Head: {}, atom.Header: {}, atom.Hr: {}, atom.Html: {}, atom.I: {}, atom.Iframe: {},
	atom.Img: {}, atom.Input: {}, atom.Ins: {}, atom.Label: {}, atom.Li: {}, atom.Link: {},
	atom.Main: {}, atom.Mark: {}, atom.Meta: {}, atom.Nav: {}, atom.Noscript: {}, atom.Object: {},
	atom.Ol: {}, atom.Option: {}, atom.P: {}, atom.Pre: {}, atom.Q: {}, atom.S: {},
	atom.Script: {}, atom.Section: {}, atom.Select: {}, atom.Small: {}, atom.Source: {},
	atom.Span: {}, atom.Strike: {}, atom.Strong: {}, atom.Style: {}, atom.Sub: {}, atom.Sup: {},
	atom.Svg: {}, atom.Table: {}, atom.Tbody: {}, atom.Td: {}, atom.Template: {}, atom.Textarea: {},
	atom.Tfoot: {}, atom.Th: {}, atom.Thead: {}, atom.Title: {}, atom.Tr: {}, atom.U: {},
	atom.Ul: {}, atom.Video: {},
}

// 送信者が入力した & < > をbluemondayから隠すための置換。
// 私用領域の文字と1文字のコードの組で表し、置換文字自体も同様に置き換える。
const marker = '\uE000'

var (
	protectReplacer = strings.NewReplacer(
		string(marker), string(marker)+"e",
		"&", string(marker)+"a",
		"<", string(marker)+"l",
		">", string(marker)+"g",
	)
	restoreReplacer = strings.NewReplacer(
		string(marker)+"e", string(marker),
		string(marker)+"a", "&",
		string(marker)+"l", "<",
		string(marker)+"g", ">",
	)
)

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフで、並行に使用できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTML要素のタグを除去したテキストを返す。
// 除去によって新たなタグが現れる場合（"<<b>b>" など）に備え、変化がなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		next := s.stripElements(text)
		if next == text {
			return text
		}
		text = next
	}
}

// stripElements はHTML要素のタグを1回除去する。タグがなければ入力をそのまま返す。
// タグ以外の部分は & < > を置換してからbluemondayに渡すため、
// 出力に含まれるエンティティはすべてbluemonday自身のエスケープであり、戻しても入力の文字列は変わらない。
func (s *textSanitizer) stripElements(text string) string {
	var b strings.Builder
	last := 0
	found := false

	for _, m := range tagPattern.FindAllStringSubmatchIndex(text, -1) {
		if !isHTMLElement(text[m[2]:m[3]]) {
			continue
		}
		b.WriteString(protectReplacer.Replace(text[last:m[0]]))
		b.WriteString(text[m[0]:m[1]])
		last = m[1]
		found = true
	}
	if !found {
		return text
	}
	b.WriteString(protectReplacer.Replace(text[last:]))

	out := html.UnescapeString(s.policy.Sanitize(b.String()))
	return strings.TrimSpace(restoreReplacer.Replace(out))
}

func isHTMLElement(name string) bool {
	a := atom.Lookup([]byte(strings.ToLower(name)))
	if a == 0 {
		return false
	}
	_, ok := htmlElements[a]
	return ok
}
