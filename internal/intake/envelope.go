// Package intake はフォーム送信Webhookの受信処理を提供する。
// 公開コードの解決、生ペイロードの台帳記録、フォーム種別による振り分けを行う。
package intake

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/hitoshi/rsvphook/internal/form"
	"github.com/hitoshi/rsvphook/internal/model"
)

// Envelope はWebhookペイロードから読み取った振り分け用の情報。
type Envelope struct {
	// Raw は受信したペイロードそのもの。
	Raw json.RawMessage
	// Keys はトップレベルのキー一覧（ソート済み）。設定ミスの調査用。
	Keys []string

	Code                 string
	FormType             string
	Provider             string
	ProviderSubmissionID string
	Fields               *form.Fields
}

// Source は受信リクエストのうちペイロード以外の情報。
type Source struct {
	// PathCode はURLパスに含まれる公開コード。最優先で使用する。
	PathCode string
	// QueryCode はクエリパラメータ ?code= の値。
	QueryCode string
	// ProviderHeader はX-Webhook-Providerヘッダーの値。
	ProviderHeader string
}

// tallyData はTally形式のペイロードの data 部分。
type tallyData struct {
	ResponseID   string            `json:"responseId"`
	SubmissionID string            `json:"submissionId"`
	Code         json.RawMessage   `json:"code"`
	WeddingCode  json.RawMessage   `json:"wedding_code"`
	Fields       []form.Descriptor `json:"fields"`
}

// ParseEnvelope はペイロードを解析して振り分け用の情報を取り出す。
// ペイロードがJSONオブジェクトでない場合はINVALID_REQUESTエラーを返す。
//
// 公開コードは過去の連携設定との互換のため、以下の順に探索する:
//
//	URLパス → ?code= → code → wedding_code → public_code → data.code → data.wedding_code → フィールド
func ParseEnvelope(body []byte, src Source, labels form.Labels, defaultProvider string) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, model.NewInvalidRequestError("JSONオブジェクトではありません")
	}
	if top == nil {
		return nil, model.NewInvalidRequestError("JSONオブジェクトではありません")
	}

	env := &Envelope{
		Raw:  json.RawMessage(bytes.TrimSpace(body)),
		Keys: sortedKeys(top),
	}

	var data tallyData
	if raw, ok := top["data"]; ok {
		// dataがオブジェクトでない場合は無視する
		_ = json.Unmarshal(raw, &data)
	}

	descriptors := data.Fields
	if len(descriptors) == 0 {
		if raw, ok := top["fields"]; ok {
			_ = json.Unmarshal(raw, &descriptors)
		}
	}
	env.Fields = form.Parse(descriptors)

	env.Code = firstNonEmpty(
		src.PathCode,
		src.QueryCode,
		rawString(top["code"]),
		rawString(top["wedding_code"]),
		rawString(top["public_code"]),
		rawString(data.Code),
		rawString(data.WeddingCode),
	)
	if env.Code == "" {
		env.Code, _ = env.Fields.FirstString(labels.WeddingCode...)
	}

	env.FormType = rawString(top["form_type"])
	if env.FormType == "" {
		env.FormType, _ = env.Fields.FirstString(labels.FormType...)
	}
	env.FormType = strings.ToLower(env.FormType)

	env.Provider = firstNonEmpty(
		strings.ToLower(rawString(top["provider"])),
		strings.ToLower(strings.TrimSpace(src.ProviderHeader)),
		defaultProvider,
	)

	env.ProviderSubmissionID = firstNonEmpty(
		data.ResponseID,
		data.SubmissionID,
		rawString(top["eventId"]),
		rawString(top["submission_id"]),
		rawString(top["response_id"]),
	)

	return env, nil
}

// rawString はJSONの文字列または数値を文字列として返す。それ以外は空文字列を返す。
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
