// Package form はWebhookペイロードに含まれる動的なフィールド一覧から値を取り出す機能を提供する。
//
// フォーム提供元ごとにフィールド構成は異なり、順序にも意味はない。
// ラベルで値を引き、見つからない場合はエラーではなく「値なし」として扱う。
package form

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Option は選択肢型フィールドの選択肢を表す。
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Descriptor はフィールド一覧の1要素を表す。
type Descriptor struct {
	Key     string          `json:"key,omitempty"`
	Label   string          `json:"label"`
	Type    string          `json:"type,omitempty"`
	Value   json.RawMessage `json:"value"`
	Options []Option        `json:"options,omitempty"`
}

// Value は選択肢IDを表示テキストに解決済みのフィールド値。
// 文字列・数値・真偽値のスカラー、またはそれらのリストを保持する。
type Value struct {
	scalar any
	list   []any
	isList bool
}

// Fields はラベルから値を引くためのマップ。
// ゼロ値は空のフィールド一覧として使用できる。
type Fields struct {
	values map[string]Value
}

// Parse はフィールド一覧を1回走査してラベル→値のマップを構築する。
// 同じラベルが複数ある場合は先頭の値を採用する。
// 値がnullまたは解釈できないフィールドは存在しないものとして扱う。
func Parse(descriptors []Descriptor) *Fields {
	f := &Fields{values: make(map[string]Value, len(descriptors))}
	for _, d := range descriptors {
		label := normalizeLabel(d.Label)
		if label == "" {
			continue
		}
		if _, exists := f.values[label]; exists {
			continue
		}
		v, ok := decodeValue(d.Value, d.Options)
		if !ok {
			continue
		}
		f.values[label] = v
	}
	return f
}

// Len は値を持つラベルの数を返す。
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.values)
}

// Lookup は指定ラベルの値を返す。ラベルは大文字小文字と前後の空白を無視して比較する。
func (f *Fields) Lookup(label string) (Value, bool) {
	if f == nil || f.values == nil {
		return Value{}, false
	}
	v, ok := f.values[normalizeLabel(label)]
	return v, ok
}

// String は指定ラベルの値を文字列として返す。リストはカンマ区切りで連結する。
func (f *Fields) String(label string) (string, bool) {
	v, ok := f.Lookup(label)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// Strings は指定ラベルの値を文字列リストとして返す。スカラーは要素1つのリストになる。
func (f *Fields) Strings(label string) ([]string, bool) {
	v, ok := f.Lookup(label)
	if !ok {
		return nil, false
	}
	return v.Strings(), true
}

// Int は指定ラベルの値を整数として返す。整数として解釈できない場合は値なしとする。
func (f *Fields) Int(label string) (int, bool) {
	v, ok := f.Lookup(label)
	if !ok {
		return 0, false
	}
	return v.Int()
}

// FirstString はラベル候補を順に調べ、最初に見つかった値を返す。
func (f *Fields) FirstString(labels ...string) (string, bool) {
	for _, l := range labels {
		if s, ok := f.String(l); ok {
			return s, true
		}
	}
	return "", false
}

// FirstStrings はラベル候補を順に調べ、最初に見つかった値をリストで返す。
func (f *Fields) FirstStrings(labels ...string) ([]string, bool) {
	for _, l := range labels {
		if s, ok := f.Strings(l); ok {
			return s, true
		}
	}
	return nil, false
}

// FirstInt はラベル候補を順に調べ、最初に見つかった値を整数で返す。
func (f *Fields) FirstInt(labels ...string) (int, bool) {
	for _, l := range labels {
		if _, present := f.Lookup(l); !present {
			continue
		}
		return f.Int(l)
	}
	return 0, false
}

// String は値を文字列で返す。
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.Strings(), ", ")
	}
	return scalarString(v.scalar)
}

// Strings は値を文字列リストで返す。
func (v Value) Strings() []string {
	if !v.isList {
		return []string{scalarString(v.scalar)}
	}
	out := make([]string, 0, len(v.list))
	for _, e := range v.list {
		out = append(out, scalarString(e))
	}
	return out
}

// Int は値を整数で返す。
func (v Value) Int() (int, bool) {
	if v.isList {
		if len(v.list) != 1 {
			return 0, false
		}
		return scalarInt(v.list[0])
	}
	return scalarInt(v.scalar)
}

// decodeValue はJSON値をデコードし、選択肢IDを表示テキストに解決する。
func decodeValue(raw json.RawMessage, options []Option) (Value, bool) {
	if len(raw) == 0 {
		return Value{}, false
	}

	var decoded any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return Value{}, false
	}

	optionText := make(map[string]string, len(options))
	for _, o := range options {
		if o.ID != "" {
			optionText[o.ID] = o.Text
		}
	}

	switch t := decoded.(type) {
	case nil:
		return Value{}, false
	case []any:
		list := make([]any, 0, len(t))
		for _, e := range t {
			if e == nil {
				continue
			}
			if !isScalar(e) {
				continue
			}
			list = append(list, resolveOption(e, optionText))
		}
		return Value{list: list, isList: true}, true
	default:
		if !isScalar(t) {
			return Value{}, false
		}
		return Value{scalar: resolveOption(t, optionText)}, true
	}
}

// resolveOption は選択肢IDに対応する表示テキストがあれば置き換える。
// 対応がない場合は元の値をそのまま返す。
func resolveOption(v any, optionText map[string]string) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if text, found := optionText[s]; found {
		return text
	}
	return s
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, json.Number, bool:
		return true
	default:
		return false
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func scalarInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			return int(f), true
		}
		return 0, false
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
