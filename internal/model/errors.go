// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Webhook送信元の設定ミスを調査できるよう、原因カテゴリを含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, not_found, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeUnknownCode       = "UNKNOWN_CODE"
	ErrCodeAmbiguousIdentity = "AMBIGUOUS_IDENTITY"
	ErrCodeInvalidReference  = "INVALID_REFERENCE"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeHouseholdNotFound = "HOUSEHOLD_NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディが解析できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストボディの解析に失敗しました: %s", reason),
		Category: "validation",
	}
}

// NewUnknownCodeError は公開コードから結婚式を解決できない場合のエラーを生成する。
func NewUnknownCodeError(code string) *APIError {
	if code == "" {
		return &APIError{
			Code:     ErrCodeUnknownCode,
			Message:  "公開コードが指定されていません。",
			Category: "validation",
		}
	}
	return &APIError{
		Code:     ErrCodeUnknownCode,
		Message:  fmt.Sprintf("公開コードに対応する結婚式が見つかりません: %s", code),
		Category: "validation",
	}
}

// NewAmbiguousIdentityError は電話番号・メールアドレスのいずれも得られない場合のエラーを生成する。
func NewAmbiguousIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeAmbiguousIdentity,
		Message:  "電話番号またはメールアドレスのいずれかが必要です。",
		Category: "validation",
	}
}

// NewInvalidReferenceError は世帯IDの形式が不正な場合のエラーを生成する。
func NewInvalidReferenceError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReference,
		Message:  fmt.Sprintf("世帯IDの形式が不正です: %q", ref),
		Category: "validation",
	}
}

// NewInvalidStatusError は出欠ステータスが yes/no に正規化できない場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("出欠ステータスが不正です: %q", status),
		Category: "validation",
	}
}

// NewHouseholdNotFoundError は世帯が見つからない場合のエラーを生成する。
// 他の結婚式に属する世帯の場合も同じエラーを返し、存在有無を漏らさない。
func NewHouseholdNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeHouseholdNotFound,
		Message:  "指定された世帯が見つかりません。",
		Category: "not_found",
	}
}
