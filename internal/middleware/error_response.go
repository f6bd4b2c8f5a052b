package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/rsvphook/internal/model"
)

// ErrorResponseBody はミドルウェアが返すエラーレスポンスのフォーマット。
// Webhookハンドラーの失敗レスポンスと同じく ok=false を含める。
type ErrorResponseBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteErrorResponse はエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		OK:    false,
		Error: message,
		Code:  code,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、送信元には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.ErrCodeInternal, "internal server error")
}
