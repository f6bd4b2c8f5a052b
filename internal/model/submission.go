package model

import (
	"encoding/json"
	"time"
)

// RawSubmission はWebhookで受信した生ペイロードの台帳エントリを表す。
// 作成後に更新・削除されることはない。
type RawSubmission struct {
	ID        string
	WeddingID string
	Provider  string
	// ProviderSubmissionID は送信元が採番した送信ID。
	// 空の場合は重複検出の対象外となる。
	ProviderSubmissionID string
	Payload              json.RawMessage
	CreatedAt            time.Time
}

// LedgerEntry は台帳への記録結果を表す。
type LedgerEntry struct {
	ID string
	// Duplicate は同一送信IDの既存エントリを返した場合にtrueとなる。
	Duplicate bool
}
