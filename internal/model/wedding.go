package model

import "time"

// Wedding は全レコードのスコープ境界となる結婚式（テナント）を表す。
// 本サービスからは読み取り専用。
type Wedding struct {
	ID         string
	PublicCode string
	Name       string
	CreatedAt  time.Time
}
