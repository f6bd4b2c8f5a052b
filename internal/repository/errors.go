package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation はPostgreSQLの一意制約違反を示すSQLSTATE。
const uniqueViolation = "23505"

// IsUniqueViolation はエラーが一意制約違反かどうかを判定する。
// lib/pqのエラーコードを優先し、それ以外はメッセージの文言で判定する。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
