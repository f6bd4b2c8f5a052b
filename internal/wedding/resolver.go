// Package wedding は公開コードから結婚式の内部IDを解決する機能を提供する。
package wedding

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/rsvphook/internal/model"
	"github.com/hitoshi/rsvphook/internal/repository"
)

// Resolver は公開コードを結婚式の内部IDに解決する。副作用は持たない。
type Resolver struct {
	weddingRepo repository.WeddingRepository
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(weddingRepo repository.WeddingRepository) *Resolver {
	return &Resolver{weddingRepo: weddingRepo}
}

// Resolve は公開コードに完全一致する結婚式の内部IDを返す。
// 一致する結婚式がない場合、または保存されているIDがUUIDとして不正な場合は
// UNKNOWN_CODEエラーを返す。ストア障害はそのまま返す。
func (r *Resolver) Resolve(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", model.NewUnknownCodeError("")
	}

	w, err := r.weddingRepo.FindByPublicCode(ctx, code)
	if err != nil {
		return "", err
	}
	if w == nil {
		return "", model.NewUnknownCodeError(code)
	}

	id, err := uuid.Parse(w.ID)
	if err != nil {
		return "", model.NewUnknownCodeError(code)
	}

	return id.String(), nil
}
