package intake

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/hitoshi/rsvphook/internal/form"
	"github.com/hitoshi/rsvphook/internal/household"
	"github.com/hitoshi/rsvphook/internal/metrics"
	"github.com/hitoshi/rsvphook/internal/model"
	"github.com/hitoshi/rsvphook/internal/normalize"
	"github.com/hitoshi/rsvphook/internal/rsvp"
	"github.com/hitoshi/rsvphook/internal/security"
)

// フォーム種別
const (
	FormTypeContactSheet = "contact_sheet"
	FormTypeRSVP         = "rsvp"
)

// RoutedRawOnly は生ペイロードの記録のみで処理を終えたことを示す振り分け結果。
const RoutedRawOnly = "raw_only"

// CodeResolver は公開コードを結婚式IDに解決するインターフェース。
type CodeResolver interface {
	Resolve(ctx context.Context, code string) (string, error)
}

// Ledger は生ペイロードを記録するインターフェース。
type Ledger interface {
	Record(ctx context.Context, weddingID, provider, providerSubmissionID string, payload json.RawMessage) (*model.LedgerEntry, error)
}

// HouseholdMatcher は世帯を照合・統合するインターフェース。
type HouseholdMatcher interface {
	Match(ctx context.Context, in household.MatchInput) (*model.HouseholdMatch, error)
}

// RSVPApplier は出欠回答を反映するインターフェース。
type RSVPApplier interface {
	Apply(ctx context.Context, in rsvp.ApplyInput) (*rsvp.ApplyResult, error)
}

// Outcome は1件の送信の処理結果。
type Outcome struct {
	WeddingID       string
	Routed          string
	RawSubmissionID string
	Duplicate       bool
	Household       *model.HouseholdMatch
	RSVP            *rsvp.ApplyResult
}

// RawOnly は振り分け先がなく生ペイロードの記録のみ行った場合にtrueを返す。
func (o *Outcome) RawOnly() bool {
	return o.Routed == RoutedRawOnly
}

// RouterConfig はRouterの設定。
type RouterConfig struct {
	Labels      form.Labels
	CountryCode string
}

// Router はフォーム種別に応じて送信を処理に振り分ける。
// 公開コードの解決と生ペイロードの記録は振り分けの前に必ず行う。
// インスタンスは状態を持たず、並行に呼び出してよい。
type Router struct {
	resolver  CodeResolver
	ledger    Ledger
	matcher   HouseholdMatcher
	applier   RSVPApplier
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	config    RouterConfig
}

// NewRouter はRouterの新しいインスタンスを生成する。
func NewRouter(
	resolver CodeResolver,
	ledger Ledger,
	matcher HouseholdMatcher,
	applier RSVPApplier,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
	config RouterConfig,
) *Router {
	if config.CountryCode == "" {
		config.CountryCode = normalize.DefaultCountryCode
	}
	return &Router{
		resolver:  resolver,
		ledger:    ledger,
		matcher:   matcher,
		applier:   applier,
		sanitizer: sanitizer,
		metrics:   collector,
		config:    config,
	}
}

// Route は送信を処理する。
//  1. 公開コードを結婚式IDに解決する
//  2. 生ペイロードを台帳に記録する（フォーム種別に関わらず必ず実行）
//  3. contact_sheet → 世帯照合、rsvp → 出欠回答の反映、それ以外 → 記録のみ
//
// 未知のフォーム種別はエラーにしない。記録時点で監査証跡は揃っている。
func (r *Router) Route(ctx context.Context, env *Envelope) (*Outcome, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordProcessingLatency(time.Since(start))
	}()

	weddingID, err := r.resolver.Resolve(ctx, env.Code)
	if err != nil {
		return nil, err
	}

	entry, err := r.ledger.Record(ctx, weddingID, env.Provider, env.ProviderSubmissionID, env.Raw)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordSubmissionLedgered(env.Provider, entry.Duplicate)

	out := &Outcome{
		WeddingID:       weddingID,
		RawSubmissionID: entry.ID,
		Duplicate:       entry.Duplicate,
	}

	switch env.FormType {
	case FormTypeContactSheet:
		out.Routed = FormTypeContactSheet
		match, err := r.matcher.Match(ctx, r.contactInput(weddingID, entry.ID, env.Fields))
		if err != nil {
			return nil, err
		}
		out.Household = match
		r.metrics.RecordHouseholdAction(string(match.Action))

	case FormTypeRSVP:
		out.Routed = FormTypeRSVP
		result, err := r.applier.Apply(ctx, r.rsvpInput(weddingID, entry.ID, env.Fields))
		if err != nil {
			return nil, err
		}
		out.RSVP = result
		r.metrics.RecordRSVPApplied(string(result.Status), result.GuestsUpdated)

	default:
		out.Routed = RoutedRawOnly
	}

	r.metrics.RecordRouted(out.Routed)
	return out, nil
}

// contactInput は連絡先フォームのフィールドから世帯照合の入力を組み立てる。
func (r *Router) contactInput(weddingID, submissionID string, fields *form.Fields) household.MatchInput {
	l := r.config.Labels
	text := func(labels []string) string {
		s, _ := fields.FirstString(labels...)
		return r.sanitizer.Sanitize(s)
	}

	name := strings.TrimSpace(text(l.FirstName) + " " + text(l.LastName))
	if name == "" {
		name = text(l.FullName)
	}

	phoneRaw, _ := fields.FirstString(l.Phone...)
	emailRaw, _ := fields.FirstString(l.Email...)
	phone, _ := normalize.PhoneWithCountryCode(phoneRaw, r.config.CountryCode)
	email, _ := normalize.Email(emailRaw)

	return household.MatchInput{
		WeddingID:       weddingID,
		PhoneNormalized: phone,
		EmailNormalized: email,
		SubmissionID:    submissionID,
		Fields: model.ContactFields{
			PrimaryName: name,
			PhoneRaw:    phoneRaw,
			EmailRaw:    emailRaw,
			Address: model.Address{
				Line1:      text(l.AddressLine1),
				Line2:      text(l.AddressLine2),
				City:       text(l.City),
				Region:     text(l.Region),
				PostalCode: text(l.PostalCode),
				Country:    text(l.Country),
			},
		},
	}
}

// rsvpInput は出欠フォームのフィールドから出欠回答の入力を組み立てる。
// フォームに存在しない項目はnilのままとし、既存の回答を消さない。
func (r *Router) rsvpInput(weddingID, submissionID string, fields *form.Fields) rsvp.ApplyInput {
	l := r.config.Labels

	ref, _ := fields.FirstString(l.HouseholdID...)
	status, _ := fields.FirstString(l.RSVPStatus...)

	in := rsvp.ApplyInput{
		WeddingID:    weddingID,
		HouseholdRef: ref,
		Status:       status,
		SubmissionID: submissionID,
	}

	if s, ok := fields.FirstString(l.DietaryNotes...); ok {
		v := r.sanitizer.Sanitize(s)
		in.DietaryNotes = &v
	}
	if s, ok := fields.FirstString(l.Questions...); ok {
		v := r.sanitizer.Sanitize(s)
		in.Questions = &v
	}
	if events, ok := fields.FirstStrings(l.Events...); ok {
		in.Events = make([]string, 0, len(events))
		for _, e := range events {
			if e = r.sanitizer.Sanitize(e); e != "" {
				in.Events = append(in.Events, e)
			}
		}
	}
	// 負の人数とINTEGER列に収まらない人数は未回答として扱う
	if n, ok := fields.FirstInt(l.PartySize...); ok && n >= 0 && n <= math.MaxInt32 {
		in.PartySize = &n
	}

	return in
}
