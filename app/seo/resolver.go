package seo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/superman-links/links-bridge/app/database"
	"github.com/superman-links/links-bridge/app/sanitize"
)

// Availability reports which SEO plugins are installed on the site.
type Availability interface {
	RankMathActive() bool
	YoastActive() bool
}

// provider is one SEO backend. Both variants read and write a focus
// keyword; only RankMath stores score, pillar flag and meta text.
type provider interface {
	Tag() ProviderTag
	ReadFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64) (string, error)
	WriteFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64, keyword string) error
}

type rankMath struct{}

func (rankMath) Tag() ProviderTag { return ProviderRankMath }

func (rankMath) ReadFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64) (string, error) {
	return meta.GetMeta(ctx, postID, RankMathFocusKeyword)
}

func (rankMath) WriteFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64, keyword string) error {
	return meta.SetMeta(ctx, postID, RankMathFocusKeyword, keyword)
}

type yoast struct{}

func (yoast) Tag() ProviderTag { return ProviderYoast }

func (yoast) ReadFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64) (string, error) {
	return meta.GetMeta(ctx, postID, YoastFocusKeyword)
}

func (yoast) WriteFocusKeyword(ctx context.Context, meta database.MetaRepository, postID int64, keyword string) error {
	return meta.SetMeta(ctx, postID, YoastFocusKeyword, keyword)
}

// readOrder is the fallback order for reads. Writes pick the first active.
var readOrder = []provider{rankMath{}, yoast{}}

type Resolver struct {
	meta         database.MetaRepository
	availability Availability
}

func NewResolver(meta database.MetaRepository, availability Availability) *Resolver {
	return &Resolver{meta: meta, availability: availability}
}

// Resolve reads the SEO metadata of a record. The focus keyword comes from
// the first provider with a non-empty value regardless of which plugin is
// active.
func (r *Resolver) Resolve(ctx context.Context, postID int64) (Metadata, error) {
	var raw string
	for _, p := range readOrder {
		value, err := p.ReadFocusKeyword(ctx, r.meta, postID)
		if err != nil {
			return Metadata{}, fmt.Errorf("failed to read %s focus keyword: %w", p.Tag(), err)
		}
		if value != "" {
			raw = value
			break
		}
	}

	md := Metadata{FocusKeywords: SplitKeywords(raw)}
	if len(md.FocusKeywords) > 0 {
		md.FocusKeyword = &md.FocusKeywords[0]
	}

	fields := map[string]string{}
	for _, key := range []string{RankMathSEOScore, RankMathPillarContent, RankMathTitle, RankMathDescription} {
		value, err := r.meta.GetMeta(ctx, postID, key)
		if err != nil {
			return Metadata{}, fmt.Errorf("failed to read SEO metadata: %w", err)
		}
		fields[key] = value
	}

	md.SEOScore = parseScore(fields[RankMathSEOScore])
	md.IsPillar = fields[RankMathPillarContent] == pillarContentOnMarker
	md.MetaTitle = nonEmpty(fields[RankMathTitle])
	md.MetaDescription = nonEmpty(fields[RankMathDescription])

	return md, nil
}

// PrimaryKeyword resolves only the first focus keyword. Read errors yield nil.
func (r *Resolver) PrimaryKeyword(ctx context.Context, postID int64) *string {
	md, err := r.Resolve(ctx, postID)
	if err != nil {
		return nil
	}
	return md.FocusKeyword
}

// SetFocusKeyword stores the raw keyword string on the active provider,
// RankMath first. Nothing is written when neither plugin is active.
func (r *Resolver) SetFocusKeyword(ctx context.Context, postID int64, keyword string) (ProviderTag, error) {
	p := r.activeProvider()
	if p == nil {
		return "", ErrNoProviderConfigured
	}

	if err := p.WriteFocusKeyword(ctx, r.meta, postID, keyword); err != nil {
		return "", fmt.Errorf("failed to write %s focus keyword: %w", p.Tag(), err)
	}

	return p.Tag(), nil
}

// SetMetaText writes meta title and description. Only RankMath stores
// them; empty values are skipped.
func (r *Resolver) SetMetaText(ctx context.Context, postID int64, title, description string) error {
	if !r.availability.RankMathActive() {
		return nil
	}

	if title != "" {
		if err := r.meta.SetMeta(ctx, postID, RankMathTitle, sanitize.Text(title)); err != nil {
			return err
		}
	}
	if description != "" {
		if err := r.meta.SetMeta(ctx, postID, RankMathDescription, sanitize.Textarea(description)); err != nil {
			return err
		}
	}

	return nil
}

func (r *Resolver) activeProvider() provider {
	switch {
	case r.availability.RankMathActive():
		return rankMath{}
	case r.availability.YoastActive():
		return yoast{}
	default:
		return nil
	}
}

// SplitKeywords splits a comma-joined keyword list into trimmed, non-empty
// tokens, preserving order.
func SplitKeywords(raw string) []string {
	keywords := []string{}
	for _, token := range strings.Split(raw, keywordDelimiter) {
		if token = strings.TrimSpace(token); token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// parseScore treats empty, zero and non-numeric scores as absent.
func parseScore(raw string) *int {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || score == 0 {
		return nil
	}
	return &score
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
