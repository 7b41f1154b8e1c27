package seo

import (
	"errors"
)

// ProviderTag names the SEO backend a write went to.
type ProviderTag string

const (
	ProviderRankMath ProviderTag = "rankmath"
	ProviderYoast    ProviderTag = "yoast"
)

// Stored meta keys of both providers.
const (
	RankMathFocusKeyword  = "rank_math_focus_keyword"
	RankMathSEOScore      = "rank_math_seo_score"
	RankMathPillarContent = "rank_math_pillar_content"
	RankMathTitle         = "rank_math_title"
	RankMathDescription   = "rank_math_description"
	YoastFocusKeyword     = "_yoast_wpseo_focuskw"
)

const (
	keywordDelimiter      = ","
	pillarContentOnMarker = "on"
)

var ErrNoProviderConfigured = errors.New("no supported SEO plugin found (RankMath or Yoast)")

// Metadata is the resolved SEO state of one record.
type Metadata struct {
	FocusKeyword    *string  `json:"focus_keyword"`
	FocusKeywords   []string `json:"focus_keywords"`
	SEOScore        *int     `json:"seo_score"`
	IsPillar        bool     `json:"is_pillar"`
	MetaTitle       *string  `json:"meta_title"`
	MetaDescription *string  `json:"meta_description"`
}

// FocusKeywordMetaKeys lists every field that can hold a focus keyword.
func FocusKeywordMetaKeys() []string {
	return []string{RankMathFocusKeyword, YoastFocusKeyword}
}
