// Package textfilter turns a text payload into a classification verdict at a
// given strictness tier.
package textfilter

import (
	"github.com/prepguard/prepguard/internal/moderation"
	"github.com/prepguard/prepguard/internal/moderation/patterns"
)

type Filter struct {
	library *patterns.Library
}

func New() *Filter {
	return &Filter{library: patterns.Get()}
}

// Classify applies the tier-appropriate rule sets to text.
//
// Order matters: empty text is always safe, and educational context short
// circuits everything except blatant commercial spam regardless of tier. The
// override exists to keep legitimate study discussion from tripping word
// lists.
func (f *Filter) Classify(text string, tier moderation.Tier) moderation.Verdict {
	verdict := moderation.Verdict{IsSafe: true, Tier: tier}
	if text == "" {
		return verdict
	}

	if patterns.HasEducationalContext(text) {
		if f.library.HasCommercialSpam(text) {
			verdict.IsSafe = false
			verdict.Violations = append(verdict.Violations, moderation.RuleHit{
				Type:     string(patterns.CategoryCommercialSpam),
				Severity: moderation.SeverityHigh,
			})
		}
		return verdict
	}

	switch tier {
	case moderation.TierTrusted:
		f.applyCommercial(text, &verdict)
	case moderation.TierStrict:
		f.applyNormal(text, &verdict, true)
		f.applyPromotional(text, &verdict)
	default:
		f.applyNormal(text, &verdict, false)
	}

	verdict.IsSafe = len(verdict.Violations) == 0
	return verdict
}

func (f *Filter) applyCommercial(text string, verdict *moderation.Verdict) {
	if f.library.HasCommercialSpam(text) {
		verdict.IsSafe = false
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategoryCommercialSpam),
			Severity: moderation.SeverityHigh,
		})
	}
}

func (f *Filter) applyNormal(text string, verdict *moderation.Verdict, includeCommercial bool) {
	if found := f.library.VulgarMatches(text); len(found) > 0 {
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategoryVulgar),
			Severity: moderation.SeverityHigh,
		})
	}
	if found := f.library.CompetitorMatches(text); len(found) > 0 {
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategoryCompetitor),
			Severity: moderation.SeverityMedium,
		})
	}
	// Educational texts never reach this point, so the threat check only ever
	// sees non-educational content.
	if found := f.library.ScreenshotThreatMatches(text); len(found) > 0 {
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategoryScreenshotThreat),
			Severity: moderation.SeverityHigh,
		})
	}
	spam := f.library.HasSpamIndicators(text)
	if includeCommercial {
		spam = spam || f.library.HasCommercialSpam(text)
	}
	if spam {
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategorySpam),
			Severity: moderation.SeverityMedium,
		})
	}
}

func (f *Filter) applyPromotional(text string, verdict *moderation.Verdict) {
	if f.library.HasPromotionalPhrases(text) {
		verdict.Violations = append(verdict.Violations, moderation.RuleHit{
			Type:     string(patterns.CategoryPromotional),
			Severity: moderation.SeverityMedium,
		})
	}
}
