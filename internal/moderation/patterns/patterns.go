// Package patterns holds the precompiled rule sets the classifiers run
// against. Everything is compiled once at first use and shared; callers never
// compile regexes per message.
package patterns

import (
	"regexp"
	"strings"
	"sync"
)

type Category string

const (
	CategoryVulgar           Category = "vulgar_content"
	CategoryCompetitor       Category = "competitor_content"
	CategoryScreenshotThreat Category = "screenshot_threat"
	CategorySpam             Category = "spam_pattern"
	CategoryCommercialSpam   Category = "commercial_spam"
	CategoryPromotional      Category = "promotional_pattern"
)

var vulgarWords = []string{
	"chutiya", "mc", "gandu", "lodu", "pagal", "lund", "chut", "fuck",
	"bsdk", "madrchod", "madrchd", "nudes", "hot pic", "takla", "sexy",
	"handjob", "mutthi", "masturbation", "pussy", "dick", "randi", "rand",
	"gand", "gaand", "gaandu", "doglapan", "dogla", "bhosdike", "bhosdika",
	"bhosdiki", "chu*iya", "ch*tiya", "chut1ya",
	"m@derch0d", "b$dk", "g@ndu",
	"f-uck", "f**k", "ph*ck", "f*ck", "fuk", "fuker", "fuking",
	"l0du", "r@ndi", "r@nd",
	"delete this group", "report this channel", "waste channel", "useless channel",
	"useless group", "fake channel", "fake group", "scam channel",
	"bhenchod", "sisterfucker",
	"rakshas", "harami", "kameena", "badtameez",
	"chodu", "lavde", "bhosadi", "bhosadi ke", "bhosadi ki", "bhosadi ka",
	"bhosadi wale",
}

var competitorKeywords = []string{
	"allen", "ellen", "alen", "aleen", "alenn", "allleen", "alien",
	"akash", "aakash", "aksh", "aaksh", "pw", "physics wallaha",
	"physics wallah", "coaching",
}

var screenshotIndicators = []string{
	"report admin", "report channel", "scam", "fraud",
	"false report", "ban channel", "shut down", "report group",
}

// Educational keywords relax filtering. Matched as substrings, same as the
// caption check in the image path.
var educationalKeywords = []string{
	"neet", "question", "doubt", "solve", "answer", "physics", "chemistry",
	"biology", "math", "mathematics", "solution", "help", "explain", "concept",
	"formula", "ncert", "jee", "study", "exam", "preparation", "syllabus",
	"chapter", "topic", "theory", "practice", "test", "mock", "sample",
}

// Caption keywords are the narrower set the image path trusts. Conversational
// study words like "doubt" or "help" are too cheap to type next to a logo, so
// they relax text filtering but not image filtering.
var captionEducationalKeywords = []string{
	"neet", "jee", "physics", "chemistry", "biology", "mathematics",
	"question", "answer", "solution", "ncert", "cbse", "study",
	"exam", "preparation", "practice", "test", "mock", "sample",
}

// URLs pointing at exam-prep resources are fine, everything else counts as spam.
var allowedURLDomains = []string{"neetprep", "neet", "ncert", "cbse", "nta.ac.in"}

var spamIndicators = []string{
	`\b(?:call|contact|whatsapp)\s*:?\s*\+?\d+`,
	`(?:dm|message)\s+me`,
	`click\s+(?:here|link)`,
	`join\s+(?:my|our)\s+(?:channel|group)`,
	`free\s+(?:download|pdf|course)`,
	`limited\s+time\s+offer`,
	`buy\s+now`,
	`discount\s+code`,
}

var commercialSpamIndicators = []string{
	`buy\s+(?:now|course|pdf)`,
	`₹\s*\d+`,
	`discount\s+(?:code|offer)`,
	`limited\s+time\s+offer`,
	`call\s+now`,
	`whatsapp\s+\+?\d+`,
	`dm\s+for\s+(?:course|pdf|notes)`,
}

var promotionalPhrases = []string{
	"join my", "follow me", "check my", "visit my",
	"subscribe to", "like and share", "comment below",
}

type Library struct {
	vulgar     []*regexp.Regexp
	competitor []*regexp.Regexp
	screenshot []*regexp.Regexp
	spam       []*regexp.Regexp
	commercial []*regexp.Regexp
	urls       *regexp.Regexp
}

var (
	instance *Library
	once     sync.Once
)

// Get returns the shared library, compiling every rule set on first call.
func Get() *Library {
	once.Do(func() {
		instance = &Library{
			vulgar:     compileWords(vulgarWords),
			competitor: compileWords(competitorKeywords),
			screenshot: compileWords(screenshotIndicators),
			spam:       compileRaw(spamIndicators),
			commercial: compileRaw(commercialSpamIndicators),
			urls:       regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`),
		}
	})
	return instance
}

// compileWords builds whole-word, case-insensitive matchers. Partial matches
// inside unrelated words must not fire.
func compileWords(words []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		compiled = append(compiled, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return compiled
}

func compileRaw(exprs []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+expr))
	}
	return compiled
}

func findAll(patterns []*regexp.Regexp, text string) []string {
	var found []string
	for _, pattern := range patterns {
		found = append(found, pattern.FindAllString(text, -1)...)
	}
	return found
}

// VulgarMatches returns every vulgar word or phrase found in text.
func (l *Library) VulgarMatches(text string) []string {
	return findAll(l.vulgar, text)
}

// CompetitorMatches returns every competitor brand mention found in text.
func (l *Library) CompetitorMatches(text string) []string {
	return findAll(l.competitor, text)
}

// ScreenshotThreatMatches returns matched threat indicators. Callers gate this
// on the absence of educational context.
func (l *Library) ScreenshotThreatMatches(text string) []string {
	return findAll(l.screenshot, text)
}

// HasSpamIndicators reports generic spam phrasing, including URLs outside the
// exam-prep allow-list.
func (l *Library) HasSpamIndicators(text string) bool {
	if text == "" {
		return false
	}
	for _, url := range l.urls.FindAllString(text, -1) {
		lower := strings.ToLower(url)
		allowed := false
		for _, domain := range allowedURLDomains {
			if strings.Contains(lower, domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	for _, pattern := range l.spam {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// HasCommercialSpam reports blatant commercial promotion. This is the only
// rule set that applies even inside educational context.
func (l *Library) HasCommercialSpam(text string) bool {
	for _, pattern := range l.commercial {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// HasPromotionalPhrases reports self-promotion phrasing checked for strict
// tier users only.
func (l *Library) HasPromotionalPhrases(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range promotionalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// HasEducationalContext reports whether text reads as study discussion.
// Substring containment is intentional, "maths" should count as "math".
func HasEducationalContext(text string) bool {
	return containsAny(text, educationalKeywords)
}

// HasEducationalCaption is the stricter educational check for image captions.
func HasEducationalCaption(text string) bool {
	return containsAny(text, captionEducationalKeywords)
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
