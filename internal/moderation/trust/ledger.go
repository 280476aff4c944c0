// Package trust maintains the per-user trust posture: an append-only
// violation history, a warning counter, and a score derived from tenure and
// past offenses. The ledger is the single owner of this state; other
// components only read through its methods.
package trust

import (
	"sort"
	"sync"
	"time"

	"github.com/prepguard/prepguard/internal/moderation"
)

const (
	baseScore         = 50
	tenureBonusCap    = 20
	tenureBonusPerDay = 2
	violationPenalty  = 15
	warningPenalty    = 10

	tierTrustedMin = 80
	tierNormalMin  = 60
)

// Violation is one recorded classification failure. Immutable once appended.
type Violation struct {
	ContentKind   moderation.ContentKind
	RuleHits      []moderation.RuleHit
	WarningNumber int
	OccurredAt    time.Time
}

// UserTrustRecord is a read-only snapshot of one user's standing.
type UserTrustRecord struct {
	UserID       int64
	Score        int
	JoinedAt     time.Time
	WarningCount int
	Violations   []Violation
}

type record struct {
	joinedAt     time.Time
	warningCount int
	violations   []Violation
	score        int
	overridden   bool
}

type Ledger struct {
	mu      sync.RWMutex
	records map[int64]*record
	now     func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		records: map[int64]*record{},
		now:     time.Now,
	}
}

// Score returns the user's current trust score, creating a neutral record on
// first sight. The score is recomputed from the ledger on every call unless an
// admin override is in effect; any violation or warning mutation drops the
// override.
func (l *Ledger) Score(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(userID)
	if rec.overridden {
		return rec.score
	}
	rec.score = l.compute(rec)
	return rec.score
}

// SetScore force-sets a user's score, clamped to [0,100]. The override holds
// until the next violation or warning recomputes the formula.
func (l *Ledger) SetScore(userID int64, score int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(userID)
	rec.score = clamp(score)
	rec.overridden = true
	return rec.score
}

// RecordViolation appends a violation, increments the warning counter and
// returns the new warning count.
func (l *Ledger) RecordViolation(userID int64, kind moderation.ContentKind, hits []moderation.RuleHit) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(userID)
	rec.warningCount++
	rec.violations = append(rec.violations, Violation{
		ContentKind:   kind,
		RuleHits:      append([]moderation.RuleHit(nil), hits...),
		WarningNumber: rec.warningCount,
		OccurredAt:    l.now(),
	})
	rec.overridden = false
	rec.score = l.compute(rec)
	return rec.warningCount
}

// Reset destroys the user's record entirely. The next reference starts from a
// fresh neutral record, as if the user was never seen.
func (l *Ledger) Reset(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, userID)
}

// ResetWarnings clears warnings and violations but keeps the join time, so
// tenure-based trust survives an admin pardon. Returns false if the user had
// nothing to reset.
func (l *Ledger) ResetWarnings(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[userID]
	if !ok || rec.warningCount == 0 {
		return false
	}
	rec.warningCount = 0
	rec.violations = nil
	rec.overridden = false
	rec.score = l.compute(rec)
	return true
}

// WarningCount returns the user's warning count without creating a record.
func (l *Ledger) WarningCount(userID int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rec, ok := l.records[userID]; ok {
		return rec.warningCount
	}
	return 0
}

// History returns a copy of the user's violation sequence in append order.
func (l *Ledger) History(userID int64) []Violation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[userID]
	if !ok {
		return nil
	}
	return append([]Violation(nil), rec.violations...)
}

// Record returns a snapshot of the user's full record, creating it if absent.
func (l *Ledger) Record(userID int64) UserTrustRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.ensure(userID)
	if !rec.overridden {
		rec.score = l.compute(rec)
	}
	return UserTrustRecord{
		UserID:       userID,
		Score:        rec.score,
		JoinedAt:     rec.joinedAt,
		WarningCount: rec.warningCount,
		Violations:   append([]Violation(nil), rec.violations...),
	}
}

// Warnings returns user IDs with at least one warning, sorted by ID, with
// their counts.
func (l *Ledger) Warnings() ([]int64, map[int64]int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := map[int64]int{}
	var ids []int64
	for userID, rec := range l.records {
		if rec.warningCount > 0 {
			counts[userID] = rec.warningCount
			ids = append(ids, userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, counts
}

// LevelCounts tallies tracked users by trust level.
func (l *Ledger) LevelCounts() (map[string]int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := map[string]int{}
	for _, rec := range l.records {
		score := rec.score
		if !rec.overridden {
			score = l.compute(rec)
			rec.score = score
		}
		counts[LevelFor(score)]++
	}
	return counts, len(l.records)
}

func (l *Ledger) ensure(userID int64) *record {
	rec, ok := l.records[userID]
	if !ok {
		rec = &record{joinedAt: l.now(), score: baseScore}
		l.records[userID] = rec
	}
	return rec
}

func (l *Ledger) compute(rec *record) int {
	days := l.now().Sub(rec.joinedAt).Hours() / 24
	tenureBonus := days * tenureBonusPerDay
	if tenureBonus > tenureBonusCap {
		tenureBonus = tenureBonusCap
	}
	score := baseScore + int(tenureBonus) -
		violationPenalty*len(rec.violations) -
		warningPenalty*rec.warningCount
	return clamp(score)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// TierFor maps a score to the filtering strictness applied to the user.
func TierFor(score int) moderation.Tier {
	switch {
	case score >= tierTrustedMin:
		return moderation.TierTrusted
	case score >= tierNormalMin:
		return moderation.TierNormal
	default:
		return moderation.TierStrict
	}
}

// LevelFor maps a score to the human-readable trust level.
func LevelFor(score int) string {
	switch {
	case score >= 80:
		return "TRUSTED"
	case score >= 60:
		return "GOOD"
	case score >= 40:
		return "NEUTRAL"
	case score >= 20:
		return "MONITORED"
	default:
		return "RESTRICTED"
	}
}
