// Package retention tracks seen message IDs per chat and drives the
// time-windowed deletion machinery: one-shot sweeps, read-only previews,
// recurring auto-deletion tasks and the periodic history cleanup.
package retention

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// AutoCadence is how often a recurring deletion task sweeps.
	AutoCadence = 10 * time.Minute
	// CleanupCadence is how often tracked history is pruned.
	CleanupCadence = time.Hour
	// RetentionCeiling mirrors the platform's own hard deletion limit;
	// nothing older can be deleted anyway, so tracking it is pointless.
	RetentionCeiling = 48 * time.Hour

	rateLimitBatch = 30
	rateLimitPause = time.Second
)

var (
	// ErrMessageNotFound marks a delete that failed because the message is
	// already gone. The transport adapter maps platform errors onto this.
	ErrMessageNotFound = errors.New("message to delete not found")
	// ErrMessageProtected marks a delete the platform refused, typically an
	// admin or system message.
	ErrMessageProtected = errors.New("message cannot be deleted")

	ErrDuplicateTask = errors.New("auto-deletion already active for this window")
)

// Deleter is the single transport capability the scheduler needs.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type SweepResult struct {
	DeletedCount int
	ErrorCount   int
}

type PreviewResult struct {
	WillDeleteCount int
	WillSkipCount   int
	TotalTracked    int
	OldestAge       time.Duration
}

type trackedMessage struct {
	messageID int
	seenAt    time.Time
}

type Scheduler struct {
	deleter Deleter
	now     func() time.Time

	mu      sync.Mutex
	tracked map[int64]map[int]time.Time
	tasks   map[int64]map[int]context.CancelFunc

	runMutex  sync.Mutex
	started   bool
	runCtx    context.Context
	runCancel context.CancelFunc
	workersWg sync.WaitGroup

	autoCadence    time.Duration
	cleanupCadence time.Duration
	pause          func(ctx context.Context, d time.Duration)
}

func NewScheduler(deleter Deleter) *Scheduler {
	return &Scheduler{
		deleter:        deleter,
		now:            time.Now,
		tracked:        map[int64]map[int]time.Time{},
		tasks:          map[int64]map[int]context.CancelFunc{},
		autoCadence:    AutoCadence,
		cleanupCadence: CleanupCadence,
		pause:          sleepWithContext,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if s.started {
		return nil
	}

	s.runCtx, s.runCancel = context.WithCancel(ctx)

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()
		ticker := time.NewTicker(s.cleanupCadence)
		defer ticker.Stop()

		for {
			select {
			case <-s.runCtx.Done():
				return
			case <-ticker.C:
				if evicted := s.CleanupOldHistory(); evicted > 0 {
					log.WithField("evicted", evicted).Info("cleaned up old message records")
				}
			}
		}
	}()

	s.started = true
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.runMutex.Lock()
	if !s.started {
		s.runMutex.Unlock()
		return nil
	}
	s.started = false
	cancel := s.runCancel
	s.runMutex.Unlock()

	s.mu.Lock()
	s.tasks = map[int64]map[int]context.CancelFunc{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.workersWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Track upserts a message into the tracked set. Called for every observed
// message, safe or not.
func (s *Scheduler) Track(chatID int64, messageID int, seenAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.tracked[chatID]
	if !ok {
		chat = map[int]time.Time{}
		s.tracked[chatID] = chat
	}
	chat[messageID] = seenAt
}

// TrackedCount returns the number of tracked messages for a chat.
func (s *Scheduler) TrackedCount(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked[chatID])
}

// Sweep deletes every tracked message in chatID older than cutoff, oldest
// first. A not-found failure unconditionally untracks the message (it is
// already gone); a protected message stays tracked. Both count as errors.
// Once started, a sweep runs its full deletion pass to completion.
func (s *Scheduler) Sweep(ctx context.Context, chatID int64, cutoff time.Time) SweepResult {
	targets := s.messagesOlderThan(chatID, cutoff)
	result := SweepResult{}

	for _, target := range targets {
		err := s.deleter.DeleteMessage(ctx, chatID, target.messageID)
		switch {
		case err == nil:
			s.untrack(chatID, target.messageID)
			result.DeletedCount++
			if result.DeletedCount%rateLimitBatch == 0 {
				s.pause(ctx, rateLimitPause)
			}
		case errors.Is(err, ErrMessageNotFound):
			s.untrack(chatID, target.messageID)
			result.ErrorCount++
		case errors.Is(err, ErrMessageProtected):
			result.ErrorCount++
		default:
			result.ErrorCount++
			log.WithError(err).WithFields(log.Fields{
				"chat_id":    chatID,
				"message_id": target.messageID,
			}).Warn("failed to delete message")
		}
	}
	return result
}

// Preview reports what a sweep with the same cutoff would do, computed purely
// from the tracked set. No transport calls.
func (s *Scheduler) Preview(chatID int64, cutoff time.Time) PreviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := PreviewResult{TotalTracked: len(s.tracked[chatID])}
	var oldest time.Time
	for _, seenAt := range s.tracked[chatID] {
		if seenAt.Before(cutoff) {
			result.WillDeleteCount++
		} else {
			result.WillSkipCount++
		}
		if oldest.IsZero() || seenAt.Before(oldest) {
			oldest = seenAt
		}
	}
	if !oldest.IsZero() {
		result.OldestAge = s.now().Sub(oldest)
	}
	return result
}

// StartAuto launches a recurring sweep for (chatID, windowMinutes). At most
// one task may exist per pair; duplicates are rejected.
func (s *Scheduler) StartAuto(chatID int64, windowMinutes int) error {
	s.runMutex.Lock()
	runCtx := s.runCtx
	started := s.started
	s.runMutex.Unlock()
	if !started {
		return fmt.Errorf("scheduler is not running")
	}

	s.mu.Lock()
	chatTasks, ok := s.tasks[chatID]
	if !ok {
		chatTasks = map[int]context.CancelFunc{}
		s.tasks[chatID] = chatTasks
	}
	if _, exists := chatTasks[windowMinutes]; exists {
		s.mu.Unlock()
		return ErrDuplicateTask
	}
	taskCtx, cancel := context.WithCancel(runCtx)
	chatTasks[windowMinutes] = cancel
	s.mu.Unlock()

	s.workersWg.Add(1)
	go func() {
		defer s.workersWg.Done()
		ticker := time.NewTicker(s.autoCadence)
		defer ticker.Stop()

		for {
			select {
			case <-taskCtx.Done():
				log.WithFields(log.Fields{
					"chat_id": chatID,
					"window":  windowMinutes,
				}).Info("auto-deletion task stopped")
				return
			case <-ticker.C:
				cutoff := s.now().Add(-time.Duration(windowMinutes) * time.Minute)
				result := s.Sweep(taskCtx, chatID, cutoff)
				if result.DeletedCount > 0 {
					log.WithFields(log.Fields{
						"chat_id": chatID,
						"window":  windowMinutes,
						"deleted": result.DeletedCount,
						"errors":  result.ErrorCount,
					}).Info("auto-deletion sweep completed")
				}
			}
		}
	}()

	return nil
}

// StopAuto cancels the task for (chatID, windowMinutes). Returns false if no
// such task exists.
func (s *Scheduler) StopAuto(chatID int64, windowMinutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatTasks, ok := s.tasks[chatID]
	if !ok {
		return false
	}
	cancel, exists := chatTasks[windowMinutes]
	if !exists {
		return false
	}
	cancel()
	delete(chatTasks, windowMinutes)
	if len(chatTasks) == 0 {
		delete(s.tasks, chatID)
	}
	return true
}

// StopAllAuto cancels every task for the chat and returns the windows that
// were stopped, sorted.
func (s *Scheduler) StopAllAuto(chatID int64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatTasks, ok := s.tasks[chatID]
	if !ok {
		return nil
	}
	windows := make([]int, 0, len(chatTasks))
	for window, cancel := range chatTasks {
		cancel()
		windows = append(windows, window)
	}
	delete(s.tasks, chatID)
	sort.Ints(windows)
	return windows
}

// ListAuto returns the active auto-deletion windows for the chat, sorted.
func (s *Scheduler) ListAuto(chatID int64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	windows := make([]int, 0, len(s.tasks[chatID]))
	for window := range s.tasks[chatID] {
		windows = append(windows, window)
	}
	sort.Ints(windows)
	return windows
}

// CleanupOldHistory forgets tracked messages older than the retention
// ceiling across all chats and returns how many were evicted.
func (s *Scheduler) CleanupOldHistory() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-RetentionCeiling)
	evicted := 0
	for chatID, chat := range s.tracked {
		for messageID, seenAt := range chat {
			if seenAt.Before(cutoff) {
				delete(chat, messageID)
				evicted++
			}
		}
		if len(chat) == 0 {
			delete(s.tracked, chatID)
		}
	}
	return evicted
}

func (s *Scheduler) messagesOlderThan(chatID int64, cutoff time.Time) []trackedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var targets []trackedMessage
	for messageID, seenAt := range s.tracked[chatID] {
		if seenAt.Before(cutoff) {
			targets = append(targets, trackedMessage{messageID: messageID, seenAt: seenAt})
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].seenAt.Before(targets[j].seenAt) })
	return targets
}

func (s *Scheduler) untrack(chatID int64, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chat, ok := s.tracked[chatID]; ok {
		delete(chat, messageID)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
