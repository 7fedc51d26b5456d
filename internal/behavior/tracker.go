// Package behavior tracks per-user deletion history and decides when a user looks abusive.
package behavior

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robalyx/retract/internal/approval"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/types"
	"go.uber.org/zap"
)

const (
	// RecentDeletionsLimit is the number of records returned in UserStats.RecentDeletions.
	RecentDeletionsLimit = 5

	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Suspicion reasons.
const (
	ReasonHourlyLimit = "hourly_limit_exceeded"
	ReasonDailyLimit  = "daily_limit_exceeded"
	ReasonRapidLimit  = "rapid_limit_exceeded"
)

// Tracker owns the deletion history of every user and the blocked user set.
type Tracker struct {
	mu      sync.RWMutex
	history map[string][]*types.DeletionRecord
	rapid   map[string][]*types.DeletionRecord
	blocked map[string]struct{}
	pending map[string]string // userID to approval ticket ID

	saveMu sync.Mutex // orders snapshot writes

	ownerID    string
	thresholds config.Thresholds
	backend    storage.Backend
	approver   approval.Approver
	metrics    *metrics.Collector
	logger     *zap.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures a Tracker.
type Options struct {
	OwnerID    string
	Thresholds config.Thresholds
	Backend    storage.Backend
	Approver   approval.Approver
	Metrics    *metrics.Collector
	Now        func() time.Time
}

// New creates a Tracker and loads persisted state. Load failures are logged
// and the tracker starts empty.
func New(ctx context.Context, opts Options, logger *zap.Logger) *Tracker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	waitCtx, cancel := context.WithCancel(context.Background())

	t := &Tracker{
		history:    make(map[string][]*types.DeletionRecord),
		rapid:      make(map[string][]*types.DeletionRecord),
		blocked:    make(map[string]struct{}),
		pending:    make(map[string]string),
		ownerID:    opts.OwnerID,
		thresholds: opts.Thresholds,
		backend:    opts.Backend,
		approver:   opts.Approver,
		metrics:    opts.Metrics,
		logger:     logger.Named("behavior_tracker"),
		now:        now,
		ctx:        waitCtx,
		cancel:     cancel,
	}

	t.load(ctx)

	return t
}

func (t *Tracker) load(ctx context.Context) {
	if t.backend == nil {
		return
	}

	if doc, err := t.backend.LoadHistory(ctx); err != nil {
		t.logger.Warn("Failed to load deletion history, starting empty", zap.Error(err))
		t.metrics.RecordError("behavior_tracker")
	} else {
		for userID, records := range doc.Deletions {
			if len(records) > 0 {
				t.history[userID] = records
			}
		}

		for userID, records := range doc.RapidDeletions {
			if len(records) == 0 {
				continue
			}

			rapidIDs := make(map[string]struct{}, len(records))
			for _, r := range records {
				r.Rapid = true
				rapidIDs[r.MessageID] = struct{}{}
			}

			for _, r := range t.history[userID] {
				if _, ok := rapidIDs[r.MessageID]; ok {
					r.Rapid = true
				}
			}

			t.rapid[userID] = records
		}
	}

	if doc, err := t.backend.LoadBlocked(ctx); err != nil {
		t.logger.Warn("Failed to load blocked users, starting empty", zap.Error(err))
		t.metrics.RecordError("behavior_tracker")
	} else {
		for _, userID := range doc.BlockedUserIDs {
			t.blocked[userID] = struct{}{}
		}
	}

	t.logger.Info("Loaded deletion state",
		zap.Int("users", len(t.history)),
		zap.Int("blocked", len(t.blocked)))
}

// RecordDeletion appends a deletion to the user's history, evaluates the user
// and persists the history. A persistence error is returned after the record
// has been applied in memory.
func (t *Tracker) RecordDeletion(
	ctx context.Context, userID, messageID, channelID, content string, timeSinceCreationMs int64, isOwner bool,
) (types.SuspicionResult, error) {
	record := types.NewDeletionRecord(userID, messageID, channelID, content, timeSinceCreationMs, isOwner, t.now())
	record.Rapid = t.thresholds.IsRapid(time.Duration(timeSinceCreationMs) * time.Millisecond)

	t.mu.Lock()
	t.history[userID] = append(t.history[userID], record)
	if record.Rapid {
		t.rapid[userID] = append(t.rapid[userID], record)
	}
	t.mu.Unlock()

	t.logger.Debug("Recorded deletion",
		zap.String("userID", userID),
		zap.String("messageID", messageID),
		zap.Int64("timeSinceCreationMs", timeSinceCreationMs),
		zap.Bool("rapid", record.Rapid))

	result := t.EvaluateSuspicion(ctx, userID)

	if err := t.saveHistory(ctx); err != nil {
		t.logger.Error("Failed to persist deletion history",
			zap.String("userID", userID),
			zap.Error(err))
		t.metrics.RecordError("behavior_tracker")

		return result, err
	}

	return result, nil
}

// EvaluateSuspicion compares the user's windowed counts against the owner or
// regular limits. A suspicious regular user that is not blocked gets a block
// request sent for human approval.
func (t *Tracker) EvaluateSuspicion(ctx context.Context, userID string) types.SuspicionResult {
	stats := t.GetStats(userID)
	isOwner := t.isOwner(userID)

	limits := t.thresholds.UserLimits
	if isOwner {
		limits = t.thresholds.OwnerLimits
	}

	result := types.SuspicionResult{Reasons: []string{}}

	if exceeds(stats.DeletionsLastHour, limits.Hourly) {
		result.Reasons = append(result.Reasons, ReasonHourlyLimit)
	}

	if exceeds(stats.DeletionsLastDay, limits.Daily) {
		result.Reasons = append(result.Reasons, ReasonDailyLimit)
	}

	if exceeds(t.rapidSince(userID, t.now().Add(-hourWindow)), limits.RapidHourly) {
		result.Reasons = append(result.Reasons, ReasonRapidLimit)
	}

	result.Suspicious = len(result.Reasons) > 0
	if !result.Suspicious {
		return result
	}

	if isOwner {
		t.logger.Info("Owner exceeded deletion limits",
			zap.String("userID", userID),
			zap.Strings("reasons", result.Reasons),
			zap.Int("deletionsLastHour", stats.DeletionsLastHour),
			zap.Int("deletionsLastDay", stats.DeletionsLastDay))

		return result
	}

	t.logger.Warn("Suspicious deletion behavior",
		zap.String("userID", userID),
		zap.Strings("reasons", result.Reasons),
		zap.Int("deletionsLastHour", stats.DeletionsLastHour),
		zap.Int("deletionsLastDay", stats.DeletionsLastDay))

	if !stats.IsBlocked {
		t.requestBlock(ctx, stats, result.Reasons)
	}

	return result
}

// requestBlock asks for approval to block the user unless a request is already pending.
func (t *Tracker) requestBlock(ctx context.Context, stats types.UserStats, reasons []string) {
	if t.approver == nil {
		return
	}

	t.mu.Lock()
	if _, exists := t.pending[stats.UserID]; exists {
		t.mu.Unlock()
		return
	}
	t.pending[stats.UserID] = ""
	t.mu.Unlock()

	ticket, err := t.approver.RequestApproval(ctx, approval.Request{
		Type:    approval.TypeBlockUser,
		UserID:  stats.UserID,
		Context: "Deletion limits exceeded: " + strings.Join(reasons, ", "),
		Metadata: map[string]string{
			"totalDeletions":    strconv.Itoa(stats.TotalDeletions),
			"deletionsLastHour": strconv.Itoa(stats.DeletionsLastHour),
			"deletionsLastDay":  strconv.Itoa(stats.DeletionsLastDay),
			"rapidDeletions":    strconv.Itoa(stats.RapidDeletions),
		},
	})
	if err != nil {
		t.mu.Lock()
		delete(t.pending, stats.UserID)
		t.mu.Unlock()

		t.logger.Error("Failed to request block approval", zap.String("userID", stats.UserID), zap.Error(err))
		t.metrics.RecordError("behavior_tracker")

		return
	}

	t.mu.Lock()
	t.pending[stats.UserID] = ticket.ID
	t.mu.Unlock()

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		t.awaitDecision(ticket, reasons)
	}()
}

func (t *Tracker) awaitDecision(ticket *approval.Ticket, reasons []string) {
	userID := ticket.Request.UserID

	defer func() {
		t.mu.Lock()
		delete(t.pending, userID)
		t.mu.Unlock()
	}()

	decision, err := ticket.Wait(t.ctx)
	if err != nil {
		return
	}

	if !decision.Approved {
		t.logger.Info("Block request denied",
			zap.String("userID", userID),
			zap.String("ticketID", ticket.ID),
			zap.Bool("expired", decision.Expired))

		return
	}

	reason := "approved by " + decision.ReviewerID + ": " + strings.Join(reasons, ", ")
	if _, err := t.BlockUser(t.ctx, userID, reason); err != nil {
		t.logger.Error("Failed to persist approved block", zap.String("userID", userID), zap.Error(err))
	}
}

// PendingApproval reports whether a block request for the user is awaiting a decision.
func (t *Tracker) PendingApproval(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.pending[userID]

	return ok
}

// BlockUser adds the user to the blocked set. It reports whether the set changed.
// The owner is never blocked.
func (t *Tracker) BlockUser(ctx context.Context, userID, reason string) (bool, error) {
	if t.isOwner(userID) {
		t.logger.Warn("Refusing to block owner", zap.String("userID", userID), zap.String("reason", reason))
		return false, nil
	}

	t.mu.Lock()
	if _, exists := t.blocked[userID]; exists {
		t.mu.Unlock()
		return false, nil
	}
	t.blocked[userID] = struct{}{}
	t.mu.Unlock()

	t.logger.Warn("User blocked", zap.String("userID", userID), zap.String("reason", reason))

	return true, t.saveBlocked(ctx)
}

// UnblockUser removes the user from the blocked set. It returns false if the user was not blocked.
func (t *Tracker) UnblockUser(ctx context.Context, userID string) (bool, error) {
	t.mu.Lock()
	if _, exists := t.blocked[userID]; !exists {
		t.mu.Unlock()
		return false, nil
	}
	delete(t.blocked, userID)
	t.mu.Unlock()

	t.logger.Info("User unblocked", zap.String("userID", userID))

	return true, t.saveBlocked(ctx)
}

// IsBlocked reports whether the user is blocked.
func (t *Tracker) IsBlocked(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.blocked[userID]

	return ok
}

// BlockedUsers returns the blocked user IDs in sorted order.
func (t *Tracker) BlockedUsers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.blocked))
	for id := range t.blocked {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// GetStats returns the user's deletion statistics. Windowed counts are computed
// from the records and the current clock.
func (t *Tracker) GetStats(userID string) types.UserStats {
	now := t.now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	records := t.history[userID]
	_, blocked := t.blocked[userID]

	recent := records[max(0, len(records)-RecentDeletionsLimit):]
	copies := make([]*types.DeletionRecord, len(recent))

	for i, r := range recent {
		c := *r
		copies[i] = &c
	}

	return types.UserStats{
		UserID:            userID,
		TotalDeletions:    len(records),
		RapidDeletions:    len(t.rapid[userID]),
		DeletionsLastHour: countSince(records, now.Add(-hourWindow)),
		DeletionsLastDay:  countSince(records, now.Add(-dayWindow)),
		IsBlocked:         blocked,
		RecentDeletions:   copies,
	}
}

// Records returns a copy of the user's deletion records in order.
func (t *Tracker) Records(userID string) []types.DeletionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.DeletionRecord, len(t.history[userID]))
	for i, r := range t.history[userID] {
		out[i] = *r
	}

	return out
}

// Users returns every user with deletion history in sorted order.
func (t *Tracker) Users() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.history))
	for id := range t.history {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Cleanup removes records older than retentionDays and returns how many were removed.
func (t *Tracker) Cleanup(ctx context.Context, retentionDays int) (int, error) {
	cutoff := t.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	t.mu.Lock()
	removed := prune(t.history, cutoff)
	prune(t.rapid, cutoff)
	t.mu.Unlock()

	if removed == 0 {
		return 0, nil
	}

	t.logger.Info("Removed expired deletion records",
		zap.Int("removed", removed),
		zap.Int("retentionDays", retentionDays))

	return removed, t.saveHistory(ctx)
}

// Close stops waiting on pending approvals.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

func (t *Tracker) isOwner(userID string) bool {
	if t.ownerID != "" && userID == t.ownerID {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	records := t.history[userID]

	return len(records) > 0 && records[len(records)-1].IsOwner
}

func (t *Tracker) rapidSince(userID string, since time.Time) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return countSince(t.rapid[userID], since)
}

func (t *Tracker) saveHistory(ctx context.Context) error {
	if t.backend == nil {
		return nil
	}

	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	t.mu.RLock()
	doc := types.NewDeletionHistoryDocument()
	doc.LastUpdated = t.now()

	for userID, records := range t.history {
		doc.Deletions[userID] = slices.Clone(records)
	}

	for userID, records := range t.rapid {
		doc.RapidDeletions[userID] = slices.Clone(records)
	}
	t.mu.RUnlock()

	if err := t.backend.SaveHistory(ctx, doc); err != nil {
		return fmt.Errorf("failed to save deletion history: %w", err)
	}

	return nil
}

func (t *Tracker) saveBlocked(ctx context.Context) error {
	if t.backend == nil {
		return nil
	}

	t.saveMu.Lock()
	defer t.saveMu.Unlock()

	doc := types.NewBlockedUsersDocument()
	doc.BlockedUserIDs = t.BlockedUsers()
	doc.LastUpdated = t.now()

	if err := t.backend.SaveBlocked(ctx, doc); err != nil {
		t.metrics.RecordError("behavior_tracker")
		return fmt.Errorf("failed to save blocked users: %w", err)
	}

	return nil
}

// countSince counts records strictly after since.
func countSince(records []*types.DeletionRecord, since time.Time) int {
	count := 0

	for _, r := range records {
		if r.Timestamp.After(since) {
			count++
		}
	}

	return count
}

// prune drops records at or before cutoff and deletes empty users.
func prune(m map[string][]*types.DeletionRecord, cutoff time.Time) int {
	removed := 0

	for userID, records := range m {
		kept := records[:0:0]

		for _, r := range records {
			if r.Timestamp.After(cutoff) {
				kept = append(kept, r)
			}
		}

		removed += len(records) - len(kept)

		if len(kept) == 0 {
			delete(m, userID)
		} else {
			m[userID] = kept
		}
	}

	return removed
}

// exceeds reports whether count is above a non-zero limit.
func exceeds(count, limit int) bool {
	return limit > 0 && count > limit
}
