// Package core holds the pieces shared by background workers.
package core

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often workers report their status.
	HeartbeatInterval = 10 * time.Second

	// HeartbeatTTL is how long a reported status remains valid.
	HeartbeatTTL = 10 * time.Minute

	// StaleThreshold is how long before a worker is considered offline.
	StaleThreshold = time.Minute

	keyPrefix = "worker:"
)

// Status represents a worker's current state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	Progress    int       `json:"progress"`
	IsHealthy   bool      `json:"isHealthy"`
}

// Stale reports whether the worker missed its heartbeats.
func (s Status) Stale(now time.Time) bool {
	return now.Sub(s.LastSeen) > StaleThreshold
}

// StatusReporter publishes a worker's status to Redis. A reporter without a
// client only keeps the status in memory.
type StatusReporter struct {
	client   rueidis.Client
	status   Status
	interval time.Duration
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewStatusReporter creates a status reporter for a worker.
func NewStatusReporter(client rueidis.Client, workerType string, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		client: client,
		status: Status{
			WorkerID:   uuid.New().String(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
		interval: HeartbeatInterval,
		logger:   logger.Named("status_reporter"),
	}
}

// SetInterval changes the heartbeat interval. It must be called before Run.
func (r *StatusReporter) SetInterval(d time.Duration) {
	r.interval = d
}

// Run reports the status immediately and then on every heartbeat until ctx is done.
func (r *StatusReporter) Run(ctx context.Context) {
	if r.client == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.report(ctx)

	for {
		select {
		case <-ticker.C:
			r.report(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *StatusReporter) report(ctx context.Context) {
	status := r.Status()
	status.LastSeen = time.Now()

	data, err := sonic.Marshal(status)
	if err != nil {
		r.logger.Error("Failed to marshal status", zap.Error(err))
		return
	}

	key := keyPrefix + status.WorkerType + ":" + status.WorkerID
	if err := r.client.Do(ctx, r.client.B().Set().Key(key).Value(string(data)).Ex(HeartbeatTTL).Build()).Error(); err != nil {
		if ctx.Err() == nil {
			r.logger.Error("Failed to report status", zap.Error(err))
		}
	}
}

// UpdateStatus updates the current task and progress.
func (r *StatusReporter) UpdateStatus(task string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.LastSeen = time.Now()
	r.status.CurrentTask = task
	r.status.Progress = progress
}

// SetHealthy updates the health status.
func (r *StatusReporter) SetHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// Status returns a copy of the current status.
func (r *StatusReporter) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	return r.status.WorkerID
}

// GetAllStatuses retrieves every reported worker status, sorted by worker type.
func GetAllStatuses(ctx context.Context, client rueidis.Client, logger *zap.Logger) ([]Status, error) {
	keys, err := client.Do(ctx, client.B().Keys().Pattern(keyPrefix+"*").Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to get worker keys: %w", err)
	}

	statuses := make([]Status, 0, len(keys))

	for _, key := range keys {
		data, err := client.Do(ctx, client.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			logger.Error("Failed to get worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			logger.Error("Failed to unmarshal worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	slices.SortFunc(statuses, func(a, b Status) int {
		if c := strings.Compare(a.WorkerType, b.WorkerType); c != 0 {
			return c
		}
		return strings.Compare(a.WorkerID, b.WorkerID)
	})

	return statuses, nil
}
