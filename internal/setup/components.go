package setup

import (
	"context"
	"path/filepath"
	"time"

	"github.com/robalyx/retract/internal/admin"
	"github.com/robalyx/retract/internal/approval"
	"github.com/robalyx/retract/internal/behavior"
	"github.com/robalyx/retract/internal/deletion"
	"github.com/robalyx/retract/internal/executor"
	"github.com/robalyx/retract/internal/export"
	"github.com/robalyx/retract/internal/extractor"
	"github.com/robalyx/retract/internal/platform"
	"github.com/robalyx/retract/internal/redis"
	"github.com/robalyx/retract/internal/relationship"
	"github.com/robalyx/retract/internal/review"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/robalyx/retract/internal/worker/core"
	"github.com/robalyx/retract/internal/worker/maintenance"
	"go.uber.org/zap"
)

// Components is the wired deletion moderation pipeline.
type Components struct {
	Tracker       *behavior.Tracker
	Relationships *relationship.Store
	Extractor     *extractor.Extractor
	Engine        *strategy.Engine
	Executor      *executor.Executor
	Reviews       *review.Store
	Deletions     *deletion.Service
	Admin         *admin.Interface
	Maintenance   *maintenance.Worker
	Reporter      *core.StatusReporter
}

// NewApprovalManager creates the approval manager. Pending tickets live in
// Redis when it is enabled so a restart does not lose them.
func (s *App) NewApprovalManager() (*approval.Manager, error) {
	var store approval.PendingStore = approval.NewMemoryStore()

	if s.Config.Common.Redis.Enabled {
		client, err := s.RedisManager.GetClient(redis.ApprovalDBIndex)
		if err != nil {
			return nil, err
		}

		store = approval.NewRedisStore(client)
	}

	ttl := time.Duration(s.Config.Bot.Approval.TTL) * time.Second

	return approval.NewManager(store, nil, ttl, s.Logger), nil
}

// BuildComponents wires the pipeline on top of the given transcript.
func (s *App) BuildComponents(ctx context.Context, transcript platform.Transcript, approver approval.Approver) *Components {
	cfg := s.Config
	ownerID := cfg.Bot.OwnerID
	thresholds := cfg.Moderation.Thresholds()
	timeout := time.Duration(cfg.Bot.RequestTimeout) * time.Millisecond

	engine := strategy.NewEngine(thresholds)
	exec := executor.New(transcript, timeout, s.Metrics, s.Logger)
	ext := extractor.New(cfg.Moderation.Extractor, s.Metrics, s.Logger)

	tracker := behavior.New(ctx, behavior.Options{
		OwnerID:    ownerID,
		Thresholds: thresholds,
		Backend:    s.Storage,
		Approver:   approver,
		Metrics:    s.Metrics,
	}, s.Logger)

	relationships := relationship.NewStore(relationship.Options{
		OwnerID:   ownerID,
		Stats:     tracker,
		Extractor: ext,
		Engine:    engine,
		Executor:  exec,
	}, s.Logger)

	reviews := review.NewStore(ctx, review.Options{
		OwnerID:  ownerID,
		Backend:  s.Storage,
		Engine:   engine,
		Executor: exec,
		Blocker:  tracker,
		Stats:    tracker,
		Metrics:  s.Metrics,
		Review:   cfg.Moderation.Review,
	}, s.Logger)

	auditMode, err := enum.AuditModeString(cfg.Moderation.Review.AuditMode)
	if err != nil {
		s.Logger.Warn("Unknown audit mode, auditing every deletion",
			zap.String("auditMode", cfg.Moderation.Review.AuditMode))

		auditMode = enum.AuditModeAll
	}

	deletions := deletion.NewService(deletion.Options{
		OwnerID:       ownerID,
		Tracker:       tracker,
		Relationships: relationships,
		Reviews:       reviews,
		Extractor:     ext,
		Executor:      exec,
		Metrics:       s.Metrics,
		AuditMode:     auditMode,
	}, s.Logger)

	reporter := core.NewStatusReporter(s.StatusClient, "maintenance", s.Logger)

	worker := maintenance.New(maintenance.Options{
		History:       tracker,
		Relationships: relationships,
		Reviews:       reviews,
		Cache:         ext,
		Moderation:    cfg.Moderation,
		Reporter:      reporter,
	}, s.Logger)

	adminInterface := admin.New(admin.Options{
		OwnerID:      ownerID,
		Reviews:      reviews,
		Tracker:      tracker,
		Engine:       engine,
		Metrics:      s.Metrics,
		ExportDir:    filepath.Join(cfg.Common.Storage.DataDir, "exports"),
		ExportConfig: export.DefaultConfig(),
		Workers:      s.workerStatuses(reporter),
	}, s.Logger)

	return &Components{
		Tracker:       tracker,
		Relationships: relationships,
		Extractor:     ext,
		Engine:        engine,
		Executor:      exec,
		Reviews:       reviews,
		Deletions:     deletions,
		Admin:         adminInterface,
		Maintenance:   worker,
		Reporter:      reporter,
	}
}

// workerStatuses reads heartbeats from Redis, or the local reporter without it.
func (s *App) workerStatuses(local *core.StatusReporter) admin.WorkerStatusFunc {
	return func(ctx context.Context) ([]core.Status, error) {
		if s.StatusClient == nil {
			return []core.Status{local.Status()}, nil
		}

		return core.GetAllStatuses(ctx, s.StatusClient, s.Logger)
	}
}

// Close stops background work of the components.
func (c *Components) Close() {
	c.Tracker.Close()
}
