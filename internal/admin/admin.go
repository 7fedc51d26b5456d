// Package admin implements the owner-only deletion moderation command surface.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/retract/internal/behavior"
	"github.com/robalyx/retract/internal/export"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/review"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/worker/core"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized is returned when the caller is not the owner.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArguments is returned for malformed command arguments.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnknownCommand is returned for a command name that does not exist.
	ErrUnknownCommand = errors.New("unknown command")
)

// DeniedMessage is the fixed response to every non-owner caller.
const DeniedMessage = "⛔ You are not authorized to use deletion moderation commands."

// UnknownCommandLabel is the metrics label of command names without a handler.
const UnknownCommandLabel = "unknown"

// File is an attachment of a response.
type File struct {
	Name string
	Data []byte
}

// Response is what the caller sees.
type Response struct {
	Content string
	Files   []File
}

// WorkerStatusFunc lists the reported background worker statuses.
type WorkerStatusFunc func(ctx context.Context) ([]core.Status, error)

// Options configures an Interface.
type Options struct {
	OwnerID      string
	Reviews      *review.Store
	Tracker      *behavior.Tracker
	Engine       *strategy.Engine
	Metrics      *metrics.Collector
	ExportDir    string
	ExportConfig export.Config
	Workers      WorkerStatusFunc
	Now          func() time.Time
}

// Interface parses and runs admin commands.
type Interface struct {
	ownerID      string
	reviews      *review.Store
	tracker      *behavior.Tracker
	engine       *strategy.Engine
	metrics      *metrics.Collector
	exportDir    string
	exportConfig export.Config
	workers      WorkerStatusFunc
	logger       *zap.Logger
	now          func() time.Time
}

type handler func(ctx context.Context, callerID string, args []string) (Response, error)

// New creates an Interface.
func New(opts Options, logger *zap.Logger) *Interface {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Interface{
		ownerID:      opts.OwnerID,
		reviews:      opts.Reviews,
		tracker:      opts.Tracker,
		engine:       opts.Engine,
		metrics:      opts.Metrics,
		exportDir:    opts.ExportDir,
		exportConfig: opts.ExportConfig,
		workers:      opts.Workers,
		logger:       logger.Named("admin"),
		now:          now,
	}
}

// Authorize returns ErrUnauthorized unless callerID is the owner.
func (a *Interface) Authorize(callerID string) error {
	if a.ownerID == "" || callerID != a.ownerID {
		return ErrUnauthorized
	}

	return nil
}

// Handle runs one command line such as "review 123 approved looks fine".
// Authorization is checked before anything else is parsed.
func (a *Interface) Handle(ctx context.Context, callerID, line string) Response {
	start := time.Now()
	args := strings.Fields(line)

	command := "help"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	// Metric labels are limited to known command names.
	h, ok := a.handlers()[command]
	label := command
	if !ok {
		label = UnknownCommandLabel
	}

	if err := a.Authorize(callerID); err != nil {
		a.metrics.RecordAdminCommand(label, callerID, false, time.Since(start))
		a.logger.Warn("Unauthorized admin command",
			zap.String("callerID", callerID),
			zap.String("command", label))

		return Response{Content: DeniedMessage}
	}

	if !ok {
		a.metrics.RecordAdminCommand(label, callerID, true, time.Since(start))
		return errorResponse(fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, command))
	}

	resp, err := a.run(ctx, h, callerID, args)
	a.metrics.RecordAdminCommand(command, callerID, true, time.Since(start))

	if err != nil {
		a.logger.Info("Admin command failed",
			zap.String("command", command),
			zap.Strings("args", args),
			zap.Error(err))

		return errorResponse(err)
	}

	return resp
}

// run calls h and turns a panic into an error.
func (a *Interface) run(ctx context.Context, h handler, callerID string, args []string) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Recovered from panic in admin command", zap.Any("panic", r), zap.Stack("stack"))
			a.metrics.RecordError("admin")

			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	return h(ctx, callerID, args)
}

func (a *Interface) handlers() map[string]handler {
	return map[string]handler{
		"list-pending":   a.listPending,
		"review":         a.review,
		"bulk-review":    a.bulkReview,
		"reprocess":      a.reprocess,
		"bulk-reprocess": a.bulkReprocess,
		"simulate":       a.simulate,
		"stats":          a.stats,
		"analyze":        a.analyze,
		"export":         a.export,
		"help":           a.help,
	}
}

func errorResponse(err error) Response {
	return Response{Content: "❌ " + err.Error()}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

// parseBool accepts true/false style values and the option's own name as true.
func parseBool(value string, names ...string) (bool, error) {
	for _, name := range names {
		if strings.EqualFold(value, name) {
			return true, nil
		}
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, invalid("expected a boolean, got %q", value)
	}

	return b, nil
}

// parseOptions splits key=value arguments. Bare words map to "true".
func parseOptions(args []string, allowed ...string) (map[string]string, error) {
	opts := make(map[string]string, len(args))

	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		key = strings.ToLower(key)

		if !found {
			value = "true"
		}

		known := false
		for _, name := range allowed {
			if key == name {
				known = true
				break
			}
		}

		if !known {
			return nil, invalid("unknown option %q (allowed: %s)", key, strings.Join(allowed, ", "))
		}

		opts[key] = value
	}

	return opts, nil
}

// parseTimeframe parses durations like 30m, 24h and 7d.
func parseTimeframe(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, invalid("invalid timeframe %q", s)
		}

		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, invalid("invalid timeframe %q", s)
	}

	return d, nil
}
