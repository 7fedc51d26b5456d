package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robalyx/retract/internal/export"
	"github.com/robalyx/retract/internal/review"
	"github.com/robalyx/retract/internal/strategy"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/robalyx/retract/pkg/utils"
)

const (
	defaultListLimit = 10
	maxListLimit     = 50
	defaultTimeframe = 24 * time.Hour
	topUsers         = 5
	snippetLength    = 80
)

// Scenario names accepted by simulate.
var scenarios = []string{"normal", "rapid", "bulk", "frequent", "owner"}

const helpText = "**Deletion moderation commands**\n" +
	"`list-pending [limit]` list records awaiting review\n" +
	"`review <messageId> <status> [notes]` set a status (pending_review, approved, flagged, ignored, banned)\n" +
	"`bulk-review <status> [userId] [rapid_only]` review every matching pending record\n" +
	"`reprocess <messageId> [forceBulk] [forceRapid]` rerun the strategy for one record\n" +
	"`bulk-reprocess [user=] [status=] [rapid_only] [force_bulk] [force_rapid] [dry_run] [max=]` rerun many records\n" +
	"`simulate <normal|rapid|bulk|frequent|owner> [userId]` show the strategy a scenario gets\n" +
	"`stats` show pipeline metrics and health\n" +
	"`analyze [userId] [timeframe]` deletion activity with a chart (timeframe like 1h, 24h, 7d)\n" +
	"`export [json|csv|sqlite] [user=] [status=] [rapid_only] [since=] [anonymize]` export review records\n" +
	"`help` show this message"

func (a *Interface) help(_ context.Context, _ string, _ []string) (Response, error) {
	return Response{Content: helpText}, nil
}

func (a *Interface) listPending(_ context.Context, callerID string, args []string) (Response, error) {
	limit := defaultListLimit

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return Response{}, invalid("limit must be a positive number, got %q", args[0])
		}

		limit = min(n, maxListLimit)
	}

	records, err := a.reviews.ListPending(callerID, types.ReviewFilter{Limit: limit})
	if err != nil {
		return Response{}, err
	}

	if len(records) == 0 {
		return Response{Content: "📭 No records awaiting review."}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 **Pending reviews** (%d shown)\n", len(records))

	for _, record := range records {
		writeRecord(&b, record)
	}

	return Response{Content: b.String()}, nil
}

func writeRecord(b *strings.Builder, record *types.DeletedMessageReviewRecord) {
	flags := make([]string, 0, 3)
	if record.IsRapid {
		flags = append(flags, "rapid")
	}
	if record.IsBulk {
		flags = append(flags, "bulk")
	}
	if record.IsOwner {
		flags = append(flags, "owner")
	}

	fmt.Fprintf(b, "• `%s` by %s (`%s`) %s/%s", record.MessageID, record.Username, record.UserID,
		record.AppliedAction, record.ReasonCode)

	if len(flags) > 0 {
		fmt.Fprintf(b, " [%s]", strings.Join(flags, ", "))
	}

	fmt.Fprintf(b, " <t:%d:R>\n", record.DeletedAt.Unix())

	content := utils.CompressAllWhitespace(record.FullContent)
	if content != "" {
		fmt.Fprintf(b, "  > %s\n", utils.TruncateWithEllipsis(content, snippetLength))
	}
}

func (a *Interface) review(ctx context.Context, callerID string, args []string) (Response, error) {
	if len(args) < 2 {
		return Response{}, invalid("usage: review <messageId> <status> [notes]")
	}

	notes := strings.Join(args[2:], " ")

	record, execution, err := a.reviews.UpdateStatus(ctx, callerID, args[0], args[1], notes, true)
	if err != nil && record == nil {
		return Response{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ `%s` is now **%s**", record.MessageID, record.Status)

	if execution != nil {
		if execution.Success {
			fmt.Fprintf(&b, "\nAction: %s (%s)", execution.Action, execution.Details)
		} else {
			fmt.Fprintf(&b, "\n⚠️ Action %s failed: %s", execution.Action, execution.Error)
		}
	}

	if err != nil {
		fmt.Fprintf(&b, "\n⚠️ %s", err)
	}

	return Response{Content: b.String()}, nil
}

func (a *Interface) bulkReview(ctx context.Context, callerID string, args []string) (Response, error) {
	if len(args) == 0 {
		return Response{}, invalid("usage: bulk-review <status> [userId] [rapid_only]")
	}

	if _, err := enum.ReviewStatusString(args[0]); err != nil {
		return Response{}, fmt.Errorf("%w: %q", review.ErrInvalidStatus, args[0])
	}

	var filter types.ReviewFilter

	for _, arg := range args[1:] {
		if strings.EqualFold(arg, "rapid_only") || strings.EqualFold(arg, "rapid") {
			filter.RapidOnly = true
			continue
		}

		if filter.UserID != "" {
			return Response{}, invalid("unexpected argument %q", arg)
		}

		filter.UserID = arg
	}

	results, err := a.reviews.BulkReview(ctx, callerID, filter, args[0], "bulk review", 0)
	if err != nil {
		return Response{}, err
	}

	failed := 0
	var errs []string

	for _, result := range results {
		if result.Error != "" {
			failed++
			errs = append(errs, fmt.Sprintf("`%s`: %s", result.MessageID, result.Error))
		}
	}

	content := fmt.Sprintf("✅ Reviewed %d records as **%s** (%d failed)", len(results), args[0], failed)
	if len(errs) > 0 {
		content += "\n" + strings.Join(errs[:min(len(errs), 5)], "\n")
	}

	return Response{Content: content}, nil
}

func (a *Interface) reprocess(ctx context.Context, callerID string, args []string) (Response, error) {
	if len(args) == 0 || len(args) > 3 {
		return Response{}, invalid("usage: reprocess <messageId> [forceBulk] [forceRapid]")
	}

	var opts types.ReprocessOptions
	var err error

	if len(args) > 1 {
		if opts.ForceBulk, err = parseBool(args[1], "forcebulk", "force_bulk", "bulk"); err != nil {
			return Response{}, err
		}
	}

	if len(args) > 2 {
		if opts.ForceRapid, err = parseBool(args[2], "forcerapid", "force_rapid", "rapid"); err != nil {
			return Response{}, err
		}
	}

	result, err := a.reviews.Reprocess(ctx, callerID, args[0], opts)
	if err != nil {
		return Response{}, err
	}

	return Response{Content: formatReprocess(result)}, nil
}

func formatReprocess(result *types.ReprocessResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔁 `%s` → %s (%s)", result.MessageID, result.Strategy.Action, result.Strategy.ReasonCode)

	if result.Execution != nil {
		if result.Execution.Success {
			fmt.Fprintf(&b, " applied: %s", result.Execution.Details)
		} else {
			fmt.Fprintf(&b, " failed: %s", result.Execution.Error)
		}
	} else if result.Error == "" {
		b.WriteString(" not applied")
	}

	if result.Error != "" && (result.Execution == nil || result.Execution.Success) {
		fmt.Fprintf(&b, " error: %s", result.Error)
	}

	return b.String()
}

func (a *Interface) bulkReprocess(ctx context.Context, callerID string, args []string) (Response, error) {
	opts, err := parseOptions(args, "user", "status", "rapid_only", "force_bulk", "force_rapid", "dry_run", "max")
	if err != nil {
		return Response{}, err
	}

	filter, err := buildFilter(opts)
	if err != nil {
		return Response{}, err
	}

	var reprocess types.ReprocessOptions

	for key, target := range map[string]*bool{
		"force_bulk":  &reprocess.ForceBulk,
		"force_rapid": &reprocess.ForceRapid,
		"dry_run":     &reprocess.DryRun,
	} {
		if value, ok := opts[key]; ok {
			if *target, err = parseBool(value); err != nil {
				return Response{}, err
			}
		}
	}

	maxCount := 0
	if value, ok := opts["max"]; ok {
		if maxCount, err = strconv.Atoi(value); err != nil || maxCount <= 0 {
			return Response{}, invalid("max must be a positive number, got %q", value)
		}
	}

	results, err := a.reviews.BulkReprocess(ctx, callerID, filter, reprocess, maxCount)
	if err != nil {
		return Response{}, err
	}

	actions := make(map[enum.Action]int)
	failed := 0

	for _, result := range results {
		if result.Error != "" {
			failed++
			continue
		}

		if result.Strategy != nil {
			actions[result.Strategy.Action]++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔁 Reprocessed %d records (%d failed)", len(results), failed)

	if reprocess.DryRun {
		b.WriteString(" [dry run]")
	}

	for _, action := range []enum.Action{enum.ActionUpdate, enum.ActionDelete, enum.ActionEscalate, enum.ActionIgnore} {
		if n := actions[action]; n > 0 {
			fmt.Fprintf(&b, "\n%s: %d", action, n)
		}
	}

	return Response{Content: b.String()}, nil
}

// buildFilter reads the user, status, rapid_only and since options.
func buildFilter(opts map[string]string) (types.ReviewFilter, error) {
	filter := types.ReviewFilter{UserID: opts["user"]}

	if value, ok := opts["status"]; ok {
		status, err := enum.ReviewStatusString(value)
		if err != nil {
			return filter, fmt.Errorf("%w: %q", review.ErrInvalidStatus, value)
		}

		filter.Status = &status
	}

	if value, ok := opts["rapid_only"]; ok {
		rapid, err := parseBool(value)
		if err != nil {
			return filter, err
		}

		filter.RapidOnly = rapid
	}

	return filter, nil
}

func (a *Interface) simulate(_ context.Context, callerID string, args []string) (Response, error) {
	if len(args) == 0 || len(args) > 2 {
		return Response{}, invalid("usage: simulate <%s> [userId]", strings.Join(scenarios, "|"))
	}

	scenario := strings.ToLower(args[0])
	userID := callerID
	if len(args) > 1 {
		userID = args[1]
	}

	thresholds := a.engine.Thresholds()
	signals := strategy.Signals{
		UserID:         userID,
		MessageID:      "simulated",
		ChannelID:      "simulated",
		Elapsed:        thresholds.RapidThreshold * 2,
		TotalDeletions: 1,
	}

	switch scenario {
	case "normal":
	case "rapid":
		signals.Elapsed = thresholds.RapidThreshold / 3
	case "bulk":
		signals.PriorInWindow = thresholds.BulkMinCount
		signals.TotalDeletions = thresholds.BulkMinCount + 1
	case "frequent":
		signals.TotalDeletions = thresholds.FrequentThreshold + 1
	case "owner":
		signals.IsOwner = true
		signals.Elapsed = thresholds.RapidThreshold / 3
		signals.PriorInWindow = thresholds.BulkMinCount
		signals.TotalDeletions = thresholds.FrequentThreshold + 1
	default:
		return Response{}, invalid("unknown scenario %q (scenarios: %s)", scenario, strings.Join(scenarios, ", "))
	}

	dc := a.engine.Classify(signals)
	decision := a.engine.Determine(dc)

	var b strings.Builder
	fmt.Fprintf(&b, "🧪 **Simulation: %s** for `%s`\n", scenario, userID)
	fmt.Fprintf(&b, "Signals: owner=%t rapid=%t bulk=%t frequent=%t total=%d elapsed=%s\n",
		dc.IsOwner, dc.IsRapidDeletion, dc.IsBulkDeletion, dc.IsFrequentDeleter, dc.TotalDeletions, dc.TimeSinceCreation)
	fmt.Fprintf(&b, "Strategy: %s (%s)", decision.Action, decision.ReasonCode)

	if decision.TemplateKey != "" {
		fmt.Fprintf(&b, " template=%s", decision.TemplateKey)
	}

	if decision.CreateSummary {
		b.WriteString(" with summary")
	}

	return Response{Content: b.String()}, nil
}

func (a *Interface) stats(ctx context.Context, _ string, _ []string) (Response, error) {
	snapshot := a.metrics.Snapshot()
	health := snapshot.Health()

	var b strings.Builder
	fmt.Fprintf(&b, "📊 **Deletion moderation stats** (health: %s)\n", health.Status)
	fmt.Fprintf(&b, "Success rate: %.1f%% · Error rate: %.1f%%\n", health.SuccessRate*100, health.ErrorRate*100)

	if len(health.Indicators) > 0 {
		fmt.Fprintf(&b, "Indicators: %s\n", strings.Join(health.Indicators, ", "))
	}

	counts := a.reviews.Counts()
	b.WriteString("Reviews:")

	for _, status := range enum.ReviewStatusValues() {
		fmt.Fprintf(&b, " %s=%d", status, counts[status])
	}

	b.WriteString("\n")

	if a.tracker != nil {
		fmt.Fprintf(&b, "Tracked users: %d · Blocked users: %d\n", len(a.tracker.Users()), len(a.tracker.BlockedUsers()))
	}

	a.writeWorkers(ctx, &b)

	b.WriteString("```\n")
	b.WriteString(snapshot.Report())
	b.WriteString("```")

	return Response{Content: b.String()}, nil
}

func (a *Interface) writeWorkers(ctx context.Context, b *strings.Builder) {
	if a.workers == nil {
		return
	}

	statuses, err := a.workers(ctx)
	if err != nil {
		fmt.Fprintf(b, "Workers: unavailable (%s)\n", err)
		return
	}

	now := a.now()

	for _, status := range statuses {
		state := "healthy"

		switch {
		case status.Stale(now):
			state = "offline"
		case !status.IsHealthy:
			state = "unhealthy"
		}

		fmt.Fprintf(b, "Worker %s: %s, %s (%d%%)\n", status.WorkerType, state, status.CurrentTask, status.Progress)
	}
}

func (a *Interface) analyze(_ context.Context, _ string, args []string) (Response, error) {
	if len(args) > 2 {
		return Response{}, invalid("usage: analyze [userId] [timeframe]")
	}

	timeframe := defaultTimeframe
	userID := ""

	for _, arg := range args {
		if d, err := parseTimeframe(arg); err == nil {
			timeframe = d
			continue
		}

		if userID != "" {
			return Response{}, invalid("invalid timeframe %q", arg)
		}

		userID = arg
	}

	now := a.now()
	since := now.Add(-timeframe)

	users := a.tracker.Users()
	if userID != "" {
		users = []string{userID}
	}

	var records []types.DeletionRecord
	perUser := make(map[string]int)
	rapid := 0

	for _, user := range users {
		for _, record := range a.tracker.Records(user) {
			if !record.Timestamp.After(since) {
				continue
			}

			records = append(records, record)
			perUser[user]++

			if record.Rapid {
				rapid++
			}
		}
	}

	var b strings.Builder

	scope := "all users"
	if userID != "" {
		scope = "`" + userID + "`"
	}

	fmt.Fprintf(&b, "🔍 **Deletion analysis** for %s over %s\n", scope, formatTimeframe(timeframe))
	fmt.Fprintf(&b, "Deletions: %d · Rapid: %d · Users: %d\n", len(records), rapid, len(perUser))

	if userID != "" {
		stats := a.tracker.GetStats(userID)
		fmt.Fprintf(&b, "Lifetime: %d · Last hour: %d · Last day: %d · Blocked: %t\n",
			stats.TotalDeletions, stats.DeletionsLastHour, stats.DeletionsLastDay, stats.IsBlocked)
	} else if len(perUser) > 0 {
		b.WriteString("Top users:")

		for _, entry := range topEntries(perUser, topUsers) {
			fmt.Fprintf(&b, " `%s`=%d", entry.key, entry.count)
		}

		b.WriteString("\n")
	}

	chart, err := NewChartBuilder(records, now, timeframe, "Deletions per hour").Build()
	if err != nil {
		a.metrics.RecordError("admin")
		fmt.Fprintf(&b, "⚠️ Chart unavailable: %s", err)

		return Response{Content: b.String()}, nil
	}

	return Response{
		Content: b.String(),
		Files:   []File{{Name: "deletions.png", Data: chart.Bytes()}},
	}, nil
}

type countEntry struct {
	key   string
	count int
}

func topEntries(counts map[string]int, n int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for key, count := range counts {
		entries = append(entries, countEntry{key, count})
	}

	slices.SortFunc(entries, func(a, b countEntry) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return strings.Compare(a.key, b.key)
	})

	return entries[:min(n, len(entries))]
}

// formatTimeframe prints multi-day frames in days and whole hours as hours.
func formatTimeframe(d time.Duration) string {
	switch {
	case d > 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	}

	return d.String()
}

func (a *Interface) export(_ context.Context, callerID string, args []string) (Response, error) {
	format := export.FormatJSON

	if len(args) > 0 && !strings.Contains(args[0], "=") && !strings.EqualFold(args[0], "anonymize") &&
		!strings.EqualFold(args[0], "rapid_only") {
		f, err := export.ParseFormat(strings.ToLower(args[0]))
		if err != nil {
			return Response{}, err
		}

		format = f
		args = args[1:]
	}

	opts, err := parseOptions(args, "user", "status", "rapid_only", "since", "anonymize")
	if err != nil {
		return Response{}, err
	}

	filter, err := buildFilter(opts)
	if err != nil {
		return Response{}, err
	}

	if value, ok := opts["since"]; ok {
		d, err := parseTimeframe(value)
		if err != nil {
			return Response{}, err
		}

		filter.Since = a.now().Add(-d)
	}

	cfg := a.exportConfig
	if value, ok := opts["anonymize"]; ok {
		if cfg.Anonymize, err = parseBool(value); err != nil {
			return Response{}, err
		}
	}

	records, err := a.reviews.List(callerID, filter)
	if err != nil {
		return Response{}, err
	}

	if err := os.MkdirAll(a.exportDir, 0o750); err != nil {
		return Response{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	dir, err := os.MkdirTemp(a.exportDir, "export-*")
	if err != nil {
		return Response{}, fmt.Errorf("failed to create export directory: %w", err)
	}
	defer os.RemoveAll(dir)

	paths, err := export.New(dir, cfg).Export(format, records)
	if err != nil {
		return Response{}, err
	}

	files := make([]File, 0, len(paths))

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return Response{}, fmt.Errorf("failed to read export: %w", err)
		}

		files = append(files, File{Name: filepath.Base(path), Data: data})
	}

	content := fmt.Sprintf("📦 Exported %d review records as %s", len(records), format)
	if cfg.Anonymize {
		content += " (user IDs hashed)"
	}

	return Response{Content: content, Files: files}, nil
}

