package extractor_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/robalyx/retract/internal/extractor"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newExtractor(size int) (*extractor.Extractor, *metrics.Collector) {
	collector := metrics.NewCollector(zap.NewNop())
	return extractor.New(config.Extractor{CacheSize: size, CacheTTL: 3600}, collector, zap.NewNop()), collector
}

func TestExtractType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		meta     types.MessageMetadata
		want     enum.ContextType
		function string
	}{
		{name: "question mark", content: "is this thing on?", want: enum.ContextTypeQuestion},
		{name: "question word", content: "how do I reverse a list in python", want: enum.ContextTypeQuestion},
		{name: "image request", content: "draw a picture of a cat wearing a hat", want: enum.ContextTypeImageRequest},
		{name: "image metadata", content: "this", meta: types.MessageMetadata{IsImageRequest: true}, want: enum.ContextTypeImageRequest},
		{name: "function metadata", content: "hmm", meta: types.MessageMetadata{FunctionName: "lookup"}, want: enum.ContextTypeFunctionCall, function: "lookup"},
		{name: "function pattern", content: "what's the weather in Paris", want: enum.ContextTypeFunctionCall, function: "weather"},
		{name: "command", content: "!help me", want: enum.ContextTypeCommand},
		{name: "conversation", content: "I had a great day at the beach", want: enum.ContextTypeConversation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _ := newExtractor(10)
			got := e.Extract(tt.content, tt.meta)

			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.function, got.FunctionType)
		})
	}
}

func TestExtractThemeIntentSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		theme     enum.Theme
		intent    enum.Intent
		sentiment enum.Sentiment
	}{
		{
			name:    "technical help",
			content: "my python code throws an error, please help me fix this bug",
			theme:   enum.ThemeTechnical, intent: enum.IntentRequestingHelp, sentiment: enum.SentimentNegative,
		},
		{
			name:    "creative",
			content: "write me a poem and a short story about the sea",
			theme:   enum.ThemeCreative, intent: enum.IntentRequestingCreation, sentiment: enum.SentimentNeutral,
		},
		{
			name:    "gratitude",
			content: "thanks so much, that was awesome",
			theme:   enum.ThemeCasual, intent: enum.IntentExpressingGratitude, sentiment: enum.SentimentPositive,
		},
		{
			name:    "greeting",
			content: "hello there",
			theme:   enum.ThemeCasual, intent: enum.IntentGreeting, sentiment: enum.SentimentNeutral,
		},
		{
			name:    "business",
			content: "the client meeting moved and the budget report is due at the deadline",
			theme:   enum.ThemeBusiness, intent: enum.IntentGeneral, sentiment: enum.SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, _ := newExtractor(10)
			got := e.Extract(tt.content, types.MessageMetadata{})

			assert.Equal(t, tt.theme, got.Theme)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.sentiment, got.Sentiment)
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: "hello world", want: "hello world"},
		{name: "empty", input: "", want: "a message"},
		{
			name:  "sentence boundary",
			input: "This is the first sentence. And this is a second one that goes on for a while.",
			want:  "This is the first sentence.",
		},
		{
			name:  "word boundary",
			input: "this sentence has no punctuation and keeps going well past the summary limit",
			want:  "this sentence has no punctuation and keeps...",
		},
		{
			name:  "no spaces",
			input: strings.Repeat("a", 80),
			want:  strings.Repeat("a", 47) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := extractor.Summarize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), extractor.MaxSummaryLength)
		})
	}
}

func TestComplexityBounds(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(10)

	inputs := []string{
		"",
		"hi",
		strings.Repeat("debug the api server database query golang ", 40),
		"what why how when where who which",
	}

	for _, in := range inputs {
		got := e.Extract(in, types.MessageMetadata{})
		assert.GreaterOrEqual(t, got.Complexity, 0.0)
		assert.LessOrEqual(t, got.Complexity, 1.0)
	}

	simple := e.Extract("hi there", types.MessageMetadata{})
	technical := e.Extract("how do I debug this golang api server that returns a json error from the database", types.MessageMetadata{})
	assert.Greater(t, technical.Complexity, simple.Complexity)
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(10)
	got := e.Extract("deploy deploy deploy the docker container, then docker compose the service", types.MessageMetadata{})

	require.NotEmpty(t, got.Keywords)
	assert.Equal(t, "deploy", got.Keywords[0])
	assert.Equal(t, "docker", got.Keywords[1])
	assert.NotContains(t, got.Keywords, "the")
	assert.NotContains(t, got.Keywords, "then")

	many := e.Extract("alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima", types.MessageMetadata{})
	assert.Len(t, many.Keywords, extractor.MaxKeywords)
}

func TestEntities(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(10)
	got := e.Extract("Ask <@123> about `go.mod` and see https://example.com for Kubernetes notes", types.MessageMetadata{})

	assert.Contains(t, got.Entities, "<@123>")
	assert.Contains(t, got.Entities, "go.mod")
	assert.Contains(t, got.Entities, "https://example.com")
	assert.Contains(t, got.Entities, "Kubernetes")
	assert.NotContains(t, got.Entities, "Ask")
}

func TestImageContext(t *testing.T) {
	t.Parallel()

	e, _ := newExtractor(10)
	got := e.Extract("please draw an image of a red fox in the snow.", types.MessageMetadata{})

	assert.Equal(t, enum.ContextTypeImageRequest, got.Type)
	assert.Equal(t, "a red fox in the snow", got.ImageContext)
}

func TestCacheHitAndCopy(t *testing.T) {
	t.Parallel()

	e, collector := newExtractor(10)

	first := e.Extract("how do I compile rust code", types.MessageMetadata{})
	first.Keywords[0] = "mutated"

	second := e.Extract("how do I compile rust code", types.MessageMetadata{})
	assert.NotEqual(t, "mutated", second.Keywords[0])

	stats := collector.Snapshot().Extractions
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)

	e.Extract("how do I compile rust code", types.MessageMetadata{FunctionName: "search"})
	assert.Equal(t, int64(2), collector.Snapshot().Extractions.CacheMisses, "metadata is part of the key")
}

func TestCacheEvictsOldest(t *testing.T) {
	t.Parallel()

	e, collector := newExtractor(2)

	e.Extract("one", types.MessageMetadata{})
	e.Extract("two", types.MessageMetadata{})
	e.Extract("three", types.MessageMetadata{})
	assert.Equal(t, 2, e.CacheLen())

	e.Extract("two", types.MessageMetadata{})
	assert.Equal(t, int64(1), collector.Snapshot().Extractions.CacheHits)

	e.Extract("one", types.MessageMetadata{})
	assert.Equal(t, int64(4), collector.Snapshot().Extractions.CacheMisses)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	e, collector := newExtractor(10)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })

	e.Extract("hello", types.MessageMetadata{})
	e.Extract("world", types.MessageMetadata{})

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, e.PurgeExpired())
	assert.Zero(t, e.CacheLen())

	e.Extract("hello", types.MessageMetadata{})
	assert.Equal(t, int64(3), collector.Snapshot().Extractions.CacheMisses)
}

func TestExtractRecoversToDefault(t *testing.T) {
	t.Parallel()

	e, collector := newExtractor(10)
	e.SetClock(func() time.Time { panic("clock failure") })

	got := e.Extract("anything at all", types.MessageMetadata{})

	assert.Equal(t, types.DefaultContext(), got)
	assert.Equal(t, int64(1), collector.Snapshot().Errors["extractor"])
}
