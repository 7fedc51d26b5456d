// Package extractor derives a lightweight semantic context from message text.
package extractor

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/pkg/utils"
	"go.uber.org/zap"
)

// keyContentLength is the number of runes of content that participate in the cache key.
const keyContentLength = 500

// Extractor extracts message context with a bounded cache in front.
type Extractor struct {
	cache       *cache
	normalizers sync.Pool
	metrics     *metrics.Collector
	logger      *zap.Logger
	now         func() time.Time
}

// New creates an Extractor using the extractor section of the moderation config.
func New(cfg config.Extractor, collector *metrics.Collector, logger *zap.Logger) *Extractor {
	size := max(cfg.CacheSize, 1)
	ttl := time.Duration(max(cfg.CacheTTL, 1)) * time.Second

	return &Extractor{
		cache: newCache(size, ttl),
		normalizers: sync.Pool{
			New: func() any { return utils.NewTextNormalizer() },
		},
		metrics: collector,
		logger:  logger.Named("context_extractor"),
		now:     time.Now,
	}
}

// Extract returns the context of content. It never fails: on an internal error the
// default context is returned. The result is a copy the caller may modify.
func (e *Extractor) Extract(content string, meta types.MessageMetadata) (result *types.ExtractedContext) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Context extraction panicked",
				zap.Any("panic", r),
				zap.Int("contentLength", len(content)))
			e.metrics.RecordError("extractor")

			result = types.DefaultContext()
		}
	}()

	key := cacheKey(content, meta)

	if cached, ok := e.cache.get(key, e.now()); ok {
		e.metrics.RecordExtraction(cached.Type, true, time.Since(start))
		return clone(cached)
	}

	normalizer := e.normalizers.Get().(*utils.TextNormalizer)
	defer e.normalizers.Put(normalizer)

	extracted := analyze(content, meta, normalizer)
	e.cache.put(key, extracted, e.now())
	e.metrics.RecordExtraction(extracted.Type, false, time.Since(start))

	return clone(extracted)
}

// PurgeExpired drops expired cache entries and returns the number removed.
func (e *Extractor) PurgeExpired() int {
	return e.cache.purge(e.now())
}

// CacheLen returns the number of cached extractions.
func (e *Extractor) CacheLen() int {
	return e.cache.len()
}

func cacheKey(content string, meta types.MessageMetadata) uint64 {
	var b strings.Builder

	b.WriteString(utils.TruncateRunes(content, keyContentLength))
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(meta.HasAttachments))
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(meta.IsImageRequest))
	b.WriteByte(0)
	b.WriteString(meta.FunctionName)
	b.WriteByte(0)
	b.WriteString(strings.Join(meta.AttachmentTypes, ","))

	return xxhash.Sum64String(b.String())
}

func clone(c *types.ExtractedContext) *types.ExtractedContext {
	out := *c
	out.Entities = slices.Clone(c.Entities)
	out.Keywords = slices.Clone(c.Keywords)

	if out.Entities == nil {
		out.Entities = []string{}
	}

	if out.Keywords == nil {
		out.Keywords = []string{}
	}

	return &out
}
