package extractor

import (
	"math"
	"slices"
	"strings"

	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
	"github.com/robalyx/retract/pkg/utils"
)

const (
	// MaxSummaryLength is the rune limit of a generated summary.
	MaxSummaryLength = 50
	// MaxKeywords is the number of keywords kept per message.
	MaxKeywords = 10
	// maxEntities is the number of entities kept per message.
	maxEntities = 10
	// minSentenceLength keeps summaries from stopping at an abbreviation.
	minSentenceLength = 10
)

// analyze derives the context of content. It has no side effects.
func analyze(content string, meta types.MessageMetadata, normalizer *utils.TextNormalizer) *types.ExtractedContext {
	text := utils.CompressAllWhitespace(content)
	if text == "" && !meta.HasAttachments && !meta.IsImageRequest && meta.FunctionName == "" {
		return types.DefaultContext()
	}

	words := normalizer.Words(text)
	contextType, functionType := classify(text, meta)

	ctx := &types.ExtractedContext{
		Summary:      summarize(text),
		Type:         contextType,
		Theme:        detectTheme(words),
		Intent:       detectIntent(words, contextType),
		FunctionType: functionType,
		Complexity:   complexity(words),
		Sentiment:    sentiment(words),
		Entities:     entities(text),
		Keywords:     keywords(words),
	}

	if contextType == enum.ContextTypeImageRequest {
		ctx.ImageContext = imageContext(text)
	}

	return ctx
}

// classify returns the context type and, for function calls, the function name.
func classify(text string, meta types.MessageMetadata) (enum.ContextType, string) {
	if strings.HasPrefix(text, "!") || strings.HasPrefix(text, "/") {
		return enum.ContextTypeCommand, ""
	}

	if meta.FunctionName != "" {
		return enum.ContextTypeFunctionCall, meta.FunctionName
	}

	if meta.IsImageRequest || imageRequestPattern.MatchString(text) || hasImageAttachment(meta) {
		return enum.ContextTypeImageRequest, ""
	}

	for _, fn := range functionPatterns {
		if fn.pattern.MatchString(text) {
			return enum.ContextTypeFunctionCall, fn.name
		}
	}

	if strings.HasSuffix(text, "?") || questionPrefix.MatchString(text) {
		return enum.ContextTypeQuestion, ""
	}

	return enum.ContextTypeConversation, ""
}

func hasImageAttachment(meta types.MessageMetadata) bool {
	if !meta.HasAttachments {
		return false
	}

	for _, t := range meta.AttachmentTypes {
		if strings.HasPrefix(t, "image/") {
			return true
		}
	}

	return false
}

// summarize returns at most MaxSummaryLength runes, preferring a whole first sentence.
func summarize(text string) string {
	if text == "" {
		return types.DefaultContext().Summary
	}

	runes := []rune(text)
	if len(runes) <= MaxSummaryLength {
		return text
	}

	for i := minSentenceLength; i < MaxSummaryLength; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || runes[i+1] == ' ' {
				return string(runes[:i+1])
			}
		}
	}

	cut := MaxSummaryLength - 3
	if idx := lastSpace(runes[:cut+1]); idx > 0 {
		cut = idx
	}

	return strings.TrimRight(string(runes[:cut]), " ,;:") + "..."
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}

	return -1
}

// detectTheme picks the theme with the most keyword hits.
func detectTheme(words []string) enum.Theme {
	best, bestScore := enum.ThemeGeneral, 0

	for _, theme := range themeOrder {
		score := 0

		for _, w := range words {
			if _, ok := themeKeywords[theme][w]; ok {
				score++
			}
		}

		if score > bestScore {
			best, bestScore = theme, score
		}
	}

	return best
}

func detectIntent(words []string, contextType enum.ContextType) enum.Intent {
	switch {
	case containsAny(words, helpWords):
		return enum.IntentRequestingHelp
	case contextType == enum.ContextTypeImageRequest || containsAny(words, creationWords):
		return enum.IntentRequestingCreation
	case contextType == enum.ContextTypeQuestion || containsAny(words, questionWords):
		return enum.IntentSeekingInformation
	case containsAny(words, gratitude):
		return enum.IntentExpressingGratitude
	case len(words) > 0 && containsAny(words[:1], greetingWords):
		return enum.IntentGreeting
	default:
		return enum.IntentGeneral
	}
}

// complexity scores length, technical density and question words into [0,1].
func complexity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	var technical, questions int

	for _, w := range words {
		if _, ok := technicalTerms[w]; ok {
			technical++
		}

		if _, ok := questionWords[w]; ok {
			questions++
		}
	}

	length := math.Min(float64(len(words))/50, 1)
	density := math.Min(float64(technical)/float64(len(words))*5, 1)
	asked := math.Min(float64(questions)/3, 1)

	score := 0.4*length + 0.4*density + 0.2*asked

	return math.Round(math.Min(math.Max(score, 0), 1)*100) / 100
}

func sentiment(words []string) enum.Sentiment {
	var pos, neg int

	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}

		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	switch {
	case pos > neg:
		return enum.SentimentPositive
	case neg > pos:
		return enum.SentimentNegative
	default:
		return enum.SentimentNeutral
	}
}

// keywords returns the most frequent non-stop-words, ties broken by first occurrence.
func keywords(words []string) []string {
	counts := make(map[string]int)
	order := make([]string, 0, len(words))

	for _, w := range words {
		if len([]rune(w)) < 3 || isNumber(w) {
			continue
		}

		if _, stop := stopWords[w]; stop {
			continue
		}

		if counts[w] == 0 {
			order = append(order, w)
		}

		counts[w]++
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}

	return order
}

// entities collects links, mentions, inline code and capitalized words not starting a sentence.
func entities(text string) []string {
	found := make([]string, 0, maxEntities)
	seen := make(map[string]struct{})

	add := func(s string) {
		if len(found) >= maxEntities || s == "" {
			return
		}

		if _, ok := seen[s]; ok {
			return
		}

		seen[s] = struct{}{}
		found = append(found, s)
	}

	for _, m := range urlPattern.FindAllString(text, -1) {
		add(m)
	}

	for _, m := range mentionPattern.FindAllString(text, -1) {
		add(m)
	}

	for _, m := range codePattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	for _, loc := range properNoun.FindAllStringIndex(text, -1) {
		if sentenceStart(text, loc[0]) {
			continue
		}

		add(text[loc[0]:loc[1]])
	}

	return found
}

func sentenceStart(text string, idx int) bool {
	prefix := strings.TrimRight(text[:idx], " ")
	if prefix == "" {
		return true
	}

	switch prefix[len(prefix)-1] {
	case '.', '!', '?', '\n':
		return true
	}

	return false
}

// imageContext returns the subject of an image request.
func imageContext(text string) string {
	subject := text
	if m := imageSubjectPattern.FindStringSubmatch(text); m != nil {
		subject = m[1]
	}

	return utils.TruncateWithEllipsis(strings.TrimRight(subject, ".!? "), MaxSummaryLength)
}

func containsAny(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}

	return false
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
