package extractor

import (
	"regexp"

	"github.com/robalyx/retract/internal/types/enum"
)

var (
	imageRequestPattern = regexp.MustCompile(
		`(?i)\b(draw|generate|create|make|paint|sketch|render|design|imagine)\b.{0,40}\b(image|picture|pic|photo|drawing|art|artwork|illustration|portrait|logo|wallpaper|avatar)s?\b`)
	imageSubjectPattern = regexp.MustCompile(`(?i)\b(?:of|showing|with)\s+(.+)$`)
	questionPrefix      = regexp.MustCompile(
		`(?i)^(what|why|how|when|where|who|whom|whose|which|can|could|would|will|is|are|am|do|does|did|should|shall|may|might|have|has)\b`)
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`<[@#][!&]?\d+>|@\w+`)
	codePattern    = regexp.MustCompile("`([^`\n]+)`")
	properNoun     = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]+\b`)
)

// functionPatterns maps a function type to the phrases that suggest the agent called it.
var functionPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"search", regexp.MustCompile(`(?i)\b(search|look up|lookup|google|find info)\b`)},
	{"weather", regexp.MustCompile(`(?i)\b(weather|forecast|temperature)\b`)},
	{"reminder", regexp.MustCompile(`(?i)\b(remind me|set a reminder|reminder)\b`)},
	{"calculator", regexp.MustCompile(`(?i)\b(calculate|compute|solve)\b|\d+\s*[-+*/^]\s*\d+`)},
	{"translation", regexp.MustCompile(`(?i)\b(translate|translation)\b`)},
	{"time", regexp.MustCompile(`(?i)\b(what time|current time|time zone|timezone)\b`)},
}

// themeOrder breaks ties between equally scored themes.
var themeOrder = []enum.Theme{
	enum.ThemeTechnical, enum.ThemeCreative, enum.ThemeHelp, enum.ThemeBusiness, enum.ThemeCasual,
}

var themeKeywords = map[enum.Theme]map[string]struct{}{
	enum.ThemeTechnical: set(
		"code", "coding", "program", "programming", "function", "bug", "debug", "error", "api", "server",
		"database", "sql", "python", "javascript", "golang", "go", "java", "rust", "compile", "compiler",
		"algorithm", "deploy", "docker", "kubernetes", "linux", "script", "variable", "git", "http", "json",
		"software", "computer", "network", "install", "config", "terminal", "regex", "query", "backend",
	),
	enum.ThemeCreative: set(
		"story", "poem", "write", "draw", "art", "paint", "design", "song", "music", "lyrics", "imagine",
		"creative", "character", "fiction", "picture", "image", "sketch", "novel", "illustration", "color",
	),
	enum.ThemeHelp: set(
		"help", "assist", "support", "issue", "problem", "stuck", "fix", "broken", "trouble", "advice",
		"explain", "how", "guide", "tutorial", "solve", "confused",
	),
	enum.ThemeCasual: set(
		"hi", "hello", "hey", "lol", "haha", "fun", "game", "games", "movie", "weekend", "chat", "bored",
		"joke", "cool", "awesome", "friend", "friends", "today", "party",
	),
	enum.ThemeBusiness: set(
		"business", "meeting", "client", "customer", "sales", "market", "marketing", "revenue", "budget",
		"invoice", "project", "deadline", "strategy", "company", "startup", "finance", "report", "manager",
		"email", "contract", "pricing",
	),
}

// technicalTerms feeds the complexity score.
var technicalTerms = themeKeywords[enum.ThemeTechnical]

var (
	questionWords = set("what", "why", "how", "when", "where", "who", "which", "whom", "whose")
	greetingWords = set("hi", "hello", "hey", "heya", "hiya", "greetings", "morning", "evening", "yo", "sup")
	gratitude     = set("thanks", "thank", "thx", "ty", "appreciate", "appreciated", "grateful")
	creationWords = set("create", "make", "write", "draw", "generate", "compose", "design", "build", "paint")
	helpWords     = set("help", "assist", "support", "stuck", "fix", "issue", "problem", "broken", "trouble")

	positiveWords = set(
		"good", "great", "awesome", "amazing", "love", "like", "nice", "thanks", "thank", "excellent",
		"happy", "wonderful", "perfect", "cool", "fantastic", "best", "glad", "enjoy", "helpful", "beautiful",
	)
	negativeWords = set(
		"bad", "terrible", "awful", "hate", "wrong", "broken", "angry", "sad", "annoying", "worst",
		"stupid", "useless", "horrible", "sucks", "fail", "failed", "error", "problem", "disappointed", "ugly",
	)

	stopWords = set(
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had", "her", "was", "one",
		"our", "out", "has", "him", "his", "how", "its", "may", "new", "now", "old", "see", "two", "who",
		"did", "get", "let", "put", "say", "she", "too", "use", "that", "with", "have", "this", "will",
		"your", "from", "they", "know", "want", "been", "good", "much", "some", "time", "very", "when",
		"come", "here", "just", "like", "long", "make", "many", "more", "only", "over", "such", "take",
		"than", "them", "well", "were", "what", "which", "there", "their", "would", "could", "should",
		"about", "into", "then", "also", "please", "really", "does", "where", "why", "i'm", "it's", "don't",
		"can't", "yes", "yeah", "okay", "me", "my", "is", "it", "to", "of", "in", "on", "a", "an", "i",
	)
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}

	return m
}
