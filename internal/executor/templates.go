package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robalyx/retract/internal/types"
	"github.com/robalyx/retract/internal/types/enum"
)

// ErrUnknownTemplate is returned for a template key without a formatter.
var ErrUnknownTemplate = errors.New("unknown template")

// TemplateData is the typed input of every formatter.
type TemplateData struct {
	Username          string
	Summary           string
	Context           enum.ContextType
	ImageContext      string
	FunctionType      string
	ConversationTheme enum.Theme
	Count             int
	Original          string // Current text of the reply, used by review notices
}

// NewTemplateData builds template data from a relationship.
func NewTemplateData(rel *types.MessageRelationship, count int) TemplateData {
	snapshot := rel.ContextSnapshot
	if snapshot == nil {
		snapshot = types.DefaultContext()
	}

	username := rel.UserInfo.Name()
	if username == "" {
		username = "a user"
	}

	return TemplateData{
		Username:          username,
		Summary:           snapshot.Summary,
		Context:           snapshot.Type,
		ImageContext:      snapshot.ImageContext,
		FunctionType:      snapshot.FunctionType,
		ConversationTheme: snapshot.Theme,
		Count:             count,
	}
}

// Formatter renders transcript text for one template.
type Formatter func(TemplateData) string

// Templates maps every template key to its formatter.
var Templates = map[types.TemplateKey]Formatter{
	types.TemplateOwnerPrivilege:   ownerPrivilege,
	types.TemplateContextualSingle: contextualSingle,
	types.TemplateRapidDeletion:    rapidDeletion,
	types.TemplateMultipleCleanup:  multipleCleanup,
	types.TemplateFrequentDeleter:  frequentDeleter,
	types.TemplateReviewFlagged:    reviewFlagged,
}

// Format renders the template for key.
func Format(key types.TemplateKey, data TemplateData) (string, error) {
	formatter, ok := Templates[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, key)
	}

	return formatter(data), nil
}

// subject describes what the deleted message was about.
func subject(d TemplateData) string {
	switch {
	case d.Context == enum.ContextTypeImageRequest && d.ImageContext != "":
		return "an image of " + d.ImageContext
	case d.Context == enum.ContextTypeFunctionCall && d.FunctionType != "":
		return "a " + d.FunctionType + " request"
	case d.Context == enum.ContextTypeQuestion:
		return "a question about " + quote(d.Summary)
	default:
		return quote(d.Summary)
	}
}

func quote(s string) string {
	if s == "" {
		return "a message"
	}

	return `"` + s + `"`
}

func ownerPrivilege(d TemplateData) string {
	return fmt.Sprintf("*%s removed their message (%s). The reply below is kept for reference.*", d.Username, subject(d))
}

func contextualSingle(d TemplateData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*This was a reply to %s from %s, which has since been deleted.", subject(d), d.Username)

	if d.ConversationTheme != "" && d.ConversationTheme != enum.ThemeGeneral {
		fmt.Fprintf(&b, " Topic: %s.", d.ConversationTheme)
	}

	b.WriteString("*")

	return b.String()
}

func rapidDeletion(d TemplateData) string {
	return fmt.Sprintf("Removed reply to a message %s deleted right after posting.", d.Username)
}

func multipleCleanup(d TemplateData) string {
	if d.Count == 1 {
		return fmt.Sprintf("🧹 Cleaned up 1 reply after %s removed several messages.", d.Username)
	}

	return fmt.Sprintf("🧹 Cleaned up %d replies after %s removed several messages.", d.Count, d.Username)
}

func frequentDeleter(d TemplateData) string {
	return fmt.Sprintf("Removed reply for %s after repeated deletions (%d total).", d.Username, d.Count)
}

func reviewFlagged(d TemplateData) string {
	return annotate("⚠️ *Under review: the message this replied to was deleted.*", d.Original)
}
