package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/retract/internal/approval"
	"github.com/robalyx/retract/pkg/utils"
	"go.uber.org/zap"
)

const (
	approvalPrefix = "approval"
	approveVerb    = "approve"
	denyVerb       = "deny"
)

// ErrInvalidCustomID is returned for a button ID that is not an approval button.
var ErrInvalidCustomID = errors.New("invalid approval button")

// DMSender sends a direct message to a user.
type DMSender interface {
	SendDM(ctx context.Context, userID snowflake.ID, msg discord.MessageCreate) error
}

// Resolver answers approval tickets.
type Resolver interface {
	Resolve(ctx context.Context, id string, approved bool, reviewerID string) (*approval.Ticket, error)
}

// ApprovalNotifier asks the owner to approve block requests with buttons.
type ApprovalNotifier struct {
	sender   DMSender
	resolver Resolver
	ownerID  snowflake.ID
	logger   *zap.Logger
}

// NewApprovalNotifier creates an ApprovalNotifier.
func NewApprovalNotifier(sender DMSender, resolver Resolver, ownerID snowflake.ID, logger *zap.Logger) *ApprovalNotifier {
	return &ApprovalNotifier{
		sender:   sender,
		resolver: resolver,
		ownerID:  ownerID,
		logger:   logger.Named("approval_notifier"),
	}
}

// ApprovalCustomID builds the custom ID of an approval button.
func ApprovalCustomID(ticketID string, approve bool) string {
	verb := denyVerb
	if approve {
		verb = approveVerb
	}

	return approvalPrefix + ":" + verb + ":" + ticketID
}

// ParseApprovalCustomID is the inverse of ApprovalCustomID.
func ParseApprovalCustomID(customID string) (ticketID string, approve bool, err error) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != approvalPrefix || parts[2] == "" {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidCustomID, customID)
	}

	switch parts[1] {
	case approveVerb:
		return parts[2], true, nil
	case denyVerb:
		return parts[2], false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrInvalidCustomID, customID)
	}
}

// IsApprovalCustomID reports whether the button belongs to an approval message.
func IsApprovalCustomID(customID string) bool {
	return strings.HasPrefix(customID, approvalPrefix+":")
}

// NotifyApproval implements approval.Notifier.
func (n *ApprovalNotifier) NotifyApproval(ctx context.Context, ticket *approval.Ticket) error {
	req := ticket.Request

	user := "`" + req.UserID + "`"
	if req.Username != "" {
		user = req.Username + " (`" + req.UserID + "`)"
	}

	content := fmt.Sprintf("🚨 **Block request** for %s\n%s\nExpires <t:%d:R>. Unanswered requests are denied.",
		user, req.Context, ticket.ExpiresAt.Unix())

	msg := discord.NewMessageCreateBuilder().
		SetContent(utils.TruncateWithEllipsis(content, maxContentLength)).
		AddActionRow(
			discord.NewSuccessButton("Approve block", ApprovalCustomID(ticket.ID, true)),
			discord.NewDangerButton("Deny", ApprovalCustomID(ticket.ID, false)),
		).
		Build()

	if err := n.sender.SendDM(ctx, n.ownerID, msg); err != nil {
		return fmt.Errorf("failed to send approval request: %w", err)
	}

	return nil
}

// HandleClick resolves the ticket behind an approval button and returns the
// text that replaces the approval message. Only the owner may answer.
func (n *ApprovalNotifier) HandleClick(ctx context.Context, customID string, userID snowflake.ID) string {
	ticketID, approve, err := ParseApprovalCustomID(customID)
	if err != nil {
		return "❌ " + err.Error()
	}

	if userID != n.ownerID {
		n.logger.Warn("Approval button pressed by non-owner",
			zap.String("ticketID", ticketID),
			zap.String("userID", userID.String()))

		return "⛔ Only the owner can answer approval requests."
	}

	ticket, err := n.resolver.Resolve(ctx, ticketID, approve, userID.String())
	if err != nil {
		if errors.Is(err, approval.ErrTicketNotFound) {
			return "⌛ This request has expired or was already answered."
		}

		n.logger.Error("Failed to resolve approval", zap.String("ticketID", ticketID), zap.Error(err))

		return "❌ Failed to record the decision."
	}

	if approve {
		return fmt.Sprintf("✅ Block of `%s` approved.", ticket.Request.UserID)
	}

	return fmt.Sprintf("🙅 Block of `%s` denied.", ticket.Request.UserID)
}

var _ approval.Notifier = (*ApprovalNotifier)(nil)
