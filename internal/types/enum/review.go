package enum

// ReviewStatus represents the lifecycle status of a retained deletion review record.
//
//go:generate go tool enumer -type=ReviewStatus -trimprefix=ReviewStatus -transform=snake -json -sql
type ReviewStatus int

const (
	// ReviewStatusPendingReview is the initial status of every retained record.
	ReviewStatusPendingReview ReviewStatus = iota
	// ReviewStatusApproved means the reply should be kept with contextual framing.
	ReviewStatusApproved
	// ReviewStatusFlagged means the reply is preserved with a review notice.
	ReviewStatusFlagged
	// ReviewStatusIgnored means the reply should be removed.
	ReviewStatusIgnored
	// ReviewStatusBanned means the user is blocked and the reply removed.
	ReviewStatusBanned
)

// AuditMode controls which deletion events are retained as review records.
//
//go:generate go tool enumer -type=AuditMode -trimprefix=AuditMode -transform=snake
type AuditMode int

const (
	// AuditModeAll retains every processed deletion.
	AuditModeAll AuditMode = iota
	// AuditModeSuspicious retains escalations and events from suspicious users.
	AuditModeSuspicious
	// AuditModeOff retains nothing.
	AuditModeOff
)
