package moderation

import (
	"time"

	"avatar-gateway/internal/audit"
)

// Label is one classification from the image classifier.
type Label struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Decision is the policy verdict for one image. Reason is always a charter
// message, never raw label text.
type Decision struct {
	Approved   bool
	Confidence float64
	Reason     audit.Message
	Categories []string
}

// Status enumerates decision-record states.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPending  Status = "pending"
	StatusFlagged  Status = "flagged"
)

// Record is one append-only moderation log row. Created exactly once per
// upload attempt that reaches the moderation stage; never mutated.
type Record struct {
	UserID     string
	AvatarURL  string
	Status     Status
	Reason     string
	Confidence float64
	Cost       float64
	CreatedAt  time.Time
}
