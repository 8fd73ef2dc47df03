package audit

import (
	"context"
	"log/slog"

	"avatar-gateway/pkg/requestcontext"
)

// Message is a customer-safe string drawn from the closed catalog below.
// Construction is unexported so a call site cannot pass an uncontrolled
// string into the customer-visible channel; everything a client can read in a
// response body goes through one of these values.
type Message struct {
	code string
	text string
}

// Code returns the stable identifier for the message.
func (m Message) Code() string { return m.code }

// Text returns the customer-facing wording.
func (m Message) Text() string { return m.text }

// IsZero reports whether m is the invalid zero value.
func (m Message) IsZero() bool { return m.code == "" }

// The approved catalog. Messages must never carry cost figures, provider
// names, or raw error text; CatalogTest enforces that with a denylist scan.
var (
	UploadSuccess      = Message{"UPLOAD_SUCCESS", "Avatar uploaded successfully"}
	ModerationPassed   = Message{"MODERATION_PASSED", "Image passed content safety checks"}
	ModerationRejected = Message{"MODERATION_REJECTED", "Please upload a professional photo suitable for a business profile"}
	TemplateApplied    = Message{"TEMPLATE_APPLIED", "Template applied successfully"}
	MigrationComplete  = Message{"MIGRATION_COMPLETE", "Migration completed successfully"}

	UploadFailed     = Message{"UPLOAD_FAILED", "Upload failed. Please try again."}
	InvalidFile      = Message{"INVALID_FILE", "Invalid file format. Please upload JPG, PNG, or WebP."}
	FileTooLarge     = Message{"FILE_TOO_LARGE", "File size exceeds 2MB limit."}
	Unauthorized     = Message{"UNAUTHORIZED", "Authentication required."}
	ServerError      = Message{"SERVER_ERROR", "Technical issue occurred. Please try again later."}
	MissingFile      = Message{"MISSING_FILE", "Missing avatar file"}
	MissingFields    = Message{"MISSING_FIELDS", "Missing required fields: imageBase64, userId"}
	NotFound         = Message{"NOT_FOUND", "Not found"}
	MethodNotAllowed = Message{"METHOD_NOT_ALLOWED", "Method not allowed"}
)

// Catalog returns every approved customer-facing message. The set of strings
// reachable in any HTTP response is exactly this list, which keeps the
// compliance guarantee checkable by a test instead of a code review.
func Catalog() []Message {
	return []Message{
		UploadSuccess,
		ModerationPassed,
		ModerationRejected,
		TemplateApplied,
		MigrationComplete,
		UploadFailed,
		InvalidFile,
		FileTooLarge,
		Unauthorized,
		ServerError,
		MissingFile,
		MissingFields,
		NotFound,
		MethodNotAllowed,
	}
}

// Charter is the customer-facing log channel. It accepts only catalog
// messages plus a metadata map; callers must keep cost figures, provider
// names, and raw error text out of the metadata, and the restricted signature
// makes accidental leakage of exception text impossible.
type Charter struct {
	log *slog.Logger
}

// NewCharter wraps the given logger as the customer-safe channel.
func NewCharter(log *slog.Logger) *Charter {
	return &Charter{log: log}
}

// Log records a charter event. Metadata keys/values are caller-chosen but the
// message itself is catalog-bound.
func (c *Charter) Log(ctx context.Context, msg Message, meta map[string]string) {
	if c == nil || c.log == nil {
		return
	}
	args := make([]any, 0, 2*len(meta)+4)
	args = append(args, "channel", "charter", "code", msg.Code())
	for k, v := range meta {
		args = append(args, k, v)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	c.log.InfoContext(ctx, msg.Text(), args...)
}
