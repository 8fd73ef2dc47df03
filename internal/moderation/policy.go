// Package moderation turns classifier output into approve/reject verdicts
// and records every decision in the append-only moderation log.
package moderation

import (
	"strings"

	"avatar-gateway/internal/audit"
)

// rejectThreshold is the unsafe-score ceiling: any matching label at or above
// it rejects the image.
const rejectThreshold = 0.85

// unsafeKeywords are matched as substrings against lowercased labels. The
// classifier's label vocabulary is open, so substring matching deliberately
// trades false positives for recall.
var unsafeKeywords = []string{
	"nsfw",
	"nude",
	"nudity",
	"explicit",
	"violence",
	"violent",
	"weapon",
	"gun",
	"knife",
	"hate",
	"racist",
	"offensive",
	"drugs",
	"drug",
	"gore",
	"blood",
}

// Decide evaluates classifier labels against the unsafe-keyword set. The
// confidence of the verdict is the maximum score among matching labels; no
// match yields approved with confidence 0.
func Decide(labels []Label) Decision {
	var maxUnsafe float64
	var categories []string

	for _, l := range labels {
		label := strings.ToLower(l.Label)
		for _, keyword := range unsafeKeywords {
			if strings.Contains(label, keyword) {
				categories = append(categories, l.Label)
				if l.Score > maxUnsafe {
					maxUnsafe = l.Score
				}
				break
			}
		}
	}

	approved := maxUnsafe < rejectThreshold
	reason := audit.ModerationPassed
	if !approved {
		reason = audit.ModerationRejected
	}

	return Decision{
		Approved:   approved,
		Confidence: maxUnsafe,
		Reason:     reason,
		Categories: categories,
	}
}
