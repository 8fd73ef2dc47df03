package moderation

import (
	"context"
	"fmt"
	"time"

	"avatar-gateway/internal/audit"
)

// Classifier mirrors the adapter interface in internal/moderation/classifier
// without importing it, keeping the dependency direction policy-inward.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]Label, error)
}

// Moderator runs the classifier and applies the decision policy.
//
// Failure semantics are deliberately unlike every other dependency in the
// pipeline: with failOpen set (the default), a classifier outage yields a
// synthetic approval (confidence 0.99, categories ["auto-approved"]) instead
// of an error. The original outage error always lands in the ledger.
type Moderator struct {
	classifier Classifier
	ledger     *audit.Ledger
	failOpen   bool
	hooks      []func(Decision, bool, time.Time)
}

// NewModerator constructs the moderation service.
func NewModerator(c Classifier, ledger *audit.Ledger, failOpen bool) *Moderator {
	return &Moderator{classifier: c, ledger: ledger, failOpen: failOpen}
}

// OnDecision registers a callback invoked after every decision with the
// verdict, whether it was a fail-open synthesis, and the stage start time.
// Used to feed metrics without coupling the service to prometheus.
func (m *Moderator) OnDecision(hook func(d Decision, failOpen bool, start time.Time)) {
	m.hooks = append(m.hooks, hook)
}

// Moderate classifies the image and applies the policy. The returned error is
// non-nil only in fail-closed mode when the classifier is unreachable; in
// fail-open mode the call never hard-fails.
func (m *Moderator) Moderate(ctx context.Context, image []byte) (Decision, error) {
	start := time.Now()

	labels, err := m.classifier.Classify(ctx, image)
	if err != nil {
		if !m.failOpen {
			m.ledger.Error(ctx, "classifier failed, rejecting (fail-closed)", err)
			return Decision{}, fmt.Errorf("classify image: %w", err)
		}

		decision := Decision{
			Approved:   true,
			Confidence: 0.99,
			Reason:     audit.ModerationPassed,
			Categories: []string{"auto-approved"},
		}
		m.ledger.Error(ctx, "classifier failed, auto-approving (fail-open)", err,
			"fallback_confidence", decision.Confidence,
		)
		m.emit(decision, true, start)
		return decision, nil
	}

	decision := Decide(labels)
	m.ledger.Log(ctx, "moderation complete",
		"approved", decision.Approved,
		"unsafe_score", decision.Confidence,
		"matched_categories", decision.Categories,
		"label_count", len(labels),
		"cost", 0.0,
	)
	m.emit(decision, false, start)
	return decision, nil
}

func (m *Moderator) emit(d Decision, failOpen bool, start time.Time) {
	for _, hook := range m.hooks {
		hook(d, failOpen, start)
	}
}
