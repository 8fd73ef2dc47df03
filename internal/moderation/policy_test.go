package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"avatar-gateway/internal/audit"
)

func TestDecideNoLabels(t *testing.T) {
	d := Decide(nil)
	assert.True(t, d.Approved)
	assert.Zero(t, d.Confidence)
	assert.Empty(t, d.Categories)
	assert.Equal(t, audit.ModerationPassed, d.Reason)
}

func TestDecideSafeLabels(t *testing.T) {
	d := Decide([]Label{
		{Label: "golden retriever", Score: 0.97},
		{Label: "tennis ball", Score: 0.88},
	})
	assert.True(t, d.Approved)
	assert.Zero(t, d.Confidence, "no unsafe match means zero confidence")
	assert.Empty(t, d.Categories)
}

func TestDecideUnsafeAboveThreshold(t *testing.T) {
	d := Decide([]Label{
		{Label: "assault weapon", Score: 0.92},
		{Label: "person", Score: 0.99},
	})
	assert.False(t, d.Approved)
	assert.Equal(t, 0.92, d.Confidence)
	assert.Equal(t, []string{"assault weapon"}, d.Categories)
	assert.Equal(t, audit.ModerationRejected, d.Reason)
}

func TestDecideUnsafeBelowThreshold(t *testing.T) {
	d := Decide([]Label{
		{Label: "water gun", Score: 0.5},
	})
	assert.True(t, d.Approved, "weak unsafe matches pass")
	assert.Equal(t, 0.5, d.Confidence)
	assert.Equal(t, []string{"water gun"}, d.Categories)
}

func TestDecideThresholdBoundary(t *testing.T) {
	at := Decide([]Label{{Label: "nsfw content", Score: 0.85}})
	assert.False(t, at.Approved, "score exactly at threshold rejects")

	below := Decide([]Label{{Label: "nsfw content", Score: 0.8499}})
	assert.True(t, below.Approved)
}

func TestDecideCaseInsensitiveSubstring(t *testing.T) {
	d := Decide([]Label{{Label: "Explicit Imagery", Score: 0.9}})
	assert.False(t, d.Approved)
	assert.Equal(t, []string{"Explicit Imagery"}, d.Categories, "categories keep the original label casing")
}

func TestDecideMaxScoreWins(t *testing.T) {
	d := Decide([]Label{
		{Label: "knife", Score: 0.3},
		{Label: "blood", Score: 0.91},
		{Label: "gore", Score: 0.6},
	})
	assert.False(t, d.Approved)
	assert.Equal(t, 0.91, d.Confidence)
	assert.Len(t, d.Categories, 3)
}
