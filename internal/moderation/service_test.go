package moderation_test

//go:generate mockgen -source=service.go -destination=mocks/moderation-mocks.go -package=mocks Classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/moderation"
	"avatar-gateway/internal/moderation/mocks"
)

func newClassifier(t *testing.T) *mocks.MockClassifier {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return mocks.NewMockClassifier(ctrl)
}

func testLedger() *audit.Ledger {
	return audit.NewLedger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestModerateApproves(t *testing.T) {
	classifier := newClassifier(t)
	classifier.EXPECT().Classify(gomock.Any(), []byte("img")).
		Return([]moderation.Label{{Label: "portrait", Score: 0.98}}, nil)

	m := moderation.NewModerator(classifier, testLedger(), true)
	d, err := m.Moderate(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.True(t, d.Approved)
	assert.Equal(t, audit.ModerationPassed, d.Reason)
}

func TestModerateRejects(t *testing.T) {
	classifier := newClassifier(t)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return([]moderation.Label{{Label: "nudity", Score: 0.95}}, nil)

	m := moderation.NewModerator(classifier, testLedger(), true)
	d, err := m.Moderate(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.False(t, d.Approved)
	assert.Equal(t, audit.ModerationRejected, d.Reason)
	assert.Equal(t, 0.95, d.Confidence)
}

func TestModerateFailOpenSynthesizesApproval(t *testing.T) {
	classifier := newClassifier(t)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("upstream 503"))

	m := moderation.NewModerator(classifier, testLedger(), true)
	d, err := m.Moderate(context.Background(), []byte("img"))
	require.NoError(t, err, "fail-open never surfaces classifier outages")
	assert.True(t, d.Approved)
	assert.Equal(t, 0.99, d.Confidence)
	assert.Equal(t, []string{"auto-approved"}, d.Categories)
	assert.Equal(t, audit.ModerationPassed, d.Reason)
}

func TestModerateFailClosedReturnsError(t *testing.T) {
	classifier := newClassifier(t)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("upstream 503"))

	m := moderation.NewModerator(classifier, testLedger(), false)
	_, err := m.Moderate(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestOnDecisionHook(t *testing.T) {
	classifier := newClassifier(t)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("down")).Times(1)
	classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		Return([]moderation.Label{{Label: "cat", Score: 0.9}}, nil).Times(1)

	m := moderation.NewModerator(classifier, testLedger(), true)

	type observed struct {
		approved bool
		failOpen bool
	}
	var calls []observed
	m.OnDecision(func(d moderation.Decision, failOpen bool, _ time.Time) {
		calls = append(calls, observed{approved: d.Approved, failOpen: failOpen})
	})

	_, err := m.Moderate(context.Background(), []byte("a"))
	require.NoError(t, err)
	_, err = m.Moderate(context.Background(), []byte("b"))
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, observed{approved: true, failOpen: true}, calls[0])
	assert.Equal(t, observed{approved: true, failOpen: false}, calls[1])
}
