package upload_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/blob"
	"avatar-gateway/internal/moderation"
	modstore "avatar-gateway/internal/moderation/store"
	"avatar-gateway/internal/profile"
	sessionmodels "avatar-gateway/internal/session/models"
	"avatar-gateway/internal/upload"
	"avatar-gateway/pkg/requestcontext"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// stubSessions validates exactly one token.
type stubSessions struct {
	token       string
	session     *sessionmodels.Session
	validated   int
	invalidated []string
}

func (s *stubSessions) Validate(_ context.Context, token string) *sessionmodels.Session {
	s.validated++
	if token != "" && token == s.token {
		copied := *s.session
		return &copied
	}
	return nil
}

func (s *stubSessions) Invalidate(_ context.Context, token string) {
	s.invalidated = append(s.invalidated, token)
}

// stubModerator returns a fixed decision and counts invocations.
type stubModerator struct {
	decision moderation.Decision
	err      error
	calls    int
}

func (m *stubModerator) Moderate(context.Context, []byte) (moderation.Decision, error) {
	m.calls++
	return m.decision, m.err
}

// stubFetcher serves migration sources from a map.
type stubFetcher struct {
	objects map[string][]byte
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	data, ok := f.objects[url]
	if !ok {
		return nil, errors.New("fetch 404")
	}
	return data, nil
}

type fixture struct {
	sessions  *stubSessions
	moderator *stubModerator
	blobs     *blob.InMemoryStore
	profiles  *profile.InMemoryStore
	decisions *modstore.InMemoryDecisionLog
	fetcher   *stubFetcher
	orch      *upload.Orchestrator
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		sessions: &stubSessions{
			token:   "valid-token",
			session: &sessionmodels.Session{UserID: "user-1", Email: "u1@example.com", ExpiresAt: testNow.Add(time.Hour)},
		},
		moderator: &stubModerator{decision: moderation.Decision{
			Approved:   true,
			Confidence: 0.1,
			Reason:     audit.ModerationPassed,
		}},
		blobs:     blob.NewInMemoryStore(),
		profiles:  profile.NewInMemoryStore(),
		decisions: modstore.NewInMemoryDecisionLog(),
		fetcher:   &stubFetcher{objects: map[string][]byte{}},
	}
	f.orch = upload.NewOrchestrator(upload.Deps{
		Sessions:      f.sessions,
		Moderator:     f.moderator,
		Blobs:         f.blobs,
		Profiles:      f.profiles,
		Decisions:     f.decisions,
		Fetcher:       f.fetcher,
		Charter:       audit.NewCharter(log),
		Ledger:        audit.NewLedger(log),
		PublicBaseURL: "https://cdn.example.com",
	})
	return f
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func pngFile(size int) func() (upload.File, error) {
	data := make([]byte, size)
	return func() (upload.File, error) {
		return upload.File{
			Name:        "avatar.png",
			ContentType: "image/png",
			Size:        int64(size),
			Data:        data,
		}, nil
	}
}

func TestUploadApprovedEndToEnd(t *testing.T) {
	f := newFixture()

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Success)
	assert.Equal(t, audit.UploadSuccess, res.Message)

	wantKey := "user-1/" + "1773489600000.webp"
	assert.Equal(t, "https://cdn.example.com/"+wantKey, res.AvatarURL)

	obj, ok := f.blobs.Object(wantKey)
	require.True(t, ok, "approved upload must land in the blob store")
	assert.Equal(t, "image/webp", obj.Opts.ContentType)
	assert.Equal(t, "public, max-age=31536000", obj.Opts.CacheControl)

	upd, ok := f.profiles.Update("user-1")
	require.True(t, ok)
	assert.Equal(t, wantKey, upd.StorageRef)
	assert.Equal(t, res.AvatarURL, upd.CDNUrl)

	recs := f.decisions.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, moderation.StatusApproved, recs[0].Status)
	assert.Equal(t, res.AvatarURL, recs[0].AvatarURL)
}

func TestUploadRejectedByModeration(t *testing.T) {
	f := newFixture()
	f.moderator.decision = moderation.Decision{
		Approved:   false,
		Confidence: 0.93,
		Reason:     audit.ModerationRejected,
		Categories: []string{"nudity"},
	}

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, audit.ModerationRejected, res.Message)
	assert.Equal(t,
		"Please upload a professional photo suitable for a business profile",
		res.Message.Text())

	assert.Empty(t, f.blobs.Keys(), "rejected image must never reach storage")
	_, updated := f.profiles.Update("user-1")
	assert.False(t, updated)

	recs := f.decisions.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, moderation.StatusRejected, recs[0].Status)
	assert.Equal(t, "rejected", recs[0].AvatarURL, "rejected rows carry the placeholder, not a real URL")
	assert.Equal(t, 0.93, recs[0].Confidence)
}

func TestUploadMissingAuth(t *testing.T) {
	f := newFixture()
	bodyRead := false

	res := f.orch.Upload(testCtx(), "", func() (upload.File, error) {
		bodyRead = true
		return upload.File{}, nil
	})

	require.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, audit.Unauthorized, res.Message)
	assert.False(t, bodyRead, "unauthenticated requests must not read the body")
	assert.Equal(t, 0, f.moderator.calls)
	assert.Empty(t, f.blobs.Keys())
	assert.Empty(t, f.decisions.Records())
}

func TestUploadInvalidToken(t *testing.T) {
	f := newFixture()
	res := f.orch.Upload(testCtx(), "forged-token", pngFile(1024))
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, 0, f.moderator.calls)
}

func TestUploadOversizedFile(t *testing.T) {
	f := newFixture()

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(3*1024*1024))

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, audit.FileTooLarge, res.Message)
	assert.Equal(t, "File size exceeds 2MB limit.", res.Message.Text())
	assert.Equal(t, 0, f.moderator.calls, "validation failures never reach the classifier")
	assert.Empty(t, f.blobs.Keys())
}

func TestUploadOversizedWrongTypeReportsSize(t *testing.T) {
	f := newFixture()

	res := f.orch.Upload(testCtx(), "valid-token", func() (upload.File, error) {
		return upload.File{
			Name:        "movie.gif",
			ContentType: "image/gif",
			Size:        5 * 1024 * 1024,
			Data:        make([]byte, 8),
		}, nil
	})

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, audit.FileTooLarge, res.Message, "size check wins when both attributes fail")
}

func TestUploadUnsupportedType(t *testing.T) {
	f := newFixture()

	res := f.orch.Upload(testCtx(), "valid-token", func() (upload.File, error) {
		return upload.File{
			Name:        "avatar.gif",
			ContentType: "image/gif",
			Size:        1024,
			Data:        make([]byte, 1024),
		}, nil
	})

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, audit.InvalidFile, res.Message)
}

func TestUploadFileReadFailure(t *testing.T) {
	f := newFixture()

	res := f.orch.Upload(testCtx(), "valid-token", func() (upload.File, error) {
		return upload.File{}, errors.New("multipart: no such file")
	})

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, audit.MissingFile, res.Message)
}

func TestUploadModeratorFailClosed(t *testing.T) {
	f := newFixture()
	f.moderator.err = errors.New("classifier unreachable")

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, audit.ServerError, res.Message)
	assert.Empty(t, f.blobs.Keys())
	assert.Empty(t, f.decisions.Records())
}

func TestUploadDecisionLogFailureAborts(t *testing.T) {
	f := newFixture()
	f.decisions.FailWith(errors.New("insert failed"))

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Empty(t, f.blobs.Keys(), "decision row is written before the storage write")
}

func TestUploadStoreFailureKeepsDecisionRow(t *testing.T) {
	f := newFixture()
	f.blobs.FailPutsWith(errors.New("bucket unavailable"))

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Equal(t, audit.ServerError, res.Message)

	recs := f.decisions.Records()
	require.Len(t, recs, 1, "the audit trail survives a storage failure")
	assert.Equal(t, moderation.StatusApproved, recs[0].Status)

	_, updated := f.profiles.Update("user-1")
	assert.False(t, updated)
}

func TestUploadPersistFailureCompensates(t *testing.T) {
	f := newFixture()
	f.profiles.FailUpdatesWith(errors.New("profile row gone"))

	res := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))

	require.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Empty(t, f.blobs.Keys(), "orphaned object must be deleted")
	assert.Len(t, f.blobs.Deleted(), 1)
}

func TestUploadIdenticalRetriesGetDistinctKeys(t *testing.T) {
	f := newFixture()

	first := f.orch.Upload(testCtx(), "valid-token", pngFile(1024))
	require.Equal(t, http.StatusOK, first.Status)

	later := requestcontext.WithTime(context.Background(), testNow.Add(50*time.Millisecond))
	second := f.orch.Upload(later, "valid-token", pngFile(1024))
	require.Equal(t, http.StatusOK, second.Status)

	assert.NotEqual(t, first.AvatarURL, second.AvatarURL)
	assert.Len(t, f.blobs.Keys(), 2, "no dedup: both objects remain")
}

func moderateReq(userID string, image []byte) func() (upload.ModerateRequest, error) {
	return func() (upload.ModerateRequest, error) {
		return upload.ModerateRequest{
			UserID:      userID,
			ImageBase64: base64.StdEncoding.EncodeToString(image),
		}, nil
	}
}

func TestModerateOnlyApproved(t *testing.T) {
	f := newFixture()

	res := f.orch.ModerateOnly(testCtx(), "valid-token", moderateReq("user-1", []byte("img")))

	require.Equal(t, http.StatusOK, res.Status)
	assert.True(t, res.Success)
	assert.True(t, res.Allowed)

	recs := f.decisions.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "pending", recs[0].AvatarURL, "moderation-only rows carry the pending placeholder")
	assert.Equal(t, moderation.StatusApproved, recs[0].Status)
}

func TestModerateOnlyRejected(t *testing.T) {
	f := newFixture()
	f.moderator.decision = moderation.Decision{
		Approved:   false,
		Confidence: 0.9,
		Reason:     audit.ModerationRejected,
	}

	res := f.orch.ModerateOnly(testCtx(), "valid-token", moderateReq("user-1", []byte("img")))

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0.9, res.Confidence)
}

func TestModerateOnlyUserMismatch(t *testing.T) {
	f := newFixture()

	res := f.orch.ModerateOnly(testCtx(), "valid-token", moderateReq("someone-else", []byte("img")))

	require.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, 0, f.moderator.calls)
	assert.Empty(t, f.decisions.Records())
}

func TestModerateOnlyMissingFields(t *testing.T) {
	f := newFixture()

	res := f.orch.ModerateOnly(testCtx(), "valid-token", func() (upload.ModerateRequest, error) {
		return upload.ModerateRequest{UserID: "user-1"}, nil
	})

	require.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, audit.MissingFields, res.Message)
}

func TestModerateOnlyMissingAuth(t *testing.T) {
	f := newFixture()
	bodyRead := false

	res := f.orch.ModerateOnly(testCtx(), "", func() (upload.ModerateRequest, error) {
		bodyRead = true
		return upload.ModerateRequest{}, nil
	})

	require.Equal(t, http.StatusUnauthorized, res.Status)
	assert.False(t, bodyRead)
}

func TestMigrate(t *testing.T) {
	f := newFixture()
	f.profiles.SeedLegacy([]profile.LegacyAvatar{
		{ID: "user-a", AvatarURL: "https://old.example.com/a.png"},
		{ID: "user-b", AvatarURL: "https://old.example.com/b.png"},
		{ID: "user-c", AvatarURL: "https://old.example.com/missing.png"},
	})
	f.fetcher.objects["https://old.example.com/a.png"] = []byte("a-bytes")
	f.fetcher.objects["https://old.example.com/b.png"] = []byte("b-bytes")

	res, err := f.orch.Migrate(testCtx(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Migrated)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, f.blobs.Keys(), 2)

	upd, ok := f.profiles.Update("user-a")
	require.True(t, ok)
	assert.Contains(t, upd.CDNUrl, "https://cdn.example.com/user-a/")
}

func TestMigrateHonorsLimit(t *testing.T) {
	f := newFixture()
	f.profiles.SeedLegacy([]profile.LegacyAvatar{
		{ID: "user-a", AvatarURL: "https://old.example.com/a.png"},
		{ID: "user-b", AvatarURL: "https://old.example.com/b.png"},
	})
	f.fetcher.objects["https://old.example.com/a.png"] = []byte("a-bytes")

	res, err := f.orch.Migrate(testCtx(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
}
