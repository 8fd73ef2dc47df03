// Package upload sequences the avatar pipeline: authentication, file
// validation, image normalization, moderation, storage, profile persistence,
// and decision logging. Each request runs the stages strictly in order; no
// stage executes concurrently with another within one request.
package upload

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/blob"
	"avatar-gateway/internal/moderation"
	modstore "avatar-gateway/internal/moderation/store"
	"avatar-gateway/internal/profile"
	sessionmodels "avatar-gateway/internal/session/models"
	"avatar-gateway/internal/upload/metrics"
	"avatar-gateway/pkg/requestcontext"
)

// SessionValidator gates the pipeline: no mutating stage runs without a
// valid, non-expired session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) *sessionmodels.Session
	Invalidate(ctx context.Context, token string)
}

// Moderator screens a normalized image. The error is non-nil only when the
// moderation service is configured fail-closed and its backend is down.
type Moderator interface {
	Moderate(ctx context.Context, image []byte) (moderation.Decision, error)
}

// Fetcher downloads a legacy avatar during migration.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// File is the parsed multipart upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Result is the pipeline outcome the HTTP layer renders. Message is always a
// charter value, which is what keeps the response vocabulary closed.
type Result struct {
	Status    int
	Success   bool
	Message   audit.Message
	AvatarURL string
}

// ModerateResult is the outcome of a moderation-only run.
type ModerateResult struct {
	Status     int
	Success    bool
	Message    audit.Message
	Allowed    bool
	Confidence float64
}

// MigrateResult summarizes one migration batch.
type MigrateResult struct {
	Scanned  int
	Migrated int
	Failed   int
}

const avatarCacheControl = "public, max-age=31536000"

// Deps carries the orchestrator's injected ports.
type Deps struct {
	Sessions  SessionValidator
	Moderator Moderator
	Blobs     blob.Store
	Profiles  profile.Store
	Decisions modstore.DecisionLog
	Fetcher   Fetcher
	Charter   *audit.Charter
	Ledger    *audit.Ledger
	Metrics   *metrics.Metrics

	// PublicBaseURL is the CDN prefix prepended to storage keys.
	PublicBaseURL string
	// OpTimeout bounds each storage/persistence call; HTTP adapters carry
	// their own client timeouts as well.
	OpTimeout time.Duration
}

// Orchestrator runs the upload state machine.
type Orchestrator struct {
	deps   Deps
	tracer trace.Tracer
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.OpTimeout <= 0 {
		deps.OpTimeout = 10 * time.Second
	}
	return &Orchestrator{
		deps:   deps,
		tracer: otel.Tracer("avatar-gateway/upload"),
	}
}

// Upload runs the full pipeline for one request. Every failure path returns a
// charter-backed Result; nothing escapes as a raw error.
//
// readFile is called only after authentication succeeds, so an
// unauthenticated request costs no body parsing and no downstream calls.
func (o *Orchestrator) Upload(ctx context.Context, token string, readFile func() (File, error)) Result {
	start := time.Now()
	defer o.observePipeline(start)

	ctx, span := o.tracer.Start(ctx, "upload.pipeline")
	defer span.End()

	// Authenticate.
	session := o.authenticate(ctx, token)
	if session == nil {
		return Result{Status: http.StatusUnauthorized, Message: audit.Unauthorized}
	}

	file, err := readFile()
	if err != nil {
		o.deps.Ledger.Error(ctx, "multipart parse failed", err, "user_id", session.UserID)
		return Result{Status: http.StatusBadRequest, Message: audit.MissingFile}
	}

	// Validate file. Size is checked first so an oversized file of a wrong
	// type reports the size limit, matching what the user can act on.
	if !ValidateImageFile(file.ContentType, file.Size) {
		msg := audit.InvalidFile
		if file.Size > MaxFileSize {
			msg = audit.FileTooLarge
		}
		o.deps.Charter.Log(ctx, msg, map[string]string{
			"user_id": session.UserID,
		})
		o.deps.Ledger.Log(ctx, "file validation failed",
			"user_id", session.UserID,
			"content_type", file.ContentType,
			"size", file.Size,
		)
		o.failed()
		return Result{Status: http.StatusBadRequest, Message: msg}
	}

	// Normalize image.
	asset, err := o.process(ctx, file.Data)
	if err != nil {
		o.deps.Ledger.Error(ctx, "image processing failed", err, "user_id", session.UserID)
		o.failed()
		return Result{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	// Moderate.
	decision, err := o.moderate(ctx, asset.Bytes)
	if err != nil {
		// Fail-closed configuration only; fail-open never returns an error.
		o.failed()
		return Result{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	now := requestcontext.Now(ctx)

	if !decision.Approved {
		o.logDecision(ctx, moderation.Record{
			UserID:     session.UserID,
			AvatarURL:  "rejected",
			Status:     moderation.StatusRejected,
			Reason:     decision.Reason.Text(),
			Confidence: decision.Confidence,
			CreatedAt:  now,
		})
		o.deps.Charter.Log(ctx, audit.ModerationRejected, map[string]string{
			"user_id": session.UserID,
		})
		o.rejected()
		return Result{Status: http.StatusBadRequest, Message: decision.Reason}
	}

	key := StorageKey(session.UserID, now)
	cdnURL := o.deps.PublicBaseURL + "/" + key

	// The decision row is written before the storage write so that a failure
	// in either of the two stages below still leaves an audit trail for this
	// attempt.
	if err := o.appendDecision(ctx, moderation.Record{
		UserID:     session.UserID,
		AvatarURL:  cdnURL,
		Status:     moderation.StatusApproved,
		Reason:     decision.Reason.Text(),
		Confidence: decision.Confidence,
		CreatedAt:  now,
	}); err != nil {
		o.deps.Ledger.Error(ctx, "decision log append failed", err, "user_id", session.UserID)
		o.failed()
		return Result{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	// Store.
	if err := o.store(ctx, key, asset.Bytes); err != nil {
		o.deps.Ledger.Error(ctx, "blob store write failed", err,
			"user_id", session.UserID,
			"key", key,
		)
		o.failed()
		return Result{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	// Persist profile; on failure the stored object is orphaned, so delete it
	// best-effort before reporting the error.
	if err := o.persist(ctx, session.UserID, profile.AvatarUpdate{
		StorageRef: key,
		CDNUrl:     cdnURL,
		UploadedAt: now,
	}); err != nil {
		o.deps.Ledger.Error(ctx, "profile persist failed", err,
			"user_id", session.UserID,
			"key", key,
		)
		o.compensate(ctx, key)
		o.failed()
		return Result{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	o.deps.Charter.Log(ctx, audit.UploadSuccess, map[string]string{
		"user_id":    session.UserID,
		"avatar_url": cdnURL,
	})
	o.approved()
	return Result{
		Status:    http.StatusOK,
		Success:   true,
		Message:   audit.UploadSuccess,
		AvatarURL: cdnURL,
	}
}

// ModerateRequest is the decoded moderation-only payload.
type ModerateRequest struct {
	UserID      string `json:"userId"`
	ImageBase64 string `json:"imageBase64"`
}

// ModerateOnly screens an image without persisting the asset. The caller's
// userId must match the session; a mismatch is a 403. readReq runs after
// authentication for the same reason Upload defers body parsing.
func (o *Orchestrator) ModerateOnly(ctx context.Context, token string, readReq func() (ModerateRequest, error)) ModerateResult {
	ctx, span := o.tracer.Start(ctx, "upload.moderate_only")
	defer span.End()

	session := o.authenticate(ctx, token)
	if session == nil {
		return ModerateResult{Status: http.StatusUnauthorized, Message: audit.Unauthorized}
	}

	req, err := readReq()
	if err != nil || req.ImageBase64 == "" || req.UserID == "" {
		if err != nil {
			o.deps.Ledger.Error(ctx, "moderation request decode failed", err)
		}
		return ModerateResult{Status: http.StatusBadRequest, Message: audit.MissingFields}
	}
	userID, imageBase64 := req.UserID, req.ImageBase64

	if userID != session.UserID {
		o.deps.Ledger.Log(ctx, "moderation user mismatch",
			"session_user_id", session.UserID,
			"request_user_id", userID,
		)
		return ModerateResult{Status: http.StatusForbidden, Message: audit.Unauthorized}
	}

	asset, err := ProcessBase64Image(imageBase64)
	if err != nil {
		o.deps.Ledger.Error(ctx, "base64 image processing failed", err, "user_id", userID)
		return ModerateResult{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	decision, err := o.moderate(ctx, asset.Bytes)
	if err != nil {
		return ModerateResult{Status: http.StatusInternalServerError, Message: audit.ServerError}
	}

	status := moderation.StatusApproved
	if !decision.Approved {
		status = moderation.StatusRejected
	}
	o.logDecision(ctx, moderation.Record{
		UserID:     userID,
		AvatarURL:  "pending",
		Status:     status,
		Reason:     decision.Reason.Text(),
		Confidence: decision.Confidence,
		CreatedAt:  requestcontext.Now(ctx),
	})

	httpStatus := http.StatusOK
	if !decision.Approved {
		httpStatus = http.StatusBadRequest
	}
	return ModerateResult{
		Status:     httpStatus,
		Success:    decision.Approved,
		Message:    decision.Reason,
		Allowed:    decision.Approved,
		Confidence: decision.Confidence,
	}
}

// Migrate re-homes up to limit legacy avatars into the blob store. Already
// moderated at original upload time, so the batch skips the moderation stage.
func (o *Orchestrator) Migrate(ctx context.Context, limit int) (MigrateResult, error) {
	ctx, span := o.tracer.Start(ctx, "upload.migrate")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	legacy, err := o.deps.Profiles.ListLegacyAvatars(ctx, limit)
	if err != nil {
		o.deps.Ledger.Error(ctx, "legacy avatar listing failed", err)
		return MigrateResult{}, err
	}

	result := MigrateResult{Scanned: len(legacy)}
	now := requestcontext.Now(ctx)

	for _, row := range legacy {
		if err := o.migrateOne(ctx, row, now); err != nil {
			o.deps.Ledger.Error(ctx, "avatar migration failed", err,
				"user_id", row.ID,
				"source_url", row.AvatarURL,
			)
			result.Failed++
			continue
		}
		result.Migrated++
		if o.deps.Metrics != nil {
			o.deps.Metrics.ProfilesMigrated.Inc()
		}
	}

	o.deps.Ledger.Log(ctx, "migration batch complete",
		"scanned", result.Scanned,
		"migrated", result.Migrated,
		"failed", result.Failed,
	)
	return result, nil
}

func (o *Orchestrator) migrateOne(ctx context.Context, row profile.LegacyAvatar, now time.Time) error {
	data, err := o.deps.Fetcher.Fetch(ctx, row.AvatarURL)
	if err != nil {
		return err
	}
	asset, err := ProcessImage(data)
	if err != nil {
		return err
	}

	key := StorageKey(row.ID, now)
	if err := o.store(ctx, key, asset.Bytes); err != nil {
		return err
	}
	if err := o.persist(ctx, row.ID, profile.AvatarUpdate{
		StorageRef: key,
		CDNUrl:     o.deps.PublicBaseURL + "/" + key,
		UploadedAt: now,
	}); err != nil {
		o.compensate(ctx, key)
		return err
	}
	return nil
}

// CDNURL exposes the public URL for a storage key.
func (o *Orchestrator) CDNURL(key string) string {
	return o.deps.PublicBaseURL + "/" + strings.TrimPrefix(key, "/")
}

// --- stages ---

func (o *Orchestrator) authenticate(ctx context.Context, token string) *sessionmodels.Session {
	ctx, span := o.tracer.Start(ctx, "upload.authenticate")
	defer span.End()
	return o.deps.Sessions.Validate(ctx, token)
}

func (o *Orchestrator) process(ctx context.Context, data []byte) (*ProcessedAsset, error) {
	_, span := o.tracer.Start(ctx, "upload.process_image")
	defer span.End()
	return ProcessImage(data)
}

func (o *Orchestrator) moderate(ctx context.Context, image []byte) (moderation.Decision, error) {
	ctx, span := o.tracer.Start(ctx, "upload.moderate")
	defer span.End()
	return o.deps.Moderator.Moderate(ctx, image)
}

func (o *Orchestrator) store(ctx context.Context, key string, data []byte) error {
	ctx, span := o.tracer.Start(ctx, "upload.store")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.deps.OpTimeout)
	defer cancel()
	return o.deps.Blobs.Put(ctx, key, data, blob.PutOptions{
		ContentType:  "image/webp",
		CacheControl: avatarCacheControl,
	})
}

func (o *Orchestrator) persist(ctx context.Context, userID string, upd profile.AvatarUpdate) error {
	ctx, span := o.tracer.Start(ctx, "upload.persist_profile")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.deps.OpTimeout)
	defer cancel()
	return o.deps.Profiles.UpdateAvatar(ctx, userID, upd)
}

func (o *Orchestrator) appendDecision(ctx context.Context, rec moderation.Record) error {
	ctx, span := o.tracer.Start(ctx, "upload.log_decision")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.deps.OpTimeout)
	defer cancel()
	return o.deps.Decisions.Append(ctx, rec)
}

// logDecision appends best-effort: rejection and moderation-only records must
// not turn into customer-facing failures if the audit store hiccups. The
// ledger keeps the record either way.
func (o *Orchestrator) logDecision(ctx context.Context, rec moderation.Record) {
	if err := o.appendDecision(ctx, rec); err != nil {
		o.deps.Ledger.Error(ctx, "decision log append failed", err,
			"user_id", rec.UserID,
			"status", string(rec.Status),
		)
	}
}

// compensate removes a stored object whose profile reference never landed.
func (o *Orchestrator) compensate(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, o.deps.OpTimeout)
	defer cancel()
	if err := o.deps.Blobs.Delete(ctx, key); err != nil {
		o.deps.Ledger.Error(ctx, "compensating blob delete failed", err, "key", key)
	} else {
		o.deps.Ledger.Log(ctx, "compensating blob delete", "key", key)
	}
}

func (o *Orchestrator) observePipeline(start time.Time) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObservePipeline(start)
	}
}

func (o *Orchestrator) approved() {
	if o.deps.Metrics != nil {
		o.deps.Metrics.UploadsApproved.Inc()
	}
}

func (o *Orchestrator) rejected() {
	if o.deps.Metrics != nil {
		o.deps.Metrics.UploadsRejected.Inc()
	}
}

func (o *Orchestrator) failed() {
	if o.deps.Metrics != nil {
		o.deps.Metrics.UploadsFailed.Inc()
	}
}
