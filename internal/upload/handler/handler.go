// Package handler is the thin HTTP layer over the upload pipeline. It
// delegates to the orchestrator and renders only charter-backed responses;
// transport concerns stay here so the pipeline core has no net/http
// dependency beyond status codes.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/session"
	"avatar-gateway/internal/upload"
	"avatar-gateway/pkg/requestcontext"
)

// maxMultipartMemory bounds in-memory multipart buffering; anything larger
// spills to disk before validation rejects it.
const maxMultipartMemory = 4 * 1024 * 1024

// Handler wires the avatar endpoints.
type Handler struct {
	orch     *upload.Orchestrator
	sessions upload.SessionValidator
	logger   *slog.Logger

	adminKeyHash string
	environment  string
	version      string
}

// New constructs the handler. adminKeyHash empty disables the migration
// endpoint.
func New(orch *upload.Orchestrator, sessions upload.SessionValidator, logger *slog.Logger, adminKeyHash, environment, version string) *Handler {
	return &Handler{
		orch:         orch,
		sessions:     sessions,
		logger:       logger,
		adminKeyHash: adminKeyHash,
		environment:  environment,
		version:      version,
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/avatars/upload", h.handleUpload)
	r.Post("/api/avatars/moderate", h.handleModerate)
	r.Post("/api/avatars/migrate", h.handleMigrate)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Get("/health", h.handleHealth)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, audit.NotFound, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, audit.MethodNotAllowed, http.StatusMethodNotAllowed)
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	token := session.ExtractBearer(r.Header.Get("Authorization"))

	result := h.orch.Upload(r.Context(), token, func() (upload.File, error) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return upload.File{}, err
		}
		file, header, err := r.FormFile("avatar")
		if err != nil {
			return upload.File{}, err
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, upload.MaxFileSize+1))
		if err != nil {
			return upload.File{}, err
		}
		return upload.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Data:        data,
		}, nil
	})

	if result.Success {
		writeJSON(w, result.Status, map[string]any{
			"success":    true,
			"message":    result.Message.Text(),
			"avatar_url": result.AvatarURL,
		})
		return
	}
	if result.Status == http.StatusBadRequest && result.Message == audit.ModerationRejected {
		writeJSON(w, result.Status, map[string]any{
			"success": false,
			"message": result.Message.Text(),
			"allowed": false,
		})
		return
	}
	writeError(w, result.Message, result.Status)
}

func (h *Handler) handleModerate(w http.ResponseWriter, r *http.Request) {
	token := session.ExtractBearer(r.Header.Get("Authorization"))

	result := h.orch.ModerateOnly(r.Context(), token, func() (upload.ModerateRequest, error) {
		var req upload.ModerateRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	})

	switch result.Status {
	case http.StatusOK, http.StatusBadRequest:
		if result.Message == audit.MissingFields {
			writeError(w, result.Message, result.Status)
			return
		}
		writeJSON(w, result.Status, map[string]any{
			"success":    result.Success,
			"message":    result.Message.Text(),
			"allowed":    result.Allowed,
			"confidence": result.Confidence,
		})
	default:
		writeError(w, result.Message, result.Status)
	}
}

func (h *Handler) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if h.adminKeyHash == "" {
		writeError(w, audit.NotFound, http.StatusNotFound)
		return
	}
	key := r.Header.Get("X-Admin-Key")
	if err := bcrypt.CompareHashAndPassword([]byte(h.adminKeyHash), []byte(key)); err != nil {
		h.logger.WarnContext(r.Context(), "migration admin key rejected",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, audit.Unauthorized, http.StatusForbidden)
		return
	}

	var req struct {
		Limit int `json:"limit"`
	}
	// An empty body means default batch size.
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.orch.Migrate(r.Context(), req.Limit)
	if err != nil {
		writeError(w, audit.ServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  audit.MigrationComplete.Text(),
		"scanned":  result.Scanned,
		"migrated": result.Migrated,
		"failed":   result.Failed,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := session.ExtractBearer(r.Header.Get("Authorization"))
	if token != "" {
		h.sessions.Invalidate(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"environment": h.environment,
		"timestamp":   requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
		"version":     h.version,
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders the {error} envelope. The message parameter being a
// charter value is what keeps this compile-time safe against leaking
// arbitrary strings.
func writeError(w http.ResponseWriter, msg audit.Message, status int) {
	writeJSON(w, status, map[string]any{"error": msg.Text()})
}
