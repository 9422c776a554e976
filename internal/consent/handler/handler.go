package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cookiegate/internal/consent/catalog"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/storage"
	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/platform/httputil"
	"cookiegate/pkg/platform/middleware/request"
	"cookiegate/pkg/requestcontext"
	"cookiegate/pkg/validation"
)

// Service defines the consent operations served over HTTP. Each call receives
// a jar bound to the current request's cookies.
type Service interface {
	Get(ctx context.Context, jar storage.Jar) *models.GetConsentResponse
	Save(ctx context.Context, jar storage.Jar, req *models.SaveConsentRequest) (*models.SaveConsentResponse, error)
	Update(ctx context.Context, jar storage.Jar, req *models.UpdateConsentRequest) (*models.UpdateConsentResponse, error)
	Delete(ctx context.Context, jar storage.Jar) error
	Revoke(ctx context.Context, jar storage.Jar, reason string) error
	Verify(ctx context.Context, jar storage.Jar, req *models.VerifyRequest) *models.VerifyResponse
	Definitions() map[models.Category][]catalog.CookieDefinition
	Policy(ctx context.Context) *models.PolicyResponse
	Scripts(ctx context.Context, jar storage.Jar) (*models.ScriptsResponse, error)
	Device(ctx context.Context, deviceID string) (*models.DeviceConsentResponse, error)
}

// Handler serves the /api/cookies routes.
type Handler struct {
	logger        *slog.Logger
	consent       Service
	cors          request.CORSConfig
	internalToken string
}

type Option func(*Handler)

// WithInternalToken mounts the device lookup for callers presenting token in
// X-Internal-Token. Without it the route does not exist.
func WithInternalToken(token string) Option {
	return func(h *Handler) {
		h.internalToken = token
	}
}

// New creates a consent Handler. allowedOrigin restricts cross-origin
// revocation; empty allows any origin without credentials.
func New(consent Service, logger *slog.Logger, allowedOrigin string, opts ...Option) *Handler {
	h := &Handler{
		logger:  logger,
		consent: consent,
		cors: request.CORSConfig{
			AllowedOrigin: allowedOrigin,
			Methods:       []string{http.MethodDelete, http.MethodOptions},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the consent routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/cookies", func(r chi.Router) {
		r.Get("/consent", h.handleGetConsent)
		r.Post("/consent", h.handleSaveConsent)
		r.Delete("/consent", h.handleDeleteConsent)
		r.Post("/update", h.handleUpdateConsent)
		r.Post("/verify", h.handleVerify)
		r.Get("/definitions", h.handleDefinitions)
		r.Get("/policy", h.handlePolicy)
		r.Get("/scripts", h.handleScripts)

		if h.internalToken != "" {
			r.With(request.RequireToken(h.internalToken, h.logger)).
				Get("/devices/{deviceID}", h.handleDevice)
		}

		r.Group(func(r chi.Router) {
			r.Use(request.CORS(h.cors))
			r.Delete("/revoke", h.handleRevoke)
			r.Options("/revoke", func(http.ResponseWriter, *http.Request) {})
		})
	})
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	jar := storage.NewRequestJar(w, r)
	httputil.WriteJSON(w, http.StatusOK, h.consent.Get(r.Context(), jar))
}

func (h *Handler) handleSaveConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SaveConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.consent.Save(ctx, storage.NewRequestJar(w, r), req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save consent",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.UpdateConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.consent.Update(ctx, storage.NewRequestJar(w, r), req)
	if err != nil {
		h.logError(ctx, "failed to update consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDeleteConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.consent.Delete(ctx, storage.NewRequestJar(w, r)); err != nil {
		h.logError(ctx, "failed to delete consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reason := validation.Truncate(r.URL.Query().Get("reason"), validation.MaxRevokeReasonLength)

	if err := h.consent.Revoke(ctx, storage.NewRequestJar(w, r), reason); err != nil {
		h.logError(ctx, "failed to revoke consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.consent.Verify(ctx, storage.NewRequestJar(w, r), req))
}

func (h *Handler) handleDefinitions(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.consent.Definitions())
}

func (h *Handler) handlePolicy(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.consent.Policy(r.Context()))
}

func (h *Handler) handleScripts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.consent.Scripts(ctx, storage.NewRequestJar(w, r))
	if err != nil {
		h.logError(ctx, "failed to render consent scripts", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "deviceID")
	if err := validation.Var(deviceID, "required,uuid"); err != nil {
		httputil.WriteError(w, dErrors.NewWithFields(dErrors.CodeValidation, "invalid device id",
			map[string]string{"deviceID": "must be a valid uuid"}))
		return
	}

	res, err := h.consent.Device(ctx, deviceID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logError(ctx, "failed to look up device consent", err)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
