// Package handler exposes the admission admin API. Routes are mounted behind
// the admin token middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shieldgate/internal/admission/models"
	"shieldgate/pkg/platform/httputil"
	"shieldgate/pkg/requestcontext"
)

type Service interface {
	ListBlocked(ctx context.Context) ([]models.BlockedIP, error)
	Unblock(ctx context.Context, ip string) error
	ResetClient(ctx context.Context, req *models.ResetClientRequest) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/admission/blocks", h.HandleListBlocked)
	r.Delete("/admin/admission/blocks/{ip}", h.HandleUnblock)
	r.Post("/admin/admission/reset", h.HandleResetClient)
}

// HandleListBlocked implements GET /admin/admission/blocks.
func (h *Handler) HandleListBlocked(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	blocked, err := h.service.ListBlocked(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list blocked ips",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if blocked == nil {
		blocked = []models.BlockedIP{}
	}
	httputil.WriteJSON(w, http.StatusOK, &models.BlockedIPsResponse{Blocked: blocked, Count: len(blocked)})
}

// HandleUnblock implements DELETE /admin/admission/blocks/{ip}.
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := chi.URLParam(r, "ip")
	if err := h.service.Unblock(ctx, ip); err != nil {
		h.logger.WarnContext(ctx, "failed to unblock ip",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.UnblockResponse{
		IP:        ip,
		Unblocked: true,
		At:        requestcontext.Now(ctx),
	})
}

// HandleResetClient implements POST /admin/admission/reset.
//
// Input: { "kind": "ip", "identifier": "203.0.113.9" }
func (h *Handler) HandleResetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndValidate[models.ResetClientRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}
	clientKey, err := h.service.ResetClient(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to reset client",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.ResetClientResponse{ClientKey: clientKey, Reset: true})
}
