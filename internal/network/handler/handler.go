// Package handler exposes the network credit scoring HTTP surface. All
// routes require an authenticated tenant; the tenant ID comes from the
// bearer token, never from the request body.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"creditnet/internal/network/models"
	"creditnet/internal/network/service"
	id "creditnet/pkg/domain"
	dErrors "creditnet/pkg/domain-errors"
	"creditnet/pkg/platform/httputil"
	"creditnet/pkg/requestcontext"
)

// Service is the slice of the network service the HTTP layer consumes.
type Service interface {
	Register(ctx context.Context, tenantID id.TenantID, tier id.ContributionTier) (*models.TenantContribution, string, error)
	GetContribution(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error)
	OptOut(ctx context.Context, tenantID id.TenantID) (*models.TenantContribution, error)
	UpdatePrivacySettings(ctx context.Context, tenantID id.TenantID, settings models.PrivacySettings) (*models.TenantContribution, error)
	Contribute(ctx context.Context, tenantID id.TenantID, buyerTaxID string, event models.PaymentEvent) error
	CommunityScore(ctx context.Context, tenantID id.TenantID, buyerTaxID string) (*service.ScoreResult, error)
	ListIntelligence(ctx context.Context, tenantID id.TenantID, industryCode string) ([]*models.Intelligence, error)
	Insights(ctx context.Context, tenantID id.TenantID) (*service.NetworkInsights, error)
	IndustryTrends(ctx context.Context, tenantID id.TenantID, industryCode string) ([]service.MonthlyTrend, error)
	TrustDistribution(ctx context.Context, tenantID id.TenantID, industryCode, region string) ([]service.TrustBand, error)
}

// Handler wires network endpoints to the network service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a network handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the network endpoints on the router. The caller is
// responsible for wrapping the router with authentication middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/credit-scoring/network", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Get("/contribution", h.HandleGetContribution)
		r.Post("/opt-out", h.HandleOptOut)
		r.Put("/privacy", h.HandleUpdatePrivacy)
		r.Post("/contribute", h.HandleContribute)
		r.Get("/score/{buyerPAN}", h.HandleScore)
		r.Get("/intelligence", h.HandleIntelligence)
		r.Get("/insights", h.HandleInsights)
		r.Get("/trends/{industry}", h.HandleTrends)
		r.Get("/distribution", h.HandleDistribution)
	})
}

// tenantID pulls the authenticated tenant from the context, writing the 401
// itself when the middleware chain let an unauthenticated request through.
func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID := requestcontext.TenantID(r.Context())
	if tenantID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.TenantID{}, false
	}
	return tenantID, true
}

// HandleRegister handles POST /credit-scoring/network/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	contribution, secret, err := h.service.Register(ctx, tenantID, req.ParsedTier())
	if err != nil {
		h.logger.ErrorContext(ctx, "network registration failed",
			"tenant_id", tenantID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, RegisteredResponse{
		Contribution: FromContribution(contribution),
		APISecret:    secret,
	})
}

// HandleGetContribution handles GET /credit-scoring/network/contribution.
func (h *Handler) HandleGetContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	contribution, err := h.service.GetContribution(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContribution(contribution))
}

// HandleOptOut handles POST /credit-scoring/network/opt-out.
func (h *Handler) HandleOptOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	contribution, err := h.service.OptOut(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContribution(contribution))
}

// HandleUpdatePrivacy handles PUT /credit-scoring/network/privacy.
func (h *Handler) HandleUpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[PrivacyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	contribution, err := h.service.UpdatePrivacySettings(ctx, tenantID, req.Settings())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContribution(contribution))
}

// HandleContribute handles POST /credit-scoring/network/contribute. A
// request from a tenant that cannot contribute is accepted and dropped;
// the caller's settlement path must never fail on participation state.
func (h *Handler) HandleContribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ContributeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.service.Contribute(ctx, tenantID, req.BuyerTaxID, req.Event()); err != nil {
		h.logger.ErrorContext(ctx, "contribution failed",
			"tenant_id", tenantID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleScore handles GET /credit-scoring/network/score/{buyerPAN}. Access
// denial is a 200 with accessGranted=false, not an error.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	result, err := h.service.CommunityScore(ctx, tenantID, chi.URLParam(r, "buyerPAN"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleIntelligence handles GET /credit-scoring/network/intelligence.
func (h *Handler) HandleIntelligence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	records, err := h.service.ListIntelligence(ctx, tenantID, r.URL.Query().Get("industry"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"intelligence": FromIntelligence(records),
	})
}

// InsightsView is the wire shape of the network overview.
type InsightsView struct {
	TotalObservations  int                `json:"totalObservations"`
	ProfiledBuyers     int                `json:"profiledBuyers"`
	CurrentMonthVolume int                `json:"currentMonthVolume"`
	ActiveIndustries   []string           `json:"activeIndustries"`
	ActiveRegions      []string           `json:"activeRegions"`
	RecentIntelligence []IntelligenceView `json:"recentIntelligence"`
}

// HandleInsights handles GET /credit-scoring/network/insights.
func (h *Handler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	insights, err := h.service.Insights(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, InsightsView{
		TotalObservations:  insights.TotalObservations,
		ProfiledBuyers:     insights.ProfiledBuyers,
		CurrentMonthVolume: insights.CurrentMonthVolume,
		ActiveIndustries:   insights.ActiveIndustries,
		ActiveRegions:      insights.ActiveRegions,
		RecentIntelligence: FromIntelligence(insights.RecentIntelligence),
	})
}

// HandleTrends handles GET /credit-scoring/network/trends/{industry}.
func (h *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	industry := chi.URLParam(r, "industry")
	trends, err := h.service.IndustryTrends(ctx, tenantID, industry)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"industry": industry,
		"trends":   trends,
	})
}

// HandleDistribution handles GET /credit-scoring/network/distribution.
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	bands, err := h.service.TrustDistribution(ctx, tenantID, query.Get("industry"), query.Get("region"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"distribution": bands})
}
