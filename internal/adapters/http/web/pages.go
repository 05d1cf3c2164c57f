package web

import (
	"errors"
	"net/http"

	"github.com/okian/vitaldash/internal/adapters/export"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/domain/chart"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/domain/types"
	"github.com/okian/vitaldash/pkg/logger"
)

// Recommendations shown on the dashboard for every user.
var Recommendations = []string{
	"Regular exercise and physical activity",
	"Balanced diet with reduced salt intake",
	"Regular health check-ups",
	"Stress management and adequate sleep",
}

type dashboardData struct {
	Metrics         types.Result[[]model.HealthMetricsSample]
	Risk            types.Result[model.RiskAssessment]
	Trend           chart.Chart
	Recommendations []string
}

// trendOf lays out the metrics chart, empty until the samples are loaded.
func trendOf(samples types.Result[[]model.HealthMetricsSample]) chart.Chart {
	if c, ok := types.Map(samples, chart.Build).Data(); ok {
		return c
	}
	return chart.Build(nil)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := SessionFrom(ctx)
	d, err := h.portal.Dashboard(ctx, sess)
	if h.expired(w, r, err) {
		return
	}
	state := stateOf(d.Metrics.State(), d.Risk.State())
	recordRender("dashboard", state)
	h.render(ctx, w, http.StatusOK, "dashboard", view{
		Title:   "Dashboard",
		Active:  PathDashboard,
		Loading: state == types.Loading,
		Data: dashboardData{
			Metrics:         d.Metrics,
			Risk:            d.Risk,
			Trend:           trendOf(d.Metrics),
			Recommendations: Recommendations,
		},
	})
}

func (h *Handler) handleHealthRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.portal.HealthRecord(ctx, SessionFrom(ctx))
	if h.expired(w, r, err) {
		return
	}
	recordRender("health_record", res.State())
	h.render(ctx, w, http.StatusOK, "health_record", view{
		Title:   "Health Record",
		Active:  PathHealthRecord,
		Loading: res.IsLoading(),
		Data:    res,
	})
}

func (h *Handler) handleRiskAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.portal.RiskAssessment(ctx, SessionFrom(ctx))
	if h.expired(w, r, err) {
		return
	}
	recordRender("risk_assessment", res.State())
	h.render(ctx, w, http.StatusOK, "risk_assessment", view{
		Title:   "Risk Assessment",
		Active:  PathRiskAssessment,
		Loading: res.IsLoading(),
		Data:    res,
	})
}

func (h *Handler) handleInsurancePolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.portal.InsurancePolicies(ctx, SessionFrom(ctx))
	if h.expired(w, r, err) {
		return
	}
	recordRender("insurance_policies", res.State())
	h.render(ctx, w, http.StatusOK, "insurance_policies", view{
		Title:   "Insurance Policies",
		Active:  PathInsurancePolicies,
		Loading: res.IsLoading(),
		Data:    res,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policies, err := h.portal.PoliciesForExport(ctx, SessionFrom(ctx))
	if h.expired(w, r, err) {
		return
	}
	if err != nil {
		h.logger.Warn(ctx, "policy export fetch failed", logger.Error(err))
		http.Error(w, "could not load insurance policies", http.StatusBadGateway)
		return
	}

	body, err := export.Policies(policies)
	if err != nil {
		h.logger.Error(ctx, "policy export failed", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="insurance-policies.xlsx"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

// expired redirects to the login page when the upstream rejected the
// session's token. It reports whether the response was written.
func (h *Handler) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, service.ErrSessionExpired) {
		http.Redirect(w, r, PathLogin+"?expired=1", http.StatusSeeOther)
		return true
	}
	h.logger.Warn(r.Context(), "session check failed", logger.Error(err))
	return false
}
