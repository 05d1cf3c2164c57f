// Package upstream is the client for the Healthcare Analytics API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

// Logical query names, also used as cache keys and metric labels.
const (
	QueryHealthMetrics     = "healthMetrics"
	QueryHealthRecord      = "healthRecord"
	QueryRiskAssessment    = "riskAssessment"
	QueryInsurancePolicies = "insurancePolicies"
	QueryMe                = "me"
	QueryLogin             = "login"
	QueryRegister          = "register"
	QueryRefresh           = "refresh"
)

// API paths.
const (
	PathHealthMetrics     = "/api/v1/health-records/metrics"
	PathHealthRecord      = "/api/v1/health-record"
	PathRiskAssessment    = "/api/v1/risk-assessment/latest"
	PathInsurancePolicies = "/api/v1/insurance/policies"
	PathLogin             = "/api/v1/auth/login"
	PathRegister          = "/api/v1/auth/register"
	PathRefresh           = "/api/v1/auth/refresh"
	PathMe                = "/api/v1/users/me"
)

// Client calls the Healthcare Analytics API.
type Client struct {
	http       *resty.Client
	logger     logger.Logger
	baseURL    string
	timeout    time.Duration
	retryCount int
	retryWait  time.Duration
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    5 * time.Second,
		retryCount: 2,
		retryWait:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("upstream")
	}

	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(c.retryCount).
		SetRetryWaitTime(c.retryWait).
		SetRetryMaxWaitTime(4*c.retryWait).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Only idempotent reads are retried, on transport errors and 5xx.
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// HealthMetrics fetches the metrics time series.
func (c *Client) HealthMetrics(ctx context.Context, token string) ([]model.HealthMetricsSample, error) {
	var out []model.HealthMetricsSample
	err := c.do(ctx, QueryHealthMetrics, c.request(ctx, token), http.MethodGet, PathHealthMetrics, &out)
	return out, err
}

// HealthRecord fetches the health record snapshot.
func (c *Client) HealthRecord(ctx context.Context, token string) (model.HealthRecord, error) {
	var out model.HealthRecord
	err := c.do(ctx, QueryHealthRecord, c.request(ctx, token), http.MethodGet, PathHealthRecord, &out)
	return out, err
}

// RiskAssessment fetches the latest risk assessment.
func (c *Client) RiskAssessment(ctx context.Context, token string) (model.RiskAssessment, error) {
	var out model.RiskAssessment
	err := c.do(ctx, QueryRiskAssessment, c.request(ctx, token), http.MethodGet, PathRiskAssessment, &out)
	return out, err
}

// InsurancePolicies fetches the user's policies.
func (c *Client) InsurancePolicies(ctx context.Context, token string) ([]model.InsurancePolicy, error) {
	var out []model.InsurancePolicy
	err := c.do(ctx, QueryInsurancePolicies, c.request(ctx, token), http.MethodGet, PathInsurancePolicies, &out)
	return out, err
}

// Me fetches the profile of the token's user.
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	var out model.User
	err := c.do(ctx, QueryMe, c.request(ctx, token), http.MethodGet, PathMe, &out)
	return out, err
}

// Login exchanges credentials for a token using the OAuth2 password form.
func (c *Client) Login(ctx context.Context, username, password string) (model.Token, error) {
	var out model.Token
	req := c.request(ctx, "").SetFormData(map[string]string{
		"grant_type": "password",
		"username":   username,
		"password":   password,
	})
	err := c.do(ctx, QueryLogin, req, http.MethodPost, PathLogin, &out)
	return out, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	var out model.User
	req := c.request(ctx, "").SetHeader("Content-Type", "application/json").SetBody(reg)
	err := c.do(ctx, QueryRegister, req, http.MethodPost, PathRegister, &out)
	return out, err
}

// Refresh renews an access token before it expires.
func (c *Client) Refresh(ctx context.Context, token string) (model.Token, error) {
	var out model.Token
	err := c.do(ctx, QueryRefresh, c.request(ctx, token), http.MethodPost, PathRefresh, &out)
	return out, err
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// do executes req and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, query string, req *resty.Request, method, path string, out any) error {
	start := time.Now()
	err := c.exec(req, method, path, out)
	latency := time.Since(start)

	metrics.RecordUpstreamRequest(query, Outcome(err), float64(latency.Milliseconds()))
	if err != nil {
		c.logger.Warn(ctx, "upstream request failed",
			logger.String("query", query),
			logger.String("path", path),
			logger.Duration("latency", latency),
			logger.Error(err),
		)
		return err
	}
	c.logger.Debug(ctx, "upstream request",
		logger.String("query", query),
		logger.Duration("latency", latency),
	)
	return nil
}

func (c *Client) exec(req *resty.Request, method, path string, out any) error {
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return &StatusError{Kind: kindOf(status), Status: status, Detail: detailOf(resp.Body())}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}

func kindOf(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrRejected
	default:
		return ErrUpstream
	}
}

// detailOf extracts a FastAPI style {"detail": "..."} message.
func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}
