package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/zonecharge/internal/domain"
	"github.com/bnema/zonecharge/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
	requestIDHeader  = "X-Request-ID"
)

const (
	pathToken          = "token/"
	pathCurrentUser    = "current-user/"
	pathBalance        = "balance/"
	pathCheckAndCharge = "check-and-charge/"
	pathZoneLookup     = "charging-logic/location/"
	pathZoneStatus     = "charging-logic/status/"
)

// TokenSource returns the token for the current session, empty when logged out.
type TokenSource func() string

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the billing REST API.
type Client struct {
	baseURL    *url.URL
	token      TokenSource
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
	requestID  func() string
	logger     *slog.Logger
}

var (
	_ ports.AuthAPI    = (*Client)(nil)
	_ ports.BillingAPI = (*Client)(nil)
	_ ports.ZoneAPI    = (*Client)(nil)
)

// APIError is a non-2xx response from the billing API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is maps 401 responses to domain.ErrUnauthorized and 404 to domain.ErrNoZone
// so callers can classify without importing this package.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrNoZone:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func NewClient(cfg Config, token TokenSource, logger *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if token == nil {
		token = func() string { return "" }
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    base,
		token:      token,
		timeout:    timeout,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{},
		requestID:  func() string { return uuid.NewString() },
		logger:     logger,
	}, nil
}

func (c *Client) ObtainToken(ctx context.Context, creds domain.Credentials) (string, error) {
	body := tokenRequest{Username: creds.Username, Password: creds.Password}

	var resp tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, pathToken, "", body, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return "", errors.New("token response missing token")
	}

	return resp.Token, nil
}

func (c *Client) CurrentUser(ctx context.Context, token string) (domain.UserProfile, error) {
	var resp currentUserResponse
	if err := c.doJSON(ctx, http.MethodGet, pathCurrentUser, token, nil, &resp); err != nil {
		return domain.UserProfile{}, err
	}

	return resp.toDomain(), nil
}

func (c *Client) FetchBalance(ctx context.Context) (domain.AccountBalance, error) {
	var resp balanceResponse
	if err := c.doJSON(ctx, http.MethodGet, pathBalance, c.token(), nil, &resp); err != nil {
		return domain.AccountBalance{}, err
	}
	if resp.Balance == nil {
		return domain.AccountBalance{}, errors.New("balance response missing balance")
	}

	return domain.NewAccountBalance(*resp.Balance), nil
}

// CheckAndCharge evaluates req against the active zones. A 404 means the
// position is outside every zone and yields an empty result.
func (c *Client) CheckAndCharge(ctx context.Context, req domain.ChargeEvaluationRequest) (domain.ChargeEvaluationResult, error) {
	var resp checkAndChargeResponse
	err := c.doJSON(ctx, http.MethodPost, pathCheckAndCharge, c.token(), req, &resp)
	if err != nil {
		if IsNotFound(err) {
			return domain.ChargeEvaluationResult{}, nil
		}
		return domain.ChargeEvaluationResult{}, err
	}

	return resp.toDomain()
}

// LookupZone returns the charging logic that applies at req without charging.
func (c *Client) LookupZone(ctx context.Context, req domain.ChargeEvaluationRequest) (domain.ChargingLogic, error) {
	var resp chargingLogicPayload
	if err := c.doJSON(ctx, http.MethodPost, pathZoneLookup, c.token(), req, &resp); err != nil {
		if IsNotFound(err) {
			return domain.ChargingLogic{}, fmt.Errorf("lookup zone: %w", domain.ErrNoZone)
		}
		return domain.ChargingLogic{}, err
	}

	return resp.toDomain()
}

func (c *Client) ActiveChargingLogics(ctx context.Context) ([]domain.ChargingLogic, error) {
	var resp []chargingLogicPayload
	if err := c.doJSON(ctx, http.MethodGet, pathZoneStatus, c.token(), nil, &resp); err != nil {
		return nil, err
	}

	logics := make([]domain.ChargingLogic, 0, len(resp))
	for _, entry := range resp {
		logic, err := entry.toDomain()
		if err != nil {
			return nil, err
		}
		logics = append(logics, logic)
	}

	return logics, nil
}

// doJSON performs one request with an optional JSON body and decodes the JSON
// response into result when it is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body any, result any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("billing: request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(started),
	)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.Status),
			RequestID:  requestID,
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) endpoint(path string) (string, error) {
	if path == "" {
		return "", errors.New("api path is required")
	}

	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + "/" + strings.TrimLeft(path, "/")
	endpoint.RawPath = ""

	return endpoint.String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("api base url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}

	return parsed, nil
}

// errorMessage extracts the server's explanation. The API answers with
// {"detail": ...} or {"error": ...}; anything else is reported verbatim.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	return text
}
