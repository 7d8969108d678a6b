package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zccoffin/Spekter/internal/domain"
	"go.uber.org/zap"
)

const (
	requestTimeout = 30 * time.Second

	// DefaultRetries is the retry budget applied when the caller does not set
	// one.
	DefaultRetries = 2
)

// TokenSource supplies the session's current bearer token and refreshes it
// when the server signals auth expiry. Refresh must mutate the underlying
// session so later calls pick up the new token.
type TokenSource interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// Result is the uniform shape every call resolves to. A failed call carries
// the raw error detail; a successful one carries the unwrapped data payload.
type Result struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Err     string
}

// SendOptions tune a single Send. Auth calls skip the bearer header and never
// trigger a token refresh.
type SendOptions struct {
	Retries int
	Auth    bool
	Headers map[string]string

	// resubmitted marks the single post-refresh resubmission; a 401 on it
	// surfaces without another refresh.
	resubmitted bool
}

// Client issues JSON calls against the game API with a uniform timeout,
// optional proxy tunneling, and the retry/refresh policy described on Send.
type Client struct {
	http        *resty.Client
	baseURL     string
	identityURL string
	ipCheckURL  string
	tokens      TokenSource
	retryWait   time.Duration
	log         *zap.Logger
}

type ClientOptions struct {
	BaseURL   string
	Proxy     string
	UserAgent string
	RetryWait time.Duration
	Logger    *zap.Logger

	// IdentityURL and IPCheckURL override the identity-provider and IP-echo
	// endpoints; empty means the production defaults.
	IdentityURL string
	IPCheckURL  string
}

func NewClient(opts ClientOptions) *Client {
	httpClient := resty.New().
		SetTimeout(requestTimeout).
		SetHeaders(map[string]string{
			"Accept":             "*/*",
			"Accept-Language":    "en-US,en;q=0.9",
			"Content-Type":       "application/json",
			"Origin":             "https://app.spekteragency.io",
			"Referer":            "https://app.spekteragency.io/",
			"Sec-Fetch-Dest":     "empty",
			"Sec-Fetch-Mode":     "cors",
			"Sec-Fetch-Site":     "same-origin",
			"Sec-Ch-Ua-Mobile":   "?0",
			"Sec-Ch-Ua":          secChUa(opts.UserAgent),
			"Sec-Ch-Ua-Platform": platformOf(opts.UserAgent),
			"User-Agent":         opts.UserAgent,
		})

	// Proxy applies to both the TCP CONNECT and the TLS tunnel.
	if opts.Proxy != "" {
		httpClient.SetProxy(opts.Proxy)
	}

	retryWait := opts.RetryWait
	if retryWait <= 0 {
		retryWait = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	identityURL := opts.IdentityURL
	if identityURL == "" {
		identityURL = identityToolkitBase
	}
	ipCheckURL := opts.IPCheckURL
	if ipCheckURL == "" {
		ipCheckURL = defaultIPCheckURL
	}

	return &Client{
		http:        httpClient,
		baseURL:     opts.BaseURL,
		identityURL: identityURL,
		ipCheckURL:  ipCheckURL,
		retryWait:   retryWait,
		log:         logger,
	}
}

// SetTokenSource attaches the session's token lifecycle after construction;
// the session itself needs the client to acquire its first token.
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// BaseURL returns the resolved API base endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send issues one JSON call and classifies the outcome:
//
//   - 401 forces a token refresh; a refresh failure is fatal for the account
//     (non-nil error). With retry budget left, the call is resubmitted exactly
//     once with retries forced to zero, otherwise the 401 surfaces as failure.
//     A second 401 on the resubmission surfaces without another refresh.
//   - 400 is terminal and surfaces immediately.
//   - Any other failure (transport, timeout, 5xx) sleeps the retry delay,
//     decrements the budget, and resubmits; the last error surfaces once the
//     budget is spent.
//
// A 2xx payload carrying a nonzero application errorCode is a failure with
// the raw payload as detail; a zero code unwraps the nested data field.
func (c *Client) Send(ctx context.Context, url, method string, body any, opts SendOptions) (Result, error) {
	var last Result
	for attempt := 0; ; attempt++ {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}
		for name, value := range opts.Headers {
			req.SetHeader(name, value)
		}
		if !opts.Auth && c.tokens != nil {
			req.SetHeader("Authorization", "Bearer "+c.tokens.Token())
		}

		resp, err := req.Execute(strings.ToUpper(method), url)
		switch {
		case err == nil && resp.StatusCode() == http.StatusUnauthorized && !opts.Auth:
			return c.refreshAndResubmit(ctx, url, method, body, opts, resp)

		case err == nil && resp.StatusCode() == http.StatusBadRequest:
			return Result{Success: false, Status: resp.StatusCode(), Err: errorDetail(resp.Body())}, nil

		case err == nil && resp.StatusCode() < http.StatusBadRequest:
			return classify(resp), nil

		default:
			if err != nil {
				last = Result{Success: false, Err: err.Error()}
			} else {
				last = Result{Success: false, Status: resp.StatusCode(), Err: errorDetail(resp.Body())}
			}
		}

		if attempt >= opts.Retries {
			return last, nil
		}
		c.log.Debug("retrying request",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.String("error", last.Err))
		if err := wait(ctx, c.retryWait); err != nil {
			last.Err = err.Error()
			return last, nil
		}
	}
}

func (c *Client) refreshAndResubmit(ctx context.Context, url, method string, body any, opts SendOptions, resp *resty.Response) (Result, error) {
	if c.tokens == nil || opts.resubmitted {
		return Result{Success: false, Status: resp.StatusCode(), Err: errorDetail(resp.Body())}, nil
	}

	c.log.Warn("auth expired, refreshing token", zap.String("url", url))
	if _, err := c.tokens.Refresh(ctx); err != nil {
		return Result{Success: false, Status: resp.StatusCode(), Err: err.Error()},
			fmt.Errorf("%w: %v", domain.ErrTokenRefresh, err)
	}

	if opts.Retries > 0 {
		opts.Retries = 0
		opts.resubmitted = true
		return c.Send(ctx, url, method, body, opts)
	}

	return Result{Success: false, Status: resp.StatusCode(), Err: errorDetail(resp.Body())}, nil
}

// envelope is the application-level response wrapper; ErrorCode is a pointer
// so a payload without one passes through untouched.
type envelope struct {
	ErrorCode *int            `json:"errorCode"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
}

func classify(resp *resty.Response) Result {
	body := resp.Body()
	if len(body) == 0 {
		return Result{Success: true, Status: resp.StatusCode()}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.ErrorCode != nil && *env.ErrorCode != 0 {
			return Result{Success: false, Status: resp.StatusCode(), Err: string(body)}
		}
		if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			return Result{Success: true, Status: resp.StatusCode(), Data: env.Data}
		}
	}

	return Result{Success: true, Status: resp.StatusCode(), Data: body}
}

func errorDetail(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return string(body)
}

var (
	iosPattern     = regexp.MustCompile(`(?i)iphone|ipad`)
	androidPattern = regexp.MustCompile(`(?i)android`)
)

func platformOf(userAgent string) string {
	switch {
	case iosPattern.MatchString(userAgent):
		return "ios"
	case androidPattern.MatchString(userAgent):
		return "android"
	default:
		return "Windows"
	}
}

func secChUa(userAgent string) string {
	return fmt.Sprintf(`"Not)A;Brand";v="99", "%s WebView";v="127", "Chromium";v="127"`, platformOf(userAgent))
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
