// Package apiclient es el cliente HTTP del web tier hacia /account/* del API tier.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	mw "github.com/kateeridumb/Library/internal/http/middlewares"
	"github.com/kateeridumb/Library/internal/observability/logger"
)

var (
	// ErrUnauthorized: la API rechazó el bridge token (401/403). La sesión web se descarta.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	ErrRateLimited  = errors.New("apiclient: rate limited")
	ErrBadRequest   = errors.New("apiclient: bad request")
	ErrUpstream     = errors.New("apiclient: upstream failure")
)

const maxResponseBody = 1 << 20

// Client habla JSON con la API. El bridge se inyecta en el transport de hc.
type Client struct {
	base string
	hc   *http.Client
}

// New crea el cliente. hc nil usa un http.Client con timeout de 10s.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: build %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// IP del usuario final ya resuelta por el web tier; el API la acepta solo
	// si este tier está en sus trusted_proxies.
	if ip := mw.ClientIPFromContext(ctx); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s: status %d", ErrUpstream, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		logger.From(ctx).Debug("api rejected request",
			logger.Component("apiclient"), logger.Path(path), logger.Status(resp.StatusCode))
		return fmt.Errorf("%w: %s: status %d", ErrBadRequest, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUpstream, path, err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*dto.LoginResult, error) {
	var out dto.LoginResult
	if err := c.do(ctx, http.MethodPost, "/account/login", dto.LoginRequest{Username: username, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetTwoFactorCode(ctx context.Context, challenge, code string, expiry time.Time) (*dto.CommandResult, error) {
	var out dto.CommandResult
	in := dto.SetTwoFactorCodeRequest{TwoFactorToken: challenge, Code: code, ExpiryUTC: expiry.UTC()}
	if err := c.do(ctx, http.MethodPost, "/account/set-twofactor-code", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyTwoFactorCode(ctx context.Context, challenge, code string) (*dto.CommandResult, error) {
	var out dto.CommandResult
	if err := c.do(ctx, http.MethodPost, "/account/verify-twofactor-code", dto.TwoFactorCodeRequest{TwoFactorToken: challenge, Code: code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearTwoFactorCode(ctx context.Context, challenge string) error {
	return c.do(ctx, http.MethodPost, "/account/clear-twofactor-code", dto.TwoFactorCodeRequest{TwoFactorToken: challenge}, nil)
}

func (c *Client) GuestLogin(ctx context.Context) (*dto.GuestLoginResult, error) {
	var out dto.GuestLoginResult
	if err := c.do(ctx, http.MethodPost, "/account/guest-login", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleTwoFactor requiere identidad en ctx (bridge).
func (c *Client) ToggleTwoFactor(ctx context.Context, enabled bool) (*dto.CommandResult, error) {
	var out dto.CommandResult
	if err := c.do(ctx, http.MethodPost, "/account/toggle-twofactor", dto.ToggleTwoFactorRequest{Enabled: enabled}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*dto.ForgotPasswordResult, error) {
	var out dto.ForgotPasswordResult
	if err := c.do(ctx, http.MethodPost, "/account/forgot-password", dto.ForgotPasswordRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	var out dto.CommandResult
	if err := c.do(ctx, http.MethodGet, "/account/validate-reset-token?token="+url.QueryEscape(token), nil, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) (*dto.CommandResult, error) {
	var out dto.CommandResult
	if err := c.do(ctx, http.MethodPost, "/account/reset-password", dto.ResetPasswordRequest{Token: token, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in dto.RegisterRequest) (*dto.CommandResult, error) {
	var out dto.CommandResult
	if err := c.do(ctx, http.MethodPost, "/account/register", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Roles(ctx context.Context) ([]dto.RoleItem, error) {
	var out []dto.RoleItem
	if err := c.do(ctx, http.MethodGet, "/account/roles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping consulta /healthz; lo usa el health check del web tier.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
