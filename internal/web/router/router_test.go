package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kateeridumb/Library/internal/cache"
	accountctrl "github.com/kateeridumb/Library/internal/http/controllers/account"
	apirouter "github.com/kateeridumb/Library/internal/http/router"
	accountsvc "github.com/kateeridumb/Library/internal/http/services/account"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/store/memory"
	"github.com/kateeridumb/Library/internal/web/apiclient"
	"github.com/kateeridumb/Library/internal/web/bridge"
	"github.com/kateeridumb/Library/internal/web/controllers"
	"github.com/kateeridumb/Library/internal/web/dto"
	"github.com/kateeridumb/Library/internal/web/flows"
	"github.com/kateeridumb/Library/internal/web/session"
)

const pwd = "Correct-Horse-42"

type outbox struct {
	mu    sync.Mutex
	err   error
	codes []string
	links []string
}

func (o *outbox) SendTwoFactorCode(_ context.Context, _, _, code string, _ time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, code)
	return o.err
}

func (o *outbox) SendPasswordReset(_ context.Context, _, link string, _ time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links = append(o.links, link)
	return o.err
}

func (o *outbox) lastCode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[len(o.codes)-1]
}

type stack struct {
	web    *httptest.Server
	repo   *memory.Store
	hasher *password.Hasher
	mail   *outbox
}

type options struct {
	webKey  string
	limiter rate.Limiter
}

func newStack(t *testing.T, opt options) *stack {
	t.Helper()
	const apiKey = "shared-test-key-0123456789abcdef0"
	apiSigner, err := jwtx.NewSigner(jwtx.Config{Key: apiKey, Issuer: "LibraryMPT", Audience: "LibraryMPT.Api"})
	require.NoError(t, err)
	webKey := apiKey
	if opt.webKey != "" {
		webKey = opt.webKey
	}
	webSigner, err := jwtx.NewSigner(jwtx.Config{Key: webKey, Issuer: "LibraryMPT", Audience: "LibraryMPT.Api"})
	require.NoError(t, err)

	repo := memory.New()
	hasher := password.NewHasher(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, false)
	policy := password.Policy{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true}

	api := httptest.NewServer(apirouter.NewAPIRouter(apirouter.APIRouterDeps{
		Account: accountctrl.NewControllers(accountsvc.NewServices(accountsvc.Deps{
			Repo: repo, Hasher: hasher, Signer: apiSigner, Policy: policy,
		})),
		Signer: apiSigner,
	}))
	t.Cleanup(api.Close)

	client := apiclient.New(api.URL, &http.Client{
		Timeout:   5 * time.Second,
		Transport: bridge.New(http.DefaultTransport, webSigner, session.BridgeIdentity),
	})
	mail := &outbox{}
	fl := flows.New(flows.Deps{API: client, Mailer: mail, Policy: policy, PublicBaseURL: "http://web.test"})
	sessions := session.NewManager(cache.NewMemory("", time.Hour), session.Config{CookieName: "sid", TTL: time.Hour})

	web := httptest.NewServer(New(Deps{
		Controllers: controllers.NewControllers(controllers.Deps{Flows: fl, Sessions: sessions}),
		Sessions:    sessions,
		Limiter:     opt.limiter,
	}))
	t.Cleanup(web.Close)

	return &stack{web: web, repo: repo, hasher: hasher, mail: mail}
}

func (s *stack) addUser(t *testing.T, username, role, email string, twoFactor bool) {
	t.Helper()
	ctx := context.Background()
	r, err := s.repo.GetRoleByName(ctx, role)
	require.NoError(t, err)
	hash, salt, err := s.hasher.CreateCredential(pwd)
	require.NoError(t, err)
	u := &core.User{Username: username, Email: email, FirstName: "Ann", LastName: "Lee", RoleID: r.ID, PasswordHash: hash, PasswordSalt: salt}
	require.NoError(t, s.repo.CreateUser(ctx, u))
	if twoFactor {
		require.NoError(t, s.repo.SetTwoFactorEnabled(ctx, u.ID, true))
	}
}

func (s *stack) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *stack) post(t *testing.T, c *http.Client, path string, body any, out any) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(s.web.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *stack) me(t *testing.T, c *http.Client) dto.Me {
	t.Helper()
	resp, err := c.Get(s.web.URL + "/account/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	var m dto.Me
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestLoginLogout(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "lib", core.RoleLibrarian, "lib@gmail.com", false)
	b := s.browser(t)

	require.Equal(t, http.StatusUnauthorized, s.post(t, b, "/account/login", dto.LoginRequest{Username: "lib", Password: "wrong"}, nil))
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/login", dto.LoginRequest{Username: "lib"}, nil))

	var res dto.AuthResult
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/login", dto.LoginRequest{Username: "lib", Password: pwd}, &res))
	require.True(t, res.Success)
	require.Equal(t, core.RoleLibrarian, res.User.Role)

	m := s.me(t, b)
	require.True(t, m.Authenticated)
	require.Equal(t, "lib", m.Username)

	require.Equal(t, http.StatusOK, s.post(t, b, "/account/logout", struct{}{}, nil))
	require.False(t, s.me(t, b).Authenticated)
}

func TestSessionCookieAttributes(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "lib", core.RoleLibrarian, "lib@gmail.com", false)

	body, _ := json.Marshal(dto.LoginRequest{Username: "lib", Password: pwd})
	resp, err := http.Post(s.web.URL+"/account/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var sid *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "sid" && c.Value != "" {
			sid = c
		}
	}
	require.NotNil(t, sid)
	require.True(t, sid.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, sid.SameSite)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestTwoFactorLogin(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "ann", core.RoleStudent, "ann@gmail.com", true)
	b := s.browser(t)

	var res dto.AuthResult
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/login", dto.LoginRequest{Username: "ann", Password: pwd}, &res))
	require.True(t, res.RequiresTwoFactor)
	require.Nil(t, res.User)

	m := s.me(t, b)
	require.False(t, m.Authenticated)
	require.True(t, m.TwoFactorPending)

	code := s.mail.lastCode()
	require.Len(t, code, 6)

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	require.Equal(t, http.StatusUnauthorized, s.post(t, b, "/account/verify-2fa", dto.VerifyTwoFactorRequest{Code: wrong}, nil))
	require.True(t, s.me(t, b).TwoFactorPending, "failed attempt keeps the pending challenge")

	res = dto.AuthResult{}
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/verify-2fa", dto.VerifyTwoFactorRequest{Code: code}, &res))
	require.True(t, res.Success)
	m = s.me(t, b)
	require.True(t, m.Authenticated)
	require.Equal(t, core.RoleStudent, m.Role)

	// sin challenge pendiente
	require.Equal(t, http.StatusUnauthorized, s.post(t, b, "/account/verify-2fa", dto.VerifyTwoFactorRequest{Code: code}, nil))
}

func TestTwoFactorDeliveryFailure(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "ann", core.RoleStudent, "ann@gmail.com", true)
	s.mail.err = errors.New("smtp down")
	b := s.browser(t)

	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusBadGateway, s.post(t, b, "/account/login", dto.LoginRequest{Username: "ann", Password: pwd}, &e))
	require.Equal(t, dto.MsgDeliveryFailed, e.Message)

	m := s.me(t, b)
	require.False(t, m.Authenticated)
	require.False(t, m.TwoFactorPending)
}

func TestGuest(t *testing.T) {
	s := newStack(t, options{})
	b := s.browser(t)

	require.Equal(t, http.StatusOK, s.post(t, b, "/account/guest", struct{}{}, nil))
	m := s.me(t, b)
	require.True(t, m.Authenticated)
	require.Equal(t, core.RoleGuest, m.Role)
	require.Equal(t, "Guest", m.Username)
}

func TestToggleTwoFactor(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "ann", core.RoleStudent, "ann@gmail.com", false)
	s.addUser(t, "lib", core.RoleLibrarian, "lib@gmail.com", false)

	anon := s.browser(t)
	require.Equal(t, http.StatusUnauthorized, s.post(t, anon, "/account/toggle-2fa", dto.ToggleTwoFactorRequest{Enabled: true}, nil))

	lib := s.browser(t)
	require.Equal(t, http.StatusOK, s.post(t, lib, "/account/login", dto.LoginRequest{Username: "lib", Password: pwd}, nil))
	require.Equal(t, http.StatusForbidden, s.post(t, lib, "/account/toggle-2fa", dto.ToggleTwoFactorRequest{Enabled: true}, nil))

	ann := s.browser(t)
	require.Equal(t, http.StatusOK, s.post(t, ann, "/account/login", dto.LoginRequest{Username: "ann", Password: pwd}, nil))
	var res dto.MessageResult
	require.Equal(t, http.StatusOK, s.post(t, ann, "/account/toggle-2fa", dto.ToggleTwoFactorRequest{Enabled: true}, &res))
	require.Equal(t, dto.MsgTwoFactorEnabled, res.Message)

	u, err := s.repo.GetUserByUsername(context.Background(), "ann")
	require.NoError(t, err)
	require.True(t, u.IsTwoFactorEnabled)
}

func TestUpstreamRejectionDropsSession(t *testing.T) {
	s := newStack(t, options{webKey: "another-key-that-api-does-not-know"})
	s.addUser(t, "ann", core.RoleStudent, "ann@gmail.com", false)
	b := s.browser(t)

	require.Equal(t, http.StatusOK, s.post(t, b, "/account/login", dto.LoginRequest{Username: "ann", Password: pwd}, nil))
	require.True(t, s.me(t, b).Authenticated)

	require.Equal(t, http.StatusUnauthorized, s.post(t, b, "/account/toggle-2fa", dto.ToggleTwoFactorRequest{Enabled: true}, nil))
	require.False(t, s.me(t, b).Authenticated)
}

func TestPasswordReset(t *testing.T) {
	s := newStack(t, options{})
	s.addUser(t, "ann", core.RoleStudent, "ann@gmail.com", false)
	b := s.browser(t)

	var ghost, known dto.MessageResult
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/forgot-password", dto.ForgotPasswordRequest{Email: "ghost@gmail.com"}, &ghost))
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/forgot-password", dto.ForgotPasswordRequest{Email: "ann@gmail.com"}, &known))
	require.Equal(t, ghost, known)
	require.Equal(t, dto.MsgForgotSent, known.Message)
	require.Len(t, s.mail.links, 1)

	link, err := url.Parse(s.mail.links[0])
	require.NoError(t, err)
	require.Equal(t, "/account/reset-password", link.Path)
	tok := link.Query().Get("token")
	require.NotEmpty(t, tok)

	resp, err := b.Get(s.web.URL + "/account/reset-password?token=" + url.QueryEscape(tok))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	newPwd := "Brand-New-Secret-7"
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/reset-password", dto.ResetPasswordRequest{Token: tok, Password: newPwd, ConfirmPassword: "x"}, nil))
	require.Equal(t, http.StatusUnprocessableEntity, s.post(t, b, "/account/reset-password", dto.ResetPasswordRequest{Token: tok, Password: "short", ConfirmPassword: "short"}, nil))
	require.Equal(t, http.StatusOK, s.post(t, b, "/account/reset-password", dto.ResetPasswordRequest{Token: tok, Password: newPwd, ConfirmPassword: newPwd}, nil))
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/reset-password", dto.ResetPasswordRequest{Token: tok, Password: newPwd, ConfirmPassword: newPwd}, nil))

	require.Equal(t, http.StatusOK, s.post(t, b, "/account/login", dto.LoginRequest{Username: "ann", Password: newPwd}, nil))
}

func TestRegister(t *testing.T) {
	s := newStack(t, options{})
	b := s.browser(t)
	in := dto.RegisterRequest{
		FirstName: "Ann", LastName: "Lee", Email: "ann@gmail.com", Username: "ann",
		Password: pwd, ConfirmPassword: pwd, Consent: true,
	}

	noConsent := in
	noConsent.Consent = false
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/register", noConsent, nil))

	badDomain := in
	badDomain.Email = "ann@mail.test"
	var e struct {
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/register", badDomain, &e))
	require.True(t, strings.HasSuffix(e.Message, "@gmail.com"))

	require.Equal(t, http.StatusCreated, s.post(t, b, "/account/register", in, nil))
	require.Equal(t, http.StatusBadRequest, s.post(t, b, "/account/register", in, nil))

	require.Equal(t, http.StatusOK, s.post(t, b, "/account/login", dto.LoginRequest{Username: "ann", Password: pwd}, nil))
}

func TestGlobalRateLimit(t *testing.T) {
	s := newStack(t, options{limiter: rate.All{
		rate.NewMemoryLimiter("rl:s:", 100, time.Second),
		rate.NewMemoryLimiter("rl:m:", 3, time.Minute),
	}})
	b := s.browser(t)
	for i := 0; i < 3; i++ {
		s.me(t, b)
	}
	resp, err := b.Get(s.web.URL + "/account/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}
