package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	"github.com/kateeridumb/Library/internal/security/password"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/web/apiclient"
	"github.com/kateeridumb/Library/internal/web/session"
)

type fakeAPI struct {
	login     *dto.LoginResult
	setCalls  []string
	cleared   []string
	verifyOK  bool
	forgot    *dto.ForgotPasswordResult
	forgotErr error
	resetOK   bool
	register  *dto.CommandResult
	toggle    *dto.CommandResult
	toggleErr error
	guest     *dto.GuestLoginResult
	lastReg   dto.RegisterRequest
}

func (f *fakeAPI) Login(context.Context, string, string) (*dto.LoginResult, error) {
	return f.login, nil
}
func (f *fakeAPI) SetTwoFactorCode(_ context.Context, _ string, code string, _ time.Time) (*dto.CommandResult, error) {
	f.setCalls = append(f.setCalls, code)
	return &dto.CommandResult{Success: true}, nil
}
func (f *fakeAPI) VerifyTwoFactorCode(context.Context, string, string) (*dto.CommandResult, error) {
	return &dto.CommandResult{Success: f.verifyOK}, nil
}
func (f *fakeAPI) ClearTwoFactorCode(_ context.Context, tok string) error {
	f.cleared = append(f.cleared, tok)
	return nil
}
func (f *fakeAPI) GuestLogin(context.Context) (*dto.GuestLoginResult, error) { return f.guest, nil }
func (f *fakeAPI) ToggleTwoFactor(context.Context, bool) (*dto.CommandResult, error) {
	return f.toggle, f.toggleErr
}
func (f *fakeAPI) ForgotPassword(context.Context, string) (*dto.ForgotPasswordResult, error) {
	return f.forgot, f.forgotErr
}
func (f *fakeAPI) ValidateResetToken(_ context.Context, tok string) (bool, error) {
	return tok == "good", nil
}
func (f *fakeAPI) ResetPassword(context.Context, string, string) (*dto.CommandResult, error) {
	return &dto.CommandResult{Success: f.resetOK}, nil
}
func (f *fakeAPI) Register(_ context.Context, in dto.RegisterRequest) (*dto.CommandResult, error) {
	f.lastReg = in
	return f.register, nil
}

type fakeMailer struct {
	err   error
	codes []string
	links []string
}

func (m *fakeMailer) SendTwoFactorCode(_ context.Context, _, _, code string, _ time.Duration) error {
	m.codes = append(m.codes, code)
	return m.err
}
func (m *fakeMailer) SendPasswordReset(_ context.Context, _, link string, _ time.Duration) error {
	m.links = append(m.links, link)
	return m.err
}

type fixedCode string

func (c fixedCode) NewCode() (string, error) { return string(c), nil }

var policy = password.Policy{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true}

func newService(api *fakeAPI, mail *fakeMailer) *Service {
	return New(Deps{
		API:           api,
		Mailer:        mail,
		Codes:         fixedCode("135790"),
		Policy:        policy,
		PublicBaseURL: "https://library.test/",
	})
}

func studentLogin(twoFactor bool) *dto.LoginResult {
	return &dto.LoginResult{
		Success: true, RequiresTwoFactor: twoFactor, UserID: 4, TwoFactorToken: "challenge",
		Username: "ann", RoleName: core.RoleStudent, Email: "ann@gmail.com", FirstName: "Ann",
	}
}

func TestLogin_MissingAndInvalid(t *testing.T) {
	api := &fakeAPI{login: &dto.LoginResult{Success: false, Error: dto.MsgInvalidCredentials}}
	s := newService(api, &fakeMailer{})

	_, err := s.Login(context.Background(), " ", "x")
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = s.Login(context.Background(), "ann", "bad")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WithoutTwoFactor(t *testing.T) {
	api := &fakeAPI{login: studentLogin(false)}
	out, err := newService(api, &fakeMailer{}).Login(context.Background(), "ann", "pw")
	require.NoError(t, err)
	require.NotNil(t, out.Identity)
	require.Nil(t, out.Pending)
	require.Equal(t, core.RoleStudent, out.Identity.Role)
	require.Empty(t, api.setCalls)
}

func TestLogin_TwoFactorSendsCode(t *testing.T) {
	api := &fakeAPI{login: studentLogin(true)}
	mail := &fakeMailer{}
	out, err := newService(api, mail).Login(context.Background(), "ann", "pw")
	require.NoError(t, err)
	require.Nil(t, out.Identity)
	require.Equal(t, "challenge", out.Pending.Token)
	require.Equal(t, []string{"135790"}, api.setCalls)
	require.Equal(t, []string{"135790"}, mail.codes)
}

func TestLogin_DeliveryFailureClearsCode(t *testing.T) {
	api := &fakeAPI{login: studentLogin(true)}
	mail := &fakeMailer{err: errors.New("smtp down")}
	out, err := newService(api, mail).Login(context.Background(), "ann", "pw")
	require.ErrorIs(t, err, ErrDeliveryFailed)
	require.Nil(t, out)
	require.Equal(t, []string{"challenge"}, api.cleared)
}

func TestRedeemTwoFactor(t *testing.T) {
	api := &fakeAPI{}
	s := newService(api, &fakeMailer{})
	ctx := context.Background()

	_, err := s.RedeemTwoFactor(ctx, nil, "123456")
	require.ErrorIs(t, err, ErrNoPendingChallenge)

	p := &session.Pending{Token: "challenge", Identity: session.Identity{UserID: 4, Username: "ann", Role: core.RoleStudent}}
	_, err = s.RedeemTwoFactor(ctx, p, "")
	require.ErrorIs(t, err, ErrMissingCode)

	_, err = s.RedeemTwoFactor(ctx, p, "000000")
	require.ErrorIs(t, err, ErrInvalidCode)

	api.verifyOK = true
	id, err := s.RedeemTwoFactor(ctx, p, "135790")
	require.NoError(t, err)
	require.Equal(t, int64(4), id.UserID)
}

func TestGuest_AlwaysGuestRole(t *testing.T) {
	api := &fakeAPI{guest: &dto.GuestLoginResult{Success: true, UserID: 12}}
	id, err := newService(api, &fakeMailer{}).Guest(context.Background())
	require.NoError(t, err)
	require.Equal(t, core.RoleGuest, id.Role)
	require.Equal(t, "Guest", id.Username)

	api.guest = &dto.GuestLoginResult{Success: false}
	_, err = newService(api, &fakeMailer{}).Guest(context.Background())
	require.ErrorIs(t, err, ErrGuestUnavailable)
}

func TestForgotPassword_UniformOutcome(t *testing.T) {
	ctx := context.Background()

	api := &fakeAPI{forgot: &dto.ForgotPasswordResult{UserExists: false}}
	mail := &fakeMailer{}
	require.NoError(t, newService(api, mail).ForgotPassword(ctx, "ghost@gmail.com"))
	require.Empty(t, mail.links)

	api.forgot = &dto.ForgotPasswordResult{UserExists: true, Token: "tok-123"}
	require.NoError(t, newService(api, mail).ForgotPassword(ctx, "ann@gmail.com"))
	require.Equal(t, []string{"https://library.test/account/reset-password?token=tok-123"}, mail.links)

	mail.err = errors.New("smtp down")
	require.NoError(t, newService(api, mail).ForgotPassword(ctx, "ann@gmail.com"))

	api.forgotErr = apiclient.ErrUpstream
	require.NoError(t, newService(api, mail).ForgotPassword(ctx, "ann@gmail.com"))

	require.ErrorIs(t, newService(api, mail).ForgotPassword(ctx, ""), ErrMissingFields)
}

func TestResetPassword_Validation(t *testing.T) {
	api := &fakeAPI{resetOK: true}
	s := newService(api, &fakeMailer{})
	ctx := context.Background()

	require.ErrorIs(t, s.ResetPassword(ctx, "", "a", "a"), ErrResetInvalid)
	require.ErrorIs(t, s.ResetPassword(ctx, "tok", "", ""), ErrMissingFields)
	require.ErrorIs(t, s.ResetPassword(ctx, "tok", "Correct-Horse-42", "Correct-Horse-43"), ErrPasswordMismatch)

	var pe *PolicyError
	require.ErrorAs(t, s.ResetPassword(ctx, "tok", "short", "short"), &pe)
	require.NotEmpty(t, pe.Reasons)

	require.NoError(t, s.ResetPassword(ctx, "tok", "Correct-Horse-42", "Correct-Horse-42"))

	api.resetOK = false
	require.ErrorIs(t, s.ResetPassword(ctx, "tok", "Correct-Horse-42", "Correct-Horse-42"), ErrResetInvalid)

	require.NoError(t, s.ValidateResetToken(ctx, "good"))
	require.ErrorIs(t, s.ValidateResetToken(ctx, "bad"), ErrResetInvalid)
}

func TestRegister_Validation(t *testing.T) {
	api := &fakeAPI{register: &dto.CommandResult{Success: true}}
	s := newService(api, &fakeMailer{})
	ctx := context.Background()

	ok := RegisterInput{
		FirstName: "Анна", LastName: "Smith-Lee", Email: "ann@gmail.com", Username: "ann",
		Password: "Correct-Horse-42", ConfirmPassword: "Correct-Horse-42", Consent: true,
	}

	in := ok
	in.Consent = false
	require.ErrorIs(t, s.Register(ctx, in), ErrConsentRequired)

	in = ok
	in.FirstName = "Ann3"
	require.ErrorIs(t, s.Register(ctx, in), ErrInvalidName)

	in = ok
	in.Email = "ann@mail.test"
	require.ErrorIs(t, s.Register(ctx, in), ErrInvalidEmail)

	in = ok
	in.ConfirmPassword = "other"
	require.ErrorIs(t, s.Register(ctx, in), ErrPasswordMismatch)

	in = ok
	in.Password, in.ConfirmPassword = "weakpassword", "weakpassword"
	var pe *PolicyError
	require.ErrorAs(t, s.Register(ctx, in), &pe)

	require.NoError(t, s.Register(ctx, ok))
	require.Equal(t, "ann", api.lastReg.Username)
	require.Nil(t, api.lastReg.RoleID)

	api.register = &dto.CommandResult{Success: false, Message: dto.MsgUsernameTaken}
	var re *RejectedError
	require.ErrorAs(t, s.Register(ctx, ok), &re)
	require.Equal(t, dto.MsgUsernameTaken, re.Message)
}

func TestToggleTwoFactor(t *testing.T) {
	api := &fakeAPI{toggle: &dto.CommandResult{Success: true}}
	s := newService(api, &fakeMailer{})
	ctx := context.Background()

	require.ErrorIs(t, s.ToggleTwoFactor(ctx, nil, true), apiclient.ErrUnauthorized)
	require.ErrorIs(t, s.ToggleTwoFactor(ctx, &session.Identity{UserID: 1, Role: core.RoleLibrarian}, true), ErrNotStudent)

	student := &session.Identity{UserID: 1, Role: core.RoleStudent}
	require.NoError(t, s.ToggleTwoFactor(ctx, student, true))

	api.toggle = &dto.CommandResult{Success: false, Message: dto.MsgGmailRequired}
	var re *RejectedError
	require.ErrorAs(t, s.ToggleTwoFactor(ctx, student, true), &re)
	require.Equal(t, dto.MsgGmailRequired, re.Message)

	api.toggle, api.toggleErr = nil, apiclient.ErrUnauthorized
	require.ErrorIs(t, s.ToggleTwoFactor(ctx, student, false), apiclient.ErrUnauthorized)
}
