package account

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kateeridumb/Library/internal/audit"
	dto "github.com/kateeridumb/Library/internal/http/dto/account"
	jwtx "github.com/kateeridumb/Library/internal/jwt"
	"github.com/kateeridumb/Library/internal/observability/logger"
	"github.com/kateeridumb/Library/internal/rate"
	"github.com/kateeridumb/Library/internal/security/password"
	tokens "github.com/kateeridumb/Library/internal/security/token"
	"github.com/kateeridumb/Library/internal/store/core"
	"github.com/kateeridumb/Library/internal/store/memory"
)

const strongPassword = "Correct-Horse-42"

type fixture struct {
	deps   Deps
	repo   *memory.Store
	signer *jwtx.Signer
	svc    Services
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	signer, err := jwtx.NewSigner(jwtx.Config{
		Key:      "unit-test-key-0123456789abcdef0123",
		Issuer:   "LibraryMPT",
		Audience: "LibraryMPT.Api",
		Leeway:   time.Minute,
	})
	require.NoError(t, err)

	repo := memory.New()
	d := Deps{
		Repo:   repo,
		Hasher: password.NewHasher(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, true),
		Signer: signer,
		Policy: password.Policy{MinLength: 12, RequireUpper: true, RequireLower: true, RequireDigit: true},
	}
	for _, m := range mutate {
		m(&d)
	}
	return &fixture{deps: d, repo: repo, signer: signer, svc: NewServices(d)}
}

func (f *fixture) addUser(t *testing.T, username, pwd, role, email string, twoFactor bool) *core.User {
	t.Helper()
	ctx := context.Background()
	r, err := f.repo.GetRoleByName(ctx, role)
	require.NoError(t, err)
	hash, salt, err := f.deps.Hasher.CreateCredential(pwd)
	require.NoError(t, err)
	u := &core.User{
		Username: username, Email: email, FirstName: "Ann", LastName: "Lee",
		RoleID: r.ID, PasswordHash: hash, PasswordSalt: salt,
	}
	require.NoError(t, f.repo.CreateUser(ctx, u))
	if twoFactor {
		require.NoError(t, f.repo.SetTwoFactorEnabled(ctx, u.ID, true))
	}
	return u
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "reader", strongPassword, core.RoleLibrarian, "reader@mail.test", false)

	res, err := f.svc.Login.Login(context.Background(), dto.LoginRequest{Username: "reader", Password: strongPassword})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.False(t, res.RequiresTwoFactor)
	require.Empty(t, res.TwoFactorToken)
	require.Equal(t, u.ID, res.UserID)
	require.Equal(t, core.RoleLibrarian, res.RoleName)
	require.Equal(t, "reader@mail.test", res.Email)
}

func TestLogin_GenericFailures(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "reader", strongPassword, core.RoleStudent, "reader@mail.test", false)
	ctx := context.Background()

	cases := []dto.LoginRequest{
		{Username: "reader", Password: "wrong-password-1A"},
		{Username: "nobody", Password: strongPassword},
		{Username: "Reader", Password: strongPassword}, // case-sensitive
		{Username: "", Password: strongPassword},
		{Username: "reader", Password: ""},
	}
	for _, in := range cases {
		_, err := f.svc.Login.Login(ctx, in)
		require.ErrorIs(t, err, ErrInvalidCredentials, "username=%q", in.Username)
	}

	// bloqueado con password correcta: mismo error
	r, err := f.repo.GetRoleByName(ctx, core.RoleStudent)
	require.NoError(t, err)
	blocked := &core.User{
		Username: "blocked", Email: "b@mail.test", FirstName: "B", LastName: "B",
		RoleID: r.ID, PasswordHash: u.PasswordHash, PasswordSalt: u.PasswordSalt, IsBlocked: true,
	}
	require.NoError(t, f.repo.CreateUser(ctx, blocked))
	_, err = f.svc.Login.Login(ctx, dto.LoginRequest{Username: "blocked", Password: strongPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_StudentWithTwoFactorGetsChallenge(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)

	res, err := f.svc.Login.Login(context.Background(), dto.LoginRequest{Username: "student", Password: strongPassword})
	require.NoError(t, err)
	require.True(t, res.RequiresTwoFactor)
	require.NotEmpty(t, res.TwoFactorToken)

	cl, err := f.signer.Validate(res.TwoFactorToken, jwtx.PurposeTwoFactor)
	require.NoError(t, err)
	require.Equal(t, u.ID, cl.UserID)
	require.Equal(t, "student", cl.Username)
	require.Equal(t, []string{core.RoleStudent}, cl.Roles)

	// nunca vale como bridge token
	_, err = f.signer.Validate(res.TwoFactorToken, jwtx.PurposeBridge)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestLogin_TwoFactorFlagIgnoredForNonStudents(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin", strongPassword, core.RoleAdmin, "admin@gmail.com", true)

	res, err := f.svc.Login.Login(context.Background(), dto.LoginRequest{Username: "admin", Password: strongPassword})
	require.NoError(t, err)
	require.False(t, res.RequiresTwoFactor)
	require.Empty(t, res.TwoFactorToken)
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "legacy", strongPassword, core.RoleStudent, "legacy@mail.test", false)

	salt, err := password.GenerateSalt()
	require.NoError(t, err)
	sum := sha512.Sum512([]byte(strongPassword + salt))
	require.NoError(t, f.repo.UpdatePassword(ctx, u.ID, base64.StdEncoding.EncodeToString(sum[:]), salt))

	_, err = f.svc.Login.Login(ctx, dto.LoginRequest{Username: "legacy", Password: strongPassword})
	require.NoError(t, err)

	got, err := f.repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got.PasswordHash, "$argon2id$"))
	require.True(t, f.deps.Hasher.Verify(strongPassword, got.PasswordHash, got.PasswordSalt))
}

func challengeFor(t *testing.T, f *fixture, u *core.User) string {
	t.Helper()
	tok, err := f.signer.IssueTwoFactor(u.ID, u.Username, core.RoleStudent)
	require.NoError(t, err)
	return tok
}

func TestSetCode_ClampsExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)
	tok := challengeFor(t, f, u)

	before := time.Now().UTC()
	require.NoError(t, f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{
		TwoFactorToken: tok, Code: "123456", ExpiryUTC: before.Add(2 * time.Hour),
	}))
	got, err := f.repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TwoFactorCodeExpiry)
	require.False(t, got.TwoFactorCodeExpiry.After(time.Now().UTC().Add(10*time.Minute)))

	// expiry cero = máximo
	require.NoError(t, f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: tok, Code: "654321"}))
	got, err = f.repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "654321", *got.TwoFactorCode)
	require.True(t, got.TwoFactorCodeExpiry.After(before.Add(9*time.Minute)))
}

func TestSetCode_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)

	bridge, err := f.signer.IssueBridge(jwtx.Identity{UserID: u.ID, Username: u.Username, Role: core.RoleStudent})
	require.NoError(t, err)
	err = f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: bridge, Code: "123456"})
	require.ErrorIs(t, err, ErrInvalidTwoFactor)

	err = f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: challengeFor(t, f, u), Code: "012345"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerify_ConsumesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)
	tok := challengeFor(t, f, u)
	require.NoError(t, f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"}))

	err := f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "111111"})
	require.ErrorIs(t, err, ErrTwoFactorFailed)

	require.NoError(t, f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"}))

	// replay con el mismo token y código
	err = f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"})
	require.ErrorIs(t, err, ErrTwoFactorFailed)
}

func TestVerify_InvalidToken(t *testing.T) {
	f := newFixture(t)
	err := f.svc.TwoFactor.Verify(context.Background(), dto.TwoFactorCodeRequest{TwoFactorToken: "garbage", Code: "123456"})
	require.ErrorIs(t, err, ErrInvalidTwoFactor)
}

func TestVerify_AttemptLimit(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Attempts = rate.NewMemoryLimiter("2fa:", 2, time.Minute)
	})
	ctx := context.Background()
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)
	tok := challengeFor(t, f, u)
	require.NoError(t, f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"}))

	for i := 0; i < 2; i++ {
		err := f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "999999"})
		require.ErrorIs(t, err, ErrTwoFactorFailed)
	}
	// el código correcto ya no alcanza
	err := f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"})
	require.ErrorIs(t, err, ErrTwoFactorLimited)
}

func TestClear_InvalidatesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "student", strongPassword, core.RoleStudent, "student@gmail.com", true)
	tok := challengeFor(t, f, u)
	require.NoError(t, f.svc.TwoFactor.SetCode(ctx, dto.SetTwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"}))

	require.NoError(t, f.svc.TwoFactor.Clear(ctx, tok))
	require.NoError(t, f.svc.TwoFactor.Clear(ctx, tok))
	err := f.svc.TwoFactor.Verify(ctx, dto.TwoFactorCodeRequest{TwoFactorToken: tok, Code: "482913"})
	require.ErrorIs(t, err, ErrTwoFactorFailed)

	require.ErrorIs(t, f.svc.TwoFactor.Clear(ctx, ""), ErrInvalidTwoFactor)
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gmail := f.addUser(t, "g", strongPassword, core.RoleStudent, "g@gmail.com", false)
	other := f.addUser(t, "o", strongPassword, core.RoleStudent, "o@yandex.ru", false)
	staff := f.addUser(t, "s", strongPassword, core.RoleLibrarian, "s@gmail.com", false)

	actor := func(u *core.User, role string) *jwtx.Claims {
		return &jwtx.Claims{UserID: u.ID, Username: u.Username, Roles: []string{role}}
	}

	err := f.svc.TwoFactor.Toggle(ctx, actor(other, core.RoleStudent), true)
	require.ErrorIs(t, err, ErrEmailDomainRequired)
	got, _ := f.repo.GetUserByID(ctx, other.ID)
	require.False(t, got.IsTwoFactorEnabled)

	require.NoError(t, f.svc.TwoFactor.Toggle(ctx, actor(gmail, core.RoleStudent), true))
	got, _ = f.repo.GetUserByID(ctx, gmail.ID)
	require.True(t, got.IsTwoFactorEnabled)

	require.NoError(t, f.repo.SetTwoFactorCode(ctx, gmail.ID, "123456", time.Now().Add(time.Minute)))
	require.NoError(t, f.svc.TwoFactor.Toggle(ctx, actor(gmail, core.RoleStudent), false))
	got, _ = f.repo.GetUserByID(ctx, gmail.ID)
	require.False(t, got.IsTwoFactorEnabled)
	require.Nil(t, got.TwoFactorCode)
	require.Nil(t, got.TwoFactorCodeExpiry)

	require.ErrorIs(t, f.svc.TwoFactor.Toggle(ctx, actor(staff, core.RoleLibrarian), true), ErrNotStudent)
	// rol del token falsamente Student: manda el persistido
	require.ErrorIs(t, f.svc.TwoFactor.Toggle(ctx, actor(staff, core.RoleStudent), true), ErrNotStudent)
	require.ErrorIs(t, f.svc.TwoFactor.Toggle(ctx, nil, true), ErrInvalidCredentials)
}

func TestGuestLogin_ConvergesUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 16
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Guest.GuestLogin(ctx)
			errs[i] = err
			if err == nil {
				ids[i] = res.UserID
			}
		}(i)
	}
	wg.Wait()
	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}

	again, err := f.svc.Guest.GuestLogin(ctx)
	require.NoError(t, err)
	require.Equal(t, ids[0], again.UserID)

	g, err := f.repo.GetUserByUsername(ctx, "guest")
	require.NoError(t, err)
	require.Equal(t, core.RoleStudent, g.RoleName)
	require.Equal(t, "guest@local", g.Email)
}

func TestGuestLogin_ConflictFallsBackToLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// otra instancia ya creó la fila
	r, err := f.repo.GetRoleByName(ctx, core.RoleGuest)
	require.NoError(t, err)
	existing := &core.User{Username: "guest", Email: "guest@local", RoleID: r.ID, PasswordHash: "x", PasswordSalt: "y", IsGuest: true}
	require.NoError(t, f.repo.CreateUser(ctx, existing))

	res, err := f.svc.Guest.GuestLogin(ctx)
	require.NoError(t, err)
	require.Equal(t, existing.ID, res.UserID)
}

func TestGuestLogin_RefusesRegularAccountWithGuestName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "guest", strongPassword, core.RoleStudent, "guest@gmail.com", false)

	_, err := f.svc.Guest.GuestLogin(ctx)
	require.ErrorIs(t, err, ErrGuestUnavailable)
}

func TestRegister_RefusesGuestUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"guest", "Guest", " GUEST "} {
		err := f.svc.Register.Register(ctx, dto.RegisterRequest{
			Username: name, Email: "g@gmail.com", FirstName: "Ann", LastName: "Lee", Password: strongPassword,
		})
		require.ErrorIs(t, err, ErrUsernameTaken, name)
	}

	res, err := f.svc.Guest.GuestLogin(ctx)
	require.NoError(t, err)

	_, err = f.svc.Login.Login(ctx, dto.LoginRequest{Username: "guest", Password: strongPassword})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	g, err := f.repo.GetUserByID(ctx, res.UserID)
	require.NoError(t, err)
	require.True(t, g.IsGuest)
}

// slowLookup bloquea la primera lectura del invitado hasta release y respeta
// la cancelación del ctx que recibe.
type slowLookup struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowLookup) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.GetUserByUsername(ctx, username)
}

func TestGuestLogin_CancelledCallerDoesNotFailOthers(t *testing.T) {
	repo := &slowLookup{Store: memory.New(), entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, func(d *Deps) { d.Repo = repo })

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.Guest.GuestLogin(first)
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		res *dto.GuestLoginResult
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := f.svc.Guest.GuestLogin(context.Background())
		second <- result{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)
	close(repo.release)

	got := <-second
	require.NoError(t, got.err)
	require.True(t, got.res.Success)
	require.NotZero(t, got.res.UserID)
}

func TestGuestLogin_FallsBackToFirstRole(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Repo = memory.New(core.RoleAdmin, core.RoleGuest) })
	res, err := f.svc.Guest.GuestLogin(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "reader", strongPassword, core.RoleStudent, "reader@mail.test", false)

	miss, err := f.svc.Reset.Forgot(ctx, "nobody@mail.test")
	require.NoError(t, err)
	require.False(t, miss.UserExists)
	require.Nil(t, miss.UserID)
	require.Empty(t, miss.Token)

	res, err := f.svc.Reset.Forgot(ctx, "reader@mail.test")
	require.NoError(t, err)
	require.True(t, res.UserExists)
	require.Equal(t, u.ID, *res.UserID)
	require.Len(t, res.Token, 43) // 32 bytes base64url sin padding
	require.NotContains(t, res.Token, "=")

	// sólo se persiste el hash
	got, _ := f.repo.GetUserByID(ctx, u.ID)
	require.Equal(t, tokens.SHA256Base64URL(res.Token), *got.PasswordResetToken)

	ok, err := f.svc.Reset.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, f.svc.Reset.Reset(ctx, dto.ResetPasswordRequest{Token: res.Token, Password: "short"}), ErrPasswordPolicy)

	const newPwd = "Brand-New-Secret-7"
	require.NoError(t, f.svc.Reset.Reset(ctx, dto.ResetPasswordRequest{Token: res.Token, Password: newPwd}))

	got, _ = f.repo.GetUserByID(ctx, u.ID)
	require.True(t, f.deps.Hasher.Verify(newPwd, got.PasswordHash, got.PasswordSalt))
	require.Nil(t, got.PasswordResetToken)

	// un solo uso
	require.ErrorIs(t, f.svc.Reset.Reset(ctx, dto.ResetPasswordRequest{Token: res.Token, Password: newPwd}), ErrResetInvalid)
	ok, err = f.svc.Reset.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPasswordReset_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "reader", strongPassword, core.RoleStudent, "reader@mail.test", false)

	first, err := f.svc.Reset.Forgot(ctx, "reader@mail.test")
	require.NoError(t, err)
	second, err := f.svc.Reset.Forgot(ctx, "reader@mail.test")
	require.NoError(t, err)

	ok, _ := f.svc.Reset.ValidateToken(ctx, first.Token)
	require.False(t, ok)
	ok, _ = f.svc.Reset.ValidateToken(ctx, second.Token)
	require.True(t, ok)
}

func TestPasswordReset_Expired(t *testing.T) {
	now := time.Now()
	f := newFixture(t, func(d *Deps) { d.Now = func() time.Time { return now } })
	ctx := context.Background()
	f.addUser(t, "reader", strongPassword, core.RoleStudent, "reader@mail.test", false)

	res, err := f.svc.Reset.Forgot(ctx, "reader@mail.test")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	ok, err := f.svc.Reset.ValidateToken(ctx, res.Token)
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, f.svc.Reset.Reset(ctx, dto.ResetPasswordRequest{Token: res.Token, Password: "Brand-New-Secret-7"}), ErrResetInvalid)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := dto.RegisterRequest{
		FirstName: "Анна", LastName: "Smith-Jones", Email: "anna@gmail.com",
		Username: "anna", Password: strongPassword,
	}
	require.NoError(t, f.svc.Register.Register(ctx, in))

	u, err := f.repo.GetUserByUsername(ctx, "anna")
	require.NoError(t, err)
	require.Equal(t, core.RoleStudent, u.RoleName)
	require.True(t, f.deps.Hasher.Verify(strongPassword, u.PasswordHash, u.PasswordSalt))

	require.ErrorIs(t, f.svc.Register.Register(ctx, in), ErrUsernameTaken)

	weak := in
	weak.Username = "anna2"
	weak.Password = "password"
	require.ErrorIs(t, f.svc.Register.Register(ctx, weak), ErrPasswordPolicy)

	bad := in
	bad.Username = "anna3"
	bad.FirstName = "Ann1"
	require.ErrorIs(t, f.svc.Register.Register(ctx, bad), ErrInvalidInput)

	require.ErrorIs(t, f.svc.Register.Register(ctx, dto.RegisterRequest{Username: "x"}), ErrMissingFields)
}

func TestRegister_DefaultRoleMissing(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Repo = memory.New(core.RoleAdmin) })
	err := f.svc.Register.Register(context.Background(), dto.RegisterRequest{
		FirstName: "Ann", LastName: "Lee", Email: "ann@gmail.com", Username: "ann", Password: strongPassword,
	})
	require.ErrorIs(t, err, ErrDefaultRoleMissing)
}

func TestListRoles(t *testing.T) {
	f := newFixture(t)
	roles, err := f.svc.Register.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, len(memory.DefaultRoles))
	require.Equal(t, core.RoleStudent, roles[0].Name)
}

func TestLogin_EmitsAuditEvents(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "reader", strongPassword, core.RoleLibrarian, "reader@mail.test", false)

	obs, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(obs))

	_, err := f.svc.Login.Login(ctx, dto.LoginRequest{Username: "reader", Password: "Wrong-Horse-42"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login.Login(ctx, dto.LoginRequest{Username: "reader", Password: strongPassword})
	require.NoError(t, err)

	events := logs.FilterLoggerName("audit").All()
	require.Len(t, events, 2)
	require.Equal(t, audit.LoginFailed, events[0].Message)
	require.Equal(t, "bad_password", events[0].ContextMap()["reason"])
	require.Equal(t, audit.LoginSucceeded, events[1].Message)
	for _, e := range events {
		for k := range e.ContextMap() {
			require.NotContains(t, strings.ToLower(k), "password")
		}
	}
}

func TestPasswordReset_LogsMaskedToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "reader", strongPassword, core.RoleStudent, "reader@mail.test", false)

	obs, logs := observer.New(zap.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(obs))

	res, err := f.svc.Reset.Forgot(ctx, "reader@mail.test")
	require.NoError(t, err)

	issued := logs.FilterMessage("reset token issued").All()
	require.Len(t, issued, 1)
	logged, _ := issued[0].ContextMap()["token"].(string)
	require.True(t, strings.HasPrefix(res.Token, strings.TrimSuffix(logged, "…")))
	require.NotEqual(t, res.Token, logged)

	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			require.NotEqual(t, res.Token, v)
		}
	}
}
