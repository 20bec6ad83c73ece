package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/otp"
	"github.com/Chu-rill/Huddle/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	nextID int64
	users  map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) SaveUser(_ context.Context, email, username string, passHash []byte) (models.User, error) {
	if _, ok := s.users[email]; ok {
		return models.User{}, storage.ErrUserExists
	}

	s.nextID++
	user := models.User{
		ID:        s.nextID,
		Email:     email,
		Username:  username,
		PassHash:  passHash,
		CreatedAt: time.Now(),
	}
	s.users[email] = user
	return user, nil
}

func (s *fakeUserStore) SetEmailVerified(_ context.Context, email string) error {
	user, ok := s.users[email]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.IsVerified = true
	s.users[email] = user
	return nil
}

func (s *fakeUserStore) User(_ context.Context, email string) (models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

type fakeIssuer struct {
	codes        map[string]string
	next         int
	failGenerate bool
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{codes: make(map[string]string)}
}

func (i *fakeIssuer) Generate(_ context.Context, email string) (string, error) {
	if i.failGenerate {
		return "", errors.New("otp backend down")
	}

	i.next++
	code := fmt.Sprintf("%06d", i.next)
	i.codes[email] = code
	return code, nil
}

func (i *fakeIssuer) Verify(_ context.Context, email, code string) error {
	stored, ok := i.codes[email]
	if !ok {
		return otp.ErrNotFound
	}
	if stored != code {
		return otp.ErrMismatch
	}
	delete(i.codes, email)
	return nil
}

type fakeMinter struct {
	next  int
	calls []string
}

func (m *fakeMinter) MintAccessToken(_ context.Context, userID int64) (string, error) {
	m.calls = append(m.calls, "access")
	return fmt.Sprintf("access-%d", userID), nil
}

func (m *fakeMinter) MintRefreshSession(_ context.Context, userID int64) (string, error) {
	m.next++
	m.calls = append(m.calls, "refresh")
	return fmt.Sprintf("refresh-%d-%d", userID, m.next), nil
}

func (m *fakeMinter) PruneStaleSessions(_ context.Context, _ int64) error {
	m.calls = append(m.calls, "prune")
	return nil
}

type fakePublisher struct {
	messages []models.Message
	fail     bool
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	auth      *Auth
	users     *fakeUserStore
	issuer    *fakeIssuer
	minter    *fakeMinter
	publisher *fakePublisher
}

func newFixture() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := newFakeUserStore()
	issuer := newFakeIssuer()
	minter := &fakeMinter{}
	publisher := &fakePublisher{}

	return &fixture{
		auth:      New(log, users, users, issuer, minter, publisher),
		users:     users,
		issuer:    issuer,
		minter:    minter,
		publisher: publisher,
	}
}

func TestRegister_CreatesUnverifiedAccountAndQueuesOTP(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.PassHash)
	assert.False(t, user.CreatedAt.IsZero())

	require.Len(t, f.publisher.messages, 1)
	msg := f.publisher.messages[0]
	assert.Equal(t, "a@x.com", msg.Email)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, f.issuer.codes["a@x.com"], msg.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "bob", "a@x.com", "Hunter22")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_OTPSendFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.publisher.fail = true
	ctx := context.Background()

	// A dead broker must not fail registration.
	user, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	_, err = f.users.User(ctx, "a@x.com")
	assert.NoError(t, err)
}

func TestRegister_OTPGenerateFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.issuer.failGenerate = true
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.Empty(t, f.publisher.messages)
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, _, err := f.auth.Login(context.Background(), "ghost@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "a@x.com", "WrongPass1")
	// Indistinguishable from an unknown email.
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "a@x.com", "Passw0rd")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestRegisterValidateLogin_Flow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	code := f.issuer.codes["a@x.com"]
	require.NotEmpty(t, code)

	user, pair, err := f.auth.ValidateOTP(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	user, pair, err = f.auth.Login(ctx, "a@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// Stale sessions are pruned before each mint.
	assert.Equal(t, []string{"prune", "access", "refresh", "prune", "access", "refresh"}, f.minter.calls)
}

func TestValidateOTP_UnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, _, err := f.auth.ValidateOTP(context.Background(), "ghost@x.com", "123456")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestValidateOTP_PropagatesIssuerFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	_, _, err = f.auth.ValidateOTP(ctx, "a@x.com", "999999")
	assert.ErrorIs(t, err, otp.ErrMismatch)

	// The failed attempt must not flip the account.
	user, err := f.users.User(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
}

func TestResendOTP_UnknownEmailIsNotAnError(t *testing.T) {
	t.Parallel()

	f := newFixture()

	found, err := f.auth.ResendOTP(context.Background(), "ghost@x.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResendOTP_ReissuesCode(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	first := f.issuer.codes["a@x.com"]

	found, err := f.auth.ResendOTP(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, found)

	second := f.issuer.codes["a@x.com"]
	assert.NotEqual(t, first, second)
	require.Len(t, f.publisher.messages, 2)
	assert.Equal(t, second, f.publisher.messages[1].Code)
}

func TestProvisionOAuth_CreatesVerifiedAccount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	user, pair, err := f.auth.ProvisionOAuth(ctx, OAuthIdentity{
		Email:     "jane@x.com",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)

	assert.Equal(t, "JaneDoe", user.Username)
	assert.True(t, user.IsVerified)
	assert.Nil(t, user.PassHash)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// No OTP round-trip for trusted providers.
	assert.Empty(t, f.publisher.messages)
}

func TestProvisionOAuth_ExistingAccount(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "a@x.com", "Passw0rd")
	require.NoError(t, err)

	user, pair, err := f.auth.ProvisionOAuth(ctx, OAuthIdentity{
		Email:     "a@x.com",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)

	// The existing account is reused, not recreated.
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(1), f.users.nextID)
}
