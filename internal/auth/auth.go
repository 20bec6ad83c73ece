package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/lib/password"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailNotVerified   = errors.New("email not verified")
)

const otpMailSubject = "Huddle Validation"

type UserSaver interface {
	SaveUser(ctx context.Context, email string, username string, passHash []byte) (models.User, error)
	SetEmailVerified(ctx context.Context, email string) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
}

type OTPIssuer interface {
	Generate(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

type TokenMinter interface {
	MintAccessToken(ctx context.Context, userID int64) (string, error)
	MintRefreshSession(ctx context.Context, userID int64) (string, error)
	PruneStaleSessions(ctx context.Context, userID int64) error
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// OAuthIdentity is an identity already verified by an external provider.
type OAuthIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	otpIssuer   OTPIssuer
	minter      TokenMinter
	publisher   Publisher
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	otpIssuer OTPIssuer,
	minter TokenMinter,
	publisher Publisher,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		otpIssuer:   otpIssuer,
		minter:      minter,
		publisher:   publisher,
	}
}

// Register creates an unverified account and best-effort queues the OTP
// mail. A failed OTP generation or send never fails the registration: the
// user can ask for a resend later.
func (a *Auth) Register(
	ctx context.Context,
	username, email, pass string,
) (models.User, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	log.Info("Registering new user")

	_, err := a.usrProvider.User(ctx, email)
	if err == nil {
		log.Warn("User already exists")
		return models.User{}, ErrUserExists
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("Failed to check existing user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := password.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.usrSaver.SaveUser(ctx, email, username, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")
			return models.User{}, ErrUserExists
		}

		log.Error("Failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	a.sendOTP(ctx, log, user)

	log.Info("User registered", slog.Int64("uid", user.ID))

	return user, nil
}

// sendOTP generates a fresh code and queues the mail. Best effort only.
func (a *Auth) sendOTP(ctx context.Context, log *slog.Logger, user models.User) {
	code, err := a.otpIssuer.Generate(ctx, user.Email)
	if err != nil {
		log.Error("Failed to generate OTP", sl.Err(err))
		return
	}

	msg := models.Message{
		Email:    user.Email,
		Subject:  otpMailSubject,
		Username: user.Username,
		Code:     code,
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("Failed to queue OTP mail", sl.Err(err))
	}
}

// * Login проверяет учетные данные и возвращает пару токенов
func (a *Auth) Login(
	ctx context.Context,
	email, pass string,
) (models.User, TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			// Same error as a wrong password: never leak which one it was.
			return models.User{}, TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !password.Verify(pass, user.PassHash) {
		log.Info("invalid credentials", slog.Int64("uid", user.ID))
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		log.Warn("email not verified", slog.Int64("uid", user.ID))
		return models.User{}, TokenPair{}, ErrEmailNotVerified
	}

	pair, err := a.mintTokenPair(ctx, log, user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return user, pair, nil
}

// ValidateOTP consumes the code and flips the account to verified. The
// verified transition happens exactly once: a consumed code cannot verify
// again.
func (a *Auth) ValidateOTP(
	ctx context.Context,
	email, code string,
) (models.User, TokenPair, error) {
	const op = "auth.ValidateOTP"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, TokenPair{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.otpIssuer.Verify(ctx, email, code); err != nil {
		return models.User{}, TokenPair{}, err
	}

	if err := a.usrSaver.SetEmailVerified(ctx, email); err != nil {
		log.Error("failed to mark user verified", sl.Err(err))
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	user.IsVerified = true

	pair, err := a.mintTokenPair(ctx, log, user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified successfully", slog.Int64("uid", user.ID))

	return user, pair, nil
}

// ResendOTP re-issues and re-queues the code. An unknown email is reported
// as found=false, not as an error: resend is best effort.
func (a *Auth) ResendOTP(ctx context.Context, email string) (found bool, err error) {
	const op = "auth.ResendOTP"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return false, nil
		}

		log.Error("failed to get user", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	code, err := a.otpIssuer.Generate(ctx, user.Email)
	if err != nil {
		log.Error("failed to generate OTP", sl.Err(err))
		return true, fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		Email:    user.Email,
		Subject:  otpMailSubject,
		Username: user.Username,
		Code:     code,
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to queue OTP mail", sl.Err(err))
		return true, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("OTP resent", slog.Int64("uid", user.ID))

	return true, nil
}

// ProvisionOAuth provisions an account for an externally verified identity.
// The provider already proved email ownership, so the account is verified
// immediately and no OTP round-trip happens.
func (a *Auth) ProvisionOAuth(
	ctx context.Context,
	identity OAuthIdentity,
) (models.User, TokenPair, error) {
	const op = "auth.ProvisionOAuth"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, identity.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			log.Error("failed to get user", sl.Err(err))
			return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}

		username := identity.FirstName + identity.LastName

		user, err = a.usrSaver.SaveUser(ctx, identity.Email, username, nil)
		if err != nil {
			log.Error("failed to save user", sl.Err(err))
			return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}

		if err := a.usrSaver.SetEmailVerified(ctx, user.Email); err != nil {
			log.Error("failed to mark user verified", sl.Err(err))
			return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}

		user.IsVerified = true

		log.Info("oauth user provisioned", slog.Int64("uid", user.ID))
	}

	pair, err := a.mintTokenPair(ctx, log, user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("oauth login successful", slog.Int64("uid", user.ID))

	return user, pair, nil
}

func (a *Auth) mintTokenPair(ctx context.Context, log *slog.Logger, userID int64) (TokenPair, error) {
	if err := a.minter.PruneStaleSessions(ctx, userID); err != nil {
		log.Error("failed to prune stale sessions", sl.Err(err))
		return TokenPair{}, err
	}

	accessToken, err := a.minter.MintAccessToken(ctx, userID)
	if err != nil {
		log.Error("failed to mint access token", sl.Err(err))
		return TokenPair{}, err
	}

	refreshToken, err := a.minter.MintRefreshSession(ctx, userID)
	if err != nil {
		log.Error("failed to mint refresh session", sl.Err(err))
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
