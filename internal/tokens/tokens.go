package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Chu-rill/Huddle/internal/lib/jwt"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/lib/random"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// 64 random bytes, hex-encoded on the wire.
const refreshTokenBytes = 64

type UserProvider interface {
	UserByID(ctx context.Context, id int64) (models.User, error)
}

type SessionStore interface {
	SaveSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	SessionByToken(ctx context.Context, token string) (models.Session, models.User, error)
	SessionsByUser(ctx context.Context, userID int64) ([]models.Session, error)
	DeleteSession(ctx context.Context, id int64) error
	DeleteSessions(ctx context.Context, ids []int64) error
	DeleteExpiredSessions(ctx context.Context, userID int64) error
	RevokeSession(ctx context.Context, id int64) error
}

// Minter owns the session table: it is the only component that issues,
// rotates, caps and revokes refresh tokens.
type Minter struct {
	log          *slog.Logger
	usrProvider  UserProvider
	sessions     SessionStore
	secret       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	sessionLimit int
}

func New(
	log *slog.Logger,
	userProvider UserProvider,
	sessions SessionStore,
	secret string,
	accessTTL, refreshTTL time.Duration,
	sessionLimit int,
) *Minter {
	return &Minter{
		log:          log,
		usrProvider:  userProvider,
		sessions:     sessions,
		secret:       secret,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		sessionLimit: sessionLimit,
	}
}

// MintAccessToken signs a fresh access token for the user. The account is
// re-read first so a concurrently deleted account cannot mint.
func (m *Minter) MintAccessToken(ctx context.Context, userID int64) (string, error) {
	const op = "tokens.MintAccessToken"

	user, err := m.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrUserNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := jwt.NewToken(user, m.secret, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return accessToken, nil
}

// MintRefreshSession creates a session row and returns the plaintext token.
func (m *Minter) MintRefreshSession(ctx context.Context, userID int64) (string, error) {
	const op = "tokens.MintRefreshSession"

	token, err := random.NewHexToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().Add(m.refreshTTL)

	if err := m.sessions.SaveSession(ctx, userID, token, expiresAt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// PruneStaleSessions drops expired sessions for the user and trims the rest
// down to the retention cap, newest first. Advisory cleanup: callers invoke
// it before minting on the login and verify paths.
func (m *Minter) PruneStaleSessions(ctx context.Context, userID int64) error {
	const op = "tokens.PruneStaleSessions"

	if err := m.sessions.DeleteExpiredSessions(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := m.sessions.SessionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(sessions) <= m.sessionLimit {
		return nil
	}

	var excess []int64
	for _, s := range sessions[m.sessionLimit:] {
		excess = append(excess, s.ID)
	}

	if err := m.sessions.DeleteSessions(ctx, excess); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh rotates the presented token: the consumed session is deleted and a
// fresh one minted, so a refresh token is single-use by construction.
func (m *Minter) Refresh(ctx context.Context, presentedToken string) (accessToken, refreshToken string, user models.User, err error) {
	const op = "tokens.Refresh"

	log := m.log.With(slog.String("op", op))

	session, user, err := m.sessions.SessionByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			log.Warn("refresh token not found")
			return "", "", models.User{}, ErrInvalidRefreshToken
		}

		log.Error("failed to load session", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if session.IsExpired() {
		log.Warn("refresh token expired", slog.Int64("uid", user.ID))

		if err := m.sessions.DeleteSession(ctx, session.ID); err != nil {
			log.Error("failed to delete expired session", sl.Err(err))
		}

		return "", "", models.User{}, ErrRefreshTokenExpired
	}

	// Revoked sessions are kept in place for audit.
	if session.Revoked {
		log.Warn("refresh token revoked", slog.Int64("uid", user.ID))
		return "", "", models.User{}, ErrRefreshTokenRevoked
	}

	accessToken, err = m.MintAccessToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to mint access token", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err = m.sessions.DeleteSession(ctx, session.ID); err != nil {
		log.Error("failed to consume session", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err = m.MintRefreshSession(ctx, user.ID)
	if err != nil {
		log.Error("failed to mint refresh session", sl.Err(err))
		return "", "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens rotated", slog.Int64("uid", user.ID))

	return accessToken, refreshToken, user, nil
}

// Revoke marks the session unusable without deleting its record. An unknown
// token reports ErrRefreshTokenNotFound so the caller can answer with a
// not-found result instead of failing.
func (m *Minter) Revoke(ctx context.Context, presentedToken string) error {
	const op = "tokens.Revoke"

	log := m.log.With(slog.String("op", op))

	session, _, err := m.sessions.SessionByToken(ctx, presentedToken)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return ErrRefreshTokenNotFound
		}

		log.Error("failed to load session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := m.sessions.RevokeSession(ctx, session.ID); err != nil {
		log.Error("failed to revoke session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session revoked", slog.Int64("uid", session.UserID))

	return nil
}
