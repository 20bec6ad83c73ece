package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/lib/random"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"
)

var (
	ErrNotFound = errors.New("otp not found")
	ErrExpired  = errors.New("otp expired")
	ErrMismatch = errors.New("otp mismatch")
)

type CodeStore interface {
	SaveCode(ctx context.Context, code models.OneTimeCode) error
	Code(ctx context.Context, email string) (models.OneTimeCode, error)
	DeleteCode(ctx context.Context, email string) error
}

type Service struct {
	log   *slog.Logger
	store CodeStore
	ttl   time.Duration
}

func New(log *slog.Logger, store CodeStore, ttl time.Duration) *Service {
	return &Service{
		log:   log,
		store: store,
		ttl:   ttl,
	}
}

// Generate issues a fresh one-time code for the email, replacing any code
// issued earlier. Delivery is the caller's responsibility.
func (s *Service) Generate(ctx context.Context, email string) (string, error) {
	const op = "otp.Generate"

	log := s.log.With(slog.String("op", op))

	code, err := random.NewOTPCode()
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()

	err = s.store.SaveCode(ctx, models.OneTimeCode{
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		log.Error("failed to save code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return code, nil
}

// Verify consumes the stored code for the email. A code verifies at most
// once: after success (or expiry) it is gone and a repeat attempt fails
// with ErrNotFound.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	const op = "otp.Verify"

	log := s.log.With(slog.String("op", op))

	stored, err := s.store.Code(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrOTPNotFound) {
			return ErrNotFound
		}

		log.Error("failed to load code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if stored.IsExpired() {
		if err := s.store.DeleteCode(ctx, email); err != nil {
			log.Error("failed to delete expired code", sl.Err(err))
		}

		return ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) != 1 {
		return ErrMismatch
	}

	if err := s.store.DeleteCode(ctx, email); err != nil {
		log.Error("failed to consume code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
