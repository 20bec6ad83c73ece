package otp

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeStore struct {
	codes map[string]models.OneTimeCode
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{codes: make(map[string]models.OneTimeCode)}
}

func (s *fakeCodeStore) SaveCode(_ context.Context, code models.OneTimeCode) error {
	s.codes[code.Email] = code
	return nil
}

func (s *fakeCodeStore) Code(_ context.Context, email string) (models.OneTimeCode, error) {
	code, ok := s.codes[email]
	if !ok {
		return models.OneTimeCode{}, storage.ErrOTPNotFound
	}
	return code, nil
}

func (s *fakeCodeStore) DeleteCode(_ context.Context, email string) error {
	delete(s.codes, email)
	return nil
}

func newService(store CodeStore) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, store, 10*time.Minute)
}

func TestGenerate_ReplacesPriorCode(t *testing.T) {
	t.Parallel()

	store := newFakeCodeStore()
	svc := newService(store)
	ctx := context.Background()

	first, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	second, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	// Only the latest code is valid.
	if first != second {
		assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", first), ErrMismatch)
	}
	assert.NoError(t, svc.Verify(ctx, "a@x.com", second))
}

func TestVerify_ConsumesCode(t *testing.T) {
	t.Parallel()

	store := newFakeCodeStore()
	svc := newService(store)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "a@x.com", code))

	// Single use: the second attempt must fail as consumed.
	assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", code), ErrNotFound)
}

func TestVerify_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(newFakeCodeStore())

	assert.ErrorIs(t, svc.Verify(context.Background(), "nobody@x.com", "123456"), ErrNotFound)
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()

	store := newFakeCodeStore()
	svc := newService(store)
	ctx := context.Background()

	code, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", wrong), ErrMismatch)

	// A mismatch does not consume the stored code.
	assert.NoError(t, svc.Verify(ctx, "a@x.com", code))
}

func TestVerify_ExpiredIsConsumed(t *testing.T) {
	t.Parallel()

	store := newFakeCodeStore()
	svc := newService(store)
	ctx := context.Background()

	store.codes["a@x.com"] = models.OneTimeCode{
		Email:     "a@x.com",
		Code:      "123456",
		CreatedAt: time.Now().Add(-20 * time.Minute),
		ExpiresAt: time.Now().Add(-10 * time.Minute),
	}

	assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", "123456"), ErrExpired)

	// The expired code was deleted on the way out.
	assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", "123456"), ErrNotFound)
}
