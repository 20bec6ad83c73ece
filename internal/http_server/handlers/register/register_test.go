package register_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Chu-rill/Huddle/internal/auth"
	"github.com/Chu-rill/Huddle/internal/http_server/handlers/register"
	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	"github.com/Chu-rill/Huddle/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistrar struct {
	err  error
	user models.User
}

func (f *fakeRegistrar) Register(_ context.Context, username, email, _ string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}

	f.user = models.User{
		ID:        1,
		Username:  username,
		Email:     email,
		CreatedAt: time.Now(),
	}
	return f.user, nil
}

func perform(t *testing.T, service register.Registrar, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := register.New(log, validator.New(), service)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	rec := perform(t, &fakeRegistrar{},
		`{"username":"alice","email":"a@x.com","password":"Passw0rd"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body resp.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, http.StatusCreated, body.StatusCode)
	assert.Equal(t, "User registered successfully.", body.Message)
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()

	rec := perform(t, &fakeRegistrar{err: auth.ErrUserExists},
		`{"username":"alice","email":"a@x.com","password":"Passw0rd"}`)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body resp.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "User already exists", body.Message)
}

func TestRegister_InvalidRequest(t *testing.T) {
	t.Parallel()

	rec := perform(t, &fakeRegistrar{}, `{"username":"alice","email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_InternalErrorIsOpaque(t *testing.T) {
	t.Parallel()

	rec := perform(t, &fakeRegistrar{err: context.DeadlineExceeded},
		`{"username":"alice","email":"a@x.com","password":"Passw0rd"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body resp.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// Internal failure details never leak to the boundary.
	assert.Equal(t, "Registration failed", body.Message)
}
