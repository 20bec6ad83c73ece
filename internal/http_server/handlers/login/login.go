package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Chu-rill/Huddle/internal/auth"
	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required,min=6"`
}

type Authenticator interface {
	Login(ctx context.Context, email, pass string) (models.User, auth.TokenPair, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Authenticator,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(http.StatusBadRequest, "Failed to decode request"))

			return
		}

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, pair, err := service.Login(ctx, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Invalid credentials"))

				return
			}
			if errors.Is(err, auth.ErrEmailNotVerified) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Please verify your email before logging in"))

				return
			}

			log.Error("failed to login user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Login failed"))

			return
		}

		log.Info("User logged in successfully")

		ResponseOK(w, r, user, pair)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User, pair auth.TokenPair) {
	response := resp.OK(http.StatusOK, "Login successful")
	response.Data = user.View()
	response.Token = pair.AccessToken
	response.RefreshToken = pair.RefreshToken

	render.JSON(w, r, response)
}
