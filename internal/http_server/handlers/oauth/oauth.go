package oauth

import (
	"context"
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

// Request carries an identity already verified by the OAuth provider. The
// handshake itself happens upstream; this endpoint only provisions the
// account and issues tokens.
type Request struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type ProvisionedUser struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

type Provisioner interface {
	ProvisionOAuth(ctx context.Context, identity auth.OAuthIdentity) (models.User, auth.TokenPair, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Provisioner,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.oauth.New"

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

		user, pair, err := service.ProvisionOAuth(ctx, auth.OAuthIdentity{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			log.Error("failed to provision oauth user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		log.Info("oauth login successful", slog.Int64("uid", user.ID))

		ResponseOK(w, r, user, pair)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User, pair auth.TokenPair) {
	response := resp.OK(http.StatusOK, "Google Auth Successful")
	response.Data = ProvisionedUser{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		IsEmailVerified: user.IsVerified,
	}
	response.Token = pair.AccessToken
	response.RefreshToken = pair.RefreshToken

	render.JSON(w, r, response)
}
