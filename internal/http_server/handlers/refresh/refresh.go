package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/tokens"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type Refresher interface {
	Refresh(ctx context.Context, presentedToken string) (accessToken, refreshToken string, user models.User, err error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Refresher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

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

		accessToken, refreshToken, user, err := service.Refresh(ctx, req.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, tokens.ErrInvalidRefreshToken):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Invalid refresh token"))
			case errors.Is(err, tokens.ErrRefreshTokenExpired):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Refresh token expired"))
			case errors.Is(err, tokens.ErrRefreshTokenRevoked):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Refresh token has been revoked"))
			default:
				log.Error("failed to refresh tokens", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))
			}

			return
		}

		log.Info("Tokens refreshed successfully")

		ResponseOK(w, r, user, accessToken, refreshToken)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User, accessToken, refreshToken string) {
	response := resp.OK(http.StatusOK, "Token refreshed successfully")
	response.Data = user.View()
	response.Token = accessToken
	response.RefreshToken = refreshToken

	render.JSON(w, r, response)
}
