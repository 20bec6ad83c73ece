package revoke

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/tokens"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type Revoker interface {
	Revoke(ctx context.Context, presentedToken string) error
}

// New godoc
// @Summary      Отзыв refresh токена
// @Description  Помечает сессию отозванной, запись остается для аудита.
// @Description  Неизвестный токен отражается статусом в теле ответа.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/email-password/revoke [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Revoker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.revoke.New"

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

		if err := service.Revoke(ctx, req.RefreshToken); err != nil {
			if errors.Is(err, tokens.ErrRefreshTokenNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Response{
					StatusCode: http.StatusNotFound,
					Message:    "Refresh token not found",
				})

				return
			}

			log.Error("failed to revoke token", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		log.Info("refresh token revoked")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.OK(http.StatusOK, "Refresh token revoked successfully"))
}
