package resendOTP

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Resender interface {
	ResendOTP(ctx context.Context, email string) (found bool, err error)
}

// New godoc
// @Summary      Повторная отправка OTP кода
// @Description  Генерирует новый код и ставит письмо в очередь. Неизвестный
// @Description  email отражается статусом в теле ответа, а не ошибкой.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response
// @Router       /auth/email-password/resendOTP [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Resender,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.resendOTP.New"

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

		found, err := service.ResendOTP(ctx, req.Email)
		if err != nil {
			log.Error("failed to resend OTP", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		// Not-found is a status-coded result here, not an error.
		if !found {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Response{
				StatusCode: http.StatusNotFound,
				Message:    "user not found",
			})

			return
		}

		log.Info("OTP resent")

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp.OK(http.StatusCreated, "OTP Send"))
}
