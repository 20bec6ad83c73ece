package validateOTP

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
	"github.com/Chu-rill/Huddle/internal/otp"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"OTP" validate:"required"`
}

type VerifiedUser struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

type Verifier interface {
	ValidateOTP(ctx context.Context, email, code string) (models.User, auth.TokenPair, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Verifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.validateOTP.New"

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

		user, pair, err := service.ValidateOTP(ctx, req.Email, req.OTP)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error(http.StatusNotFound, "User not found"))
			case errors.Is(err, otp.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error(http.StatusNotFound, "OTP not found"))
			case errors.Is(err, otp.ErrExpired):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "OTP expired"))
			case errors.Is(err, otp.ErrMismatch):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(http.StatusUnauthorized, "Invalid OTP"))
			default:
				log.Error("failed to validate OTP", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))
			}

			return
		}

		log.Info("email verified successfully", slog.Int64("uid", user.ID))

		ResponseOK(w, r, user, pair)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User, pair auth.TokenPair) {
	response := resp.OK(http.StatusOK, "User verified successfully")
	response.Data = VerifiedUser{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		IsVerified: user.IsVerified,
	}
	response.Token = pair.AccessToken
	response.RefreshToken = pair.RefreshToken

	render.JSON(w, r, response)
}
