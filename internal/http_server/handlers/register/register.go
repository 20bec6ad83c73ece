package register

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
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Pass     string `json:"password" validate:"required,min=6"`
}

type UserCreated struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Registrar interface {
	Register(ctx context.Context, username, email, pass string) (models.User, error)
}

// New godoc
// @Summary      Регистрация нового пользователя
// @Description  Создает неподтвержденный аккаунт и отправляет OTP код на почту.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201  {object}  response.Response
// @Failure      409  {object}  response.Response  "Email уже занят"
// @Router       /auth/email-password/register [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	service Registrar,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

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

		user, err := service.Register(ctx, req.Username, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error(http.StatusConflict, "User already exists"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Registration failed"))

			return
		}

		log.Info("User registered", slog.Int64("id", user.ID))

		ResponseOK(w, r, user)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User) {
	response := resp.OK(http.StatusCreated, "User registered successfully.")
	response.Data = UserCreated{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response)
}
