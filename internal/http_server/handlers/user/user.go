package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	resp "github.com/Chu-rill/Huddle/internal/lib/api/response"
	sl "github.com/Chu-rill/Huddle/internal/lib/logger"
	"github.com/Chu-rill/Huddle/internal/models"
	"github.com/Chu-rill/Huddle/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type UserProvider interface {
	UserByID(ctx context.Context, id int64) (models.User, error)
}

func New(
	log *slog.Logger,
	provider UserProvider,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error(http.StatusBadRequest, "invalid user id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := provider.UserByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error(http.StatusNotFound, "User Not Found"))

				return
			}

			log.Error("failed to get user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error(http.StatusInternalServerError, "Internal error"))

			return
		}

		ResponseOK(w, r, user)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, user models.User) {
	response := resp.OK(http.StatusOK, "User retrieved successfully")
	response.Data = user.View()

	render.JSON(w, r, response)
}
