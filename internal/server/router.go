package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"comanda/internal/auth"
	"comanda/internal/domain"
	"comanda/internal/httpx"
	menucontroller "comanda/internal/menu/controller"
	ordercontroller "comanda/internal/order/controller"
	usercontroller "comanda/internal/user/controller"
)

type Controllers struct {
	Foods  *menucontroller.FoodController
	Orders *ordercontroller.SubmitOrderController
	Users  *usercontroller.UserController
}

func NewRouter(ctrls Controllers, sessions auth.SessionResolver, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authenticated := auth.Authenticate(sessions, logger)
	adminOnly := auth.Require(domain.CapabilityAdminView, logger)

	r.Route("/api", func(r chi.Router) {
		r.With(auth.Optional(sessions, logger)).Post("/users/register", ctrls.Users.Register)
		r.Post("/users/login", ctrls.Users.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Post("/users/logout", ctrls.Users.Logout)
			r.Get("/profile", ctrls.Users.GetProfile)
			r.Put("/profile", ctrls.Users.UpdateProfile)

			r.Get("/foods", ctrls.Foods.List)
			r.Post("/orders", ctrls.Orders.Submit)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Post("/foods", ctrls.Foods.Create)
				r.Put("/foods/{id}", ctrls.Foods.Update)
				r.Delete("/foods/{id}", ctrls.Foods.Delete)

				r.Get("/users", ctrls.Users.List)
				r.Get("/users/{id}", ctrls.Users.Get)
				r.Put("/users/{id}", ctrls.Users.Update)
				r.Delete("/users/{id}", ctrls.Users.Delete)
			})
		})
	})

	return r
}
