package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wirebird/crm/internal/account"
	"github.com/wirebird/crm/internal/auth"
	"github.com/wirebird/crm/internal/lead"
	"github.com/wirebird/crm/internal/rbac"
	"github.com/wirebird/crm/internal/stage"
	"github.com/wirebird/crm/internal/transport/middleware"
	"github.com/wirebird/crm/internal/transport/swagger"
	"github.com/wirebird/crm/internal/user"
)

type Handlers struct {
	Auth    *auth.Handler
	Stage   *stage.Handler
	Lead    *lead.Handler
	Account *account.Handler
	User    *user.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, redisClient *redis.Client, handlers Handlers, guard *rbac.RouteGuard, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, redisClient)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(allowedOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Trace-ID"},
	}))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Auth.Login)
			sr.Post("/refresh", handlers.Auth.RefreshToken)
			sr.Post("/logout", handlers.Auth.Logout)
		})

		// Protected routes that require an authenticated session
		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)
			pr.Use(guard.RequireAuthenticated())

			pr.Get("/auth/me", handlers.Auth.Me)

			pr.Route("/stages", func(sr chi.Router) {
				sr.Get("/", handlers.Stage.ListStages)
				sr.Get("/{id}", handlers.Stage.GetStage)
			})

			pr.Route("/leads", func(lr chi.Router) {
				lr.Get("/", handlers.Lead.ListLeads)
				lr.Get("/{id}", handlers.Lead.GetLead)

				lr.Group(func(wr chi.Router) {
					wr.Use(guard.RequireRoles(rbac.RoleAdmin, rbac.RoleBD, rbac.RoleSales, rbac.RoleTelecaller))
					wr.Post("/", handlers.Lead.CreateLead)
					wr.Patch("/{id}", handlers.Lead.UpdateLead)
					wr.Patch("/{id}/stage", handlers.Lead.AdvanceStage)
				})

				lr.Group(func(ar chi.Router) {
					ar.Use(guard.RequireRoles(rbac.RoleAdmin, rbac.RoleBD))
					ar.Patch("/{id}/assign", handlers.Lead.AssignLead)
				})

				lr.Group(func(dr chi.Router) {
					dr.Use(guard.RequireRoles(rbac.RoleAdmin))
					dr.Delete("/{id}", handlers.Lead.DeleteLead)
				})
			})

			pr.Route("/accounts", func(ar chi.Router) {
				ar.Get("/", handlers.Account.ListAccounts)
				ar.Get("/{id}", handlers.Account.GetAccount)

				ar.Group(func(wr chi.Router) {
					wr.Use(guard.RequireRoles(rbac.RoleAdmin, rbac.RoleBD, rbac.RoleSales))
					wr.Post("/", handlers.Account.CreateAccount)
					wr.Patch("/{id}", handlers.Account.UpdateAccount)
				})
			})

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", handlers.User.ListUsers)

				ur.Group(func(ar chi.Router) {
					ar.Use(guard.RequireRoles(rbac.RoleAdmin))
					ar.Post("/", handlers.User.CreateUser)
					ar.Patch("/{id}/password", handlers.User.ResetPassword)
					ar.Patch("/{id}/deactivate", handlers.User.DeactivateUser)
				})
			})
		})
	})
}
