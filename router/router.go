package router

import (
	"go-school-api/handler"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(authHandler *handler.AuthHandler, authMW *handler.AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.Handle("POST /api/auth/register/student", handler.ErrorHandlingMiddleware(authHandler.RegisterStudent))
	mux.Handle("POST /api/auth/login/student", handler.ErrorHandlingMiddleware(authHandler.LoginStudent))
	mux.Handle("POST /api/auth/login/admin", handler.ErrorHandlingMiddleware(authHandler.LoginAdmin))
	mux.Handle("POST /api/auth/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	mux.Handle("POST /api/auth/logout", handler.ErrorHandlingMiddleware(authHandler.Logout))

	// Protected routes
	mux.Handle("POST /api/auth/logout-all",
		authMW.RequireAuth(handler.ErrorHandlingMiddleware(authHandler.LogoutAll)))
	mux.Handle("GET /api/auth/me",
		authMW.RequireAuth(authMW.RequireAdminOrStudent(handler.ErrorHandlingMiddleware(authHandler.Me))))
	mux.Handle("POST /api/profile/change-password",
		authMW.RequireAuth(handler.ErrorHandlingMiddleware(authHandler.ChangePassword)))

	mux.HandleFunc("GET /api/health", handler.HealthCheck)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
