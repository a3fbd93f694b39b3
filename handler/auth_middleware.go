package handler

import (
	"context"
	"database/sql"
	"errors"
	"go-school-api/common"
	"go-school-api/logger"
	"go-school-api/model"
	"go-school-api/repository"
	"go-school-api/service"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	PrincipalIDKey   contextKey = "principalID"
	PrincipalKindKey contextKey = "principalKind"
	SchoolKey        contextKey = "school"
	StudentKey       contextKey = "student"
)

// AuthMiddleware is the per-request authorization gate: it resolves an access
// credential into a typed principal and enforces role requirements.
type AuthMiddleware struct {
	tokens      *service.TokenService
	schoolRepo  repository.ISchoolRepository
	studentRepo repository.IStudentRepository
	cache       *service.PrincipalCache
}

func NewAuthMiddleware(
	tokens *service.TokenService,
	schoolRepo repository.ISchoolRepository,
	studentRepo repository.IStudentRepository,
	cache *service.PrincipalCache,
) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		schoolRepo:  schoolRepo,
		studentRepo: studentRepo,
		cache:       cache,
	}
}

// extractToken reads the access credential from the cookie, falling back to
// a bearer header for non-browser clients.
func extractToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

// RequireAuth verifies the access credential and attaches the principal id
// and kind to the request context. An expired or malformed token clears the
// access cookie and answers 401; the client is expected to call refresh.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			appErr := common.NewAppError(http.StatusUnauthorized, "No token provided", nil)
			appErr.Send(w)
			return
		}

		claims, err := m.tokens.VerifyAccessToken(tokenString)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"expired": errors.Is(err, service.ErrExpiredCredential),
				"path":    r.URL.Path,
			}).Info("Rejected access credential")

			clearCookie(w, AccessCookieName)
			appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", nil)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalIDKey, claims.PrincipalID)
		ctx = context.WithValue(ctx, PrincipalKindKey, claims.PrincipalKind)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFromContext(r *http.Request) (int, model.PrincipalKind, bool) {
	id, ok := r.Context().Value(PrincipalIDKey).(int)
	if !ok {
		return 0, "", false
	}
	kind, ok := r.Context().Value(PrincipalKindKey).(model.PrincipalKind)
	if !ok || !kind.Valid() {
		return 0, "", false
	}
	return id, kind, true
}

// loadSchool resolves an admin principal, cache first. A miss on both means
// the school was deleted after the token was issued.
func (m *AuthMiddleware) loadSchool(ctx context.Context, id int) (*model.School, error) {
	if school, ok := m.cache.GetSchool(ctx, id); ok {
		return school, nil
	}
	school, err := m.schoolRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	m.cache.SetSchool(ctx, school)
	return school, nil
}

func (m *AuthMiddleware) loadStudent(ctx context.Context, id int) (*model.Student, error) {
	if student, ok := m.cache.GetStudent(ctx, id); ok {
		return student, nil
	}
	student, err := m.studentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	m.cache.SetStudent(ctx, student)
	return student, nil
}

// RequireAdmin admits only admin principals that still exist, and attaches
// the loaded school (the tenant scope) to the context.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, kind, ok := principalFromContext(r)
		if !ok || kind != model.KindAdmin {
			appErr := common.NewAppError(http.StatusForbidden, "Admin access required", nil)
			appErr.Send(w)
			return
		}

		school, err := m.loadSchool(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				appErr := common.NewAppError(http.StatusForbidden, "Admin not found", nil)
				appErr.Send(w)
				return
			}
			appErr := common.NewAppError(http.StatusInternalServerError, "Authentication error", err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), SchoolKey, school)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireStudent admits only student principals that still exist, and
// attaches the loaded student to the context.
func (m *AuthMiddleware) RequireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, kind, ok := principalFromContext(r)
		if !ok || kind != model.KindStudent {
			appErr := common.NewAppError(http.StatusForbidden, "Student access required", nil)
			appErr.Send(w)
			return
		}

		student, err := m.loadStudent(r.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				appErr := common.NewAppError(http.StatusForbidden, "Student not found", nil)
				appErr.Send(w)
				return
			}
			appErr := common.NewAppError(http.StatusInternalServerError, "Authentication error", err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), StudentKey, student)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdminOrStudent admits either kind for shared routes, attaching
// whichever principal resolves.
func (m *AuthMiddleware) RequireAdminOrStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, kind, ok := principalFromContext(r)
		if ok {
			switch kind {
			case model.KindAdmin:
				school, err := m.loadSchool(r.Context(), id)
				if err == nil {
					ctx := context.WithValue(r.Context(), SchoolKey, school)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if !errors.Is(err, sql.ErrNoRows) {
					appErr := common.NewAppError(http.StatusInternalServerError, "Authentication error", err)
					appErr.Send(w)
					return
				}
			case model.KindStudent:
				student, err := m.loadStudent(r.Context(), id)
				if err == nil {
					ctx := context.WithValue(r.Context(), StudentKey, student)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if !errors.Is(err, sql.ErrNoRows) {
					appErr := common.NewAppError(http.StatusInternalServerError, "Authentication error", err)
					appErr.Send(w)
					return
				}
			}
		}

		appErr := common.NewAppError(http.StatusForbidden, "Access denied", nil)
		appErr.Send(w)
	})
}
