package handler

import (
	"database/sql"
	"errors"
	"go-school-api/model"
	"go-school-api/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

type middlewareFixture struct {
	mw          *AuthMiddleware
	tokens      *service.TokenService
	schoolRepo  *mockSchoolRepo
	studentRepo *mockStudentRepo
}

func newMiddlewareFixture() *middlewareFixture {
	tokens := service.NewTokenService()
	schoolRepo := new(mockSchoolRepo)
	studentRepo := new(mockStudentRepo)
	return &middlewareFixture{
		mw:          NewAuthMiddleware(tokens, schoolRepo, studentRepo, service.NewPrincipalCache(nil)),
		tokens:      tokens,
		schoolRepo:  schoolRepo,
		studentRepo: studentRepo,
	}
}

func accessTokenFor(t *testing.T, tokens *service.TokenService, id int, kind model.PrincipalKind) string {
	tokenString, _, err := tokens.GenerateAccessToken(id, kind)
	assert.NoError(t, err)
	return tokenString
}

// nextRecorder records whether the wrapped handler ran and with what context.
type nextRecorder struct {
	called  bool
	request *http.Request
}

func (n *nextRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.called = true
		n.request = r
		w.WriteHeader(http.StatusOK)
	})
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRequireAuth(t *testing.T) {
	f := newMiddlewareFixture()

	t.Run("no token at all", func(t *testing.T) {
		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(next.handler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})

	t.Run("valid cookie attaches principal to context", func(t *testing.T) {
		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(next.handler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, next.called)
		assert.Equal(t, 5, next.request.Context().Value(PrincipalIDKey))
		assert.Equal(t, model.KindStudent, next.request.Context().Value(PrincipalKindKey))
	})

	t.Run("bearer header fallback", func(t *testing.T) {
		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, f.tokens, 2, model.KindAdmin))
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(next.handler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.KindAdmin, next.request.Context().Value(PrincipalKindKey))
	})

	t.Run("expired token answers 401 and clears the access cookie", func(t *testing.T) {
		claims := &model.AppClaims{
			PrincipalID:   5,
			PrincipalKind: model.KindStudent,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
		assert.NoError(t, err)

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: expired})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(next.handler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)

		cleared := findCookie(rec.Result(), AccessCookieName)
		assert.NotNil(t, cleared)
		assert.Less(t, cleared.MaxAge, 0)
	})

	t.Run("garbage token answers 401", func(t *testing.T) {
		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(next.handler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, next.called)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin principal is loaded and attached", func(t *testing.T) {
		f := newMiddlewareFixture()
		school := &model.School{ID: 2, Name: "Springfield High"}
		f.schoolRepo.On("GetByID", 2).Return(school, nil).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 2, model.KindAdmin)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdmin(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, school, next.request.Context().Value(SchoolKey))
		f.schoolRepo.AssertExpectations(t)
	})

	// A valid student credential on an admin gate is a role problem, not an
	// authentication problem.
	t.Run("student credential yields forbidden, not unauthorized", func(t *testing.T) {
		f := newMiddlewareFixture()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdmin(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
		f.schoolRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("vanished school yields forbidden", func(t *testing.T) {
		f := newMiddlewareFixture()
		f.schoolRepo.On("GetByID", 2).Return(nil, sql.ErrNoRows).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 2, model.KindAdmin)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdmin(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})
}

func TestRequireStudent(t *testing.T) {
	t.Run("student principal is loaded and attached", func(t *testing.T) {
		f := newMiddlewareFixture()
		student := &model.Student{ID: 5, Name: "Lisa", SchoolID: 2}
		f.studentRepo.On("GetByID", 5).Return(student, nil).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/student", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, student, next.request.Context().Value(StudentKey))
	})

	t.Run("admin credential yields forbidden", func(t *testing.T) {
		f := newMiddlewareFixture()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/student", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 2, model.KindAdmin)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})
}

func TestRequireAdminOrStudent(t *testing.T) {
	t.Run("resolves admin", func(t *testing.T) {
		f := newMiddlewareFixture()
		school := &model.School{ID: 2}
		f.schoolRepo.On("GetByID", 2).Return(school, nil).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 2, model.KindAdmin)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdminOrStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, school, next.request.Context().Value(SchoolKey))
	})

	t.Run("resolves student", func(t *testing.T) {
		f := newMiddlewareFixture()
		student := &model.Student{ID: 5}
		f.studentRepo.On("GetByID", 5).Return(student, nil).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdminOrStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, student, next.request.Context().Value(StudentKey))
	})

	t.Run("vanished principal yields forbidden", func(t *testing.T) {
		f := newMiddlewareFixture()
		f.studentRepo.On("GetByID", 5).Return(nil, sql.ErrNoRows).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdminOrStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, next.called)
	})

	// A store outage must not be mistaken for a missing principal.
	t.Run("student store failure yields 500, not forbidden", func(t *testing.T) {
		f := newMiddlewareFixture()
		f.studentRepo.On("GetByID", 5).Return(nil, errors.New("pq: connection refused")).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 5, model.KindStudent)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdminOrStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, next.called)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})

	t.Run("school store failure yields 500, not forbidden", func(t *testing.T) {
		f := newMiddlewareFixture()
		f.schoolRepo.On("GetByID", 2).Return(nil, errors.New("pq: connection refused")).Once()

		next := &nextRecorder{}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: accessTokenFor(t, f.tokens, 2, model.KindAdmin)})
		rec := httptest.NewRecorder()

		f.mw.RequireAuth(f.mw.RequireAdminOrStudent(next.handler())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, next.called)
	})
}
