package handler

import (
	"encoding/json"
	"errors"
	"go-school-api/common"
	"go-school-api/logger"
	"go-school-api/model"
	"go-school-api/service"
	"net/http"
)

type AuthHandler struct {
	service service.IAuthService
}

func NewAuthHandler(service service.IAuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterStudent godoc
// @Summary      Register a new student
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterStudentRequest true "Registration payload"
// @Success      201 {object} model.Student
// @Failure      400 {object} common.AppError
// @Router       /api/auth/register/student [post]
func (h *AuthHandler) RegisterStudent(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterStudentRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	student, pair, err := h.service.RegisterStudent(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			return common.NewAppError(http.StatusBadRequest, "Email already registered", nil)
		case errors.Is(err, service.ErrSchoolNotFound):
			return common.NewAppError(http.StatusBadRequest, "School not found", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Registration failed", err)
		}
	}

	setSessionCookies(w, pair)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"user":    student,
	})
	return nil
}

// LoginStudent godoc
// @Summary      Log in as a student
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200 {object} model.Student
// @Failure      401 {object} common.AppError
// @Router       /api/auth/login/student [post]
func (h *AuthHandler) LoginStudent(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	student, pair, err := h.service.LoginStudent(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Login failed", err)
	}

	setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    student,
	})
	return nil
}

// LoginAdmin godoc
// @Summary      Log in as a school admin
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Credentials"
// @Success      200 {object} model.School
// @Failure      401 {object} common.AppError
// @Router       /api/auth/login/admin [post]
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	school, pair, err := h.service.LoginAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Login failed", err)
	}

	setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    school,
	})
	return nil
}

// Refresh godoc
// @Summary      Rotate the refresh token and mint a new access token
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      401 {object} common.AppError
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		clearSessionCookies(w)
		return common.NewAppError(http.StatusUnauthorized, "No session", nil)
	}

	pair, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			clearSessionCookies(w)
			return common.NewAppError(http.StatusUnauthorized, "No session", nil)
		case errors.Is(err, service.ErrInvalidSession):
			clearSessionCookies(w)
			return common.NewAppError(http.StatusUnauthorized, "Session is no longer valid, please sign in again", nil)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Refresh failed", err)
		}
	}

	setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
	return nil
}

// Logout godoc
// @Summary      Log out the current session
// @Description  Idempotent; succeeds even without a valid refresh cookie.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	refreshToken := ""
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	// Logout never fails to the caller; a store error only gets logged.
	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		logger.Log.WithError(err).Error("Failed to revoke session on logout")
	}

	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
	return nil
}

// LogoutAll godoc
// @Summary      Log out every session of the authenticated principal
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Failure      401 {object} common.AppError
// @Router       /api/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, kind, ok := principalFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "No token provided", nil)
	}

	if err := h.service.LogoutAll(r.Context(), id, kind); err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Logout failed", err)
	}

	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out from all sessions"})
	return nil
}

// Me godoc
// @Summary      Return the authenticated principal
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} common.AppError
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	if school, ok := r.Context().Value(SchoolKey).(*model.School); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": model.KindAdmin, "user": school})
		return nil
	}
	if student, ok := r.Context().Value(StudentKey).(*model.Student); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"type": model.KindStudent, "user": student})
		return nil
	}
	return common.NewAppError(http.StatusForbidden, "Access denied", nil)
}

// ChangePassword godoc
// @Summary      Change the password of the authenticated principal
// @Description  Revokes every other session on success.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body model.ChangePasswordRequest true "Passwords"
// @Success      200 {object} map[string]string
// @Failure      401 {object} common.AppError
// @Router       /api/profile/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	id, kind, ok := principalFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "No token provided", nil)
	}

	var req model.ChangePasswordRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.service.ChangePassword(r.Context(), id, kind, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid current password", nil)
		}
		return common.NewAppError(http.StatusInternalServerError, "Failed to change password", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully. All other sessions have been logged out.",
	})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
