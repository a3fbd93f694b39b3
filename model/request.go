// file: model/request.go

package model

// RegisterStudentRequest defines the payload for student self-registration.
// It includes validation tags to ensure data integrity at the entry point.
type RegisterStudentRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6,max=50"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	Class        string `json:"class" validate:"omitempty,max=50"`
	AcademicYear string `json:"academic_year" validate:"omitempty,max=20"`
	SchoolID     int    `json:"school_id" validate:"required,gt=0"`
}

// LoginRequest defines the payload for student and admin authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest defines the payload for rotating a principal's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=50"`
}
