package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-school-api/logger"
	"go-school-api/model"
	"go-school-api/repository"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password, so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession means the presented refresh token matches no record at all.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession means the refresh token matched a revoked, rotated or
	// expired record; every session of the principal has been revoked.
	ErrInvalidSession = errors.New("invalid session")
	ErrEmailTaken     = errors.New("email already registered")
	ErrSchoolNotFound = errors.New("school not found")
)

// IAuthService defines the contract the handlers program against.
type IAuthService interface {
	RegisterStudent(ctx context.Context, req model.RegisterStudentRequest) (*model.Student, *model.TokenPair, error)
	LoginStudent(ctx context.Context, email, password string) (*model.Student, *model.TokenPair, error)
	LoginAdmin(ctx context.Context, email, password string) (*model.School, *model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, principalID int, kind model.PrincipalKind) error
	ChangePassword(ctx context.Context, principalID int, kind model.PrincipalKind, currentPassword, newPassword string) error
}

// AuthService orchestrates login, refresh rotation, logout and password
// change on top of the token repository and the two principal stores.
type AuthService struct {
	db          *sql.DB
	schoolRepo  repository.ISchoolRepository
	studentRepo repository.IStudentRepository
	tokenRepo   repository.ITokenRepository
	tokens      *TokenService
	cache       *PrincipalCache
}

func NewAuthService(
	db *sql.DB,
	schoolRepo repository.ISchoolRepository,
	studentRepo repository.IStudentRepository,
	tokenRepo repository.ITokenRepository,
	tokens *TokenService,
	cache *PrincipalCache,
) *AuthService {
	return &AuthService{
		db:          db,
		schoolRepo:  schoolRepo,
		studentRepo: studentRepo,
		tokenRepo:   tokenRepo,
		tokens:      tokens,
		cache:       cache,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// RegisterStudent creates a student account and opens its first session.
func (s *AuthService) RegisterStudent(ctx context.Context, req model.RegisterStudentRequest) (*model.Student, *model.TokenPair, error) {
	if _, err := s.studentRepo.GetByEmail(req.Email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}

	if _, err := s.schoolRepo.GetByID(req.SchoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrSchoolNotFound
		}
		return nil, nil, err
	}

	hashedPassword, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	student := &model.Student{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashedPassword,
		Phone:        req.Phone,
		Class:        req.Class,
		AcademicYear: req.AcademicYear,
		SchoolID:     req.SchoolID,
	}
	if err := s.studentRepo.Create(student); err != nil {
		// The email check above races with concurrent registrations; the
		// unique constraint on students.email is the authority.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	pair, err := s.startSession(ctx, student.ID, model.KindStudent)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"student_id": student.ID,
		"school_id":  student.SchoolID,
	}).Info("Student registered")
	return student, pair, nil
}

// LoginStudent authenticates a student and opens a new session.
func (s *AuthService) LoginStudent(ctx context.Context, email, password string) (*model.Student, *model.TokenPair, error) {
	student, err := s.studentRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !s.CheckPasswordHash(password, student.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, student.ID, model.KindStudent)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.WithField("student_id", student.ID).Info("Student logged in")
	return student, pair, nil
}

// LoginAdmin authenticates a school admin and opens a new session.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*model.School, *model.TokenPair, error) {
	school, err := s.schoolRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !s.CheckPasswordHash(password, school.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, school.ID, model.KindAdmin)
	if err != nil {
		return nil, nil, err
	}

	logger.Log.WithField("school_id", school.ID).Info("Admin logged in")
	return school, pair, nil
}

// startSession mints a credential pair and persists the refresh record.
func (s *AuthService) startSession(ctx context.Context, principalID int, kind model.PrincipalKind) (*model.TokenPair, error) {
	pair, err := s.tokens.GeneratePair(principalID, kind)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	record := &model.RefreshToken{
		PrincipalID:   principalID,
		PrincipalKind: kind,
		TokenHash:     HashRefreshToken(pair.RefreshToken),
		ExpiresAt:     pair.RefreshExpiresAt,
	}
	if err := s.tokenRepo.Create(tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}
	return pair, nil
}

// Refresh rotates a refresh token: the presented record is marked rotated,
// a successor is persisted and a new credential pair returned. Both writes
// share one transaction, so an aborted call leaves the old token usable.
//
// Presenting a token that is already revoked, already rotated or expired is
// treated as evidence of theft: every session of that principal is revoked
// before the call fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	tokenHash := HashRefreshToken(refreshToken)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := s.tokenRepo.GetByTokenHashForUpdate(tx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	// expires_at itself is already outside the validity window
	expired := !time.Now().Before(record.ExpiresAt)
	if record.Revoked || expired {
		log := logger.Log.WithFields(logrus.Fields{
			"principal_id":   record.PrincipalID,
			"principal_kind": record.PrincipalKind,
			"token_id":       record.ID,
			"rotated":        record.ReplacedBy != nil,
			"expired":        expired,
		})
		log.Warn("Refresh token reuse detected, revoking all sessions for principal")

		if err := s.tokenRepo.RevokeAllForPrincipal(tx, record.PrincipalID, record.PrincipalKind); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("could not commit transaction: %w", err)
		}
		return nil, ErrInvalidSession
	}

	pair, err := s.tokens.GeneratePair(record.PrincipalID, record.PrincipalKind)
	if err != nil {
		return nil, err
	}

	successor := &model.RefreshToken{
		PrincipalID:   record.PrincipalID,
		PrincipalKind: record.PrincipalKind,
		TokenHash:     HashRefreshToken(pair.RefreshToken),
		ExpiresAt:     pair.RefreshExpiresAt,
	}
	if err := s.tokenRepo.Create(tx, successor); err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Revoke(tx, record.ID, &successor.TokenHash); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"principal_id":   record.PrincipalID,
		"principal_kind": record.PrincipalKind,
	}).Info("Refresh token rotated")
	return pair, nil
}

// Logout revokes the session behind the presented refresh token. It is
// idempotent: an unknown or already-revoked token is not an error, the
// caller's cookies get cleared either way.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	record, err := s.tokenRepo.GetByTokenHash(HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if record.Revoked {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tokenRepo.Revoke(tx, record.ID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"principal_id":   record.PrincipalID,
		"principal_kind": record.PrincipalKind,
	}).Info("Session logged out")
	return nil
}

// LogoutAll revokes every session of the principal, across all devices.
func (s *AuthService) LogoutAll(ctx context.Context, principalID int, kind model.PrincipalKind) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tokenRepo.RevokeAllForPrincipal(tx, principalID, kind); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"principal_id":   principalID,
		"principal_kind": kind,
	}).Info("All sessions logged out")
	return nil
}

// ChangePassword verifies the current password, writes the new hash and
// revokes every existing session in the same transaction, so a credential
// leaked before the change cannot outlive it.
func (s *AuthService) ChangePassword(ctx context.Context, principalID int, kind model.PrincipalKind, currentPassword, newPassword string) error {
	var currentHash string
	switch kind {
	case model.KindStudent:
		student, err := s.studentRepo.GetByID(principalID)
		if err != nil {
			return err
		}
		currentHash = student.Password
	case model.KindAdmin:
		school, err := s.schoolRepo.GetByID(principalID)
		if err != nil {
			return err
		}
		currentHash = school.Password
	default:
		return ErrInvalidCredentials
	}

	if !s.CheckPasswordHash(currentPassword, currentHash) {
		return ErrInvalidCredentials
	}

	newHash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if kind == model.KindStudent {
		err = s.studentRepo.UpdatePassword(tx, principalID, newHash)
	} else {
		err = s.schoolRepo.UpdatePassword(tx, principalID, newHash)
	}
	if err != nil {
		return fmt.Errorf("could not update password: %w", err)
	}

	if err := s.tokenRepo.RevokeAllForPrincipal(tx, principalID, kind); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.cache.Invalidate(ctx, kind, principalID)

	logger.Log.WithFields(logrus.Fields{
		"principal_id":   principalID,
		"principal_kind": kind,
	}).Info("Password changed, all sessions revoked")
	return nil
}
