package repository

import (
	"database/sql"
	"go-school-api/model"
)

// ISchoolRepository is the admin-side principal store.
type ISchoolRepository interface {
	GetByEmail(email string) (*model.School, error)
	GetByID(id int) (*model.School, error)
	UpdatePassword(tx *sql.Tx, id int, passwordHash string) error
}

type SchoolRepository struct {
	DB *sql.DB
}

func NewSchoolRepository(db *sql.DB) *SchoolRepository {
	return &SchoolRepository{DB: db}
}

const schoolColumns = `id, name, email, password, phone, address, created_at`

func (r *SchoolRepository) GetByEmail(email string) (*model.School, error) {
	school := &model.School{}
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE email = $1`
	err := r.DB.QueryRow(query, email).Scan(
		&school.ID, &school.Name, &school.Email, &school.Password,
		&school.Phone, &school.Address, &school.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return school, nil
}

func (r *SchoolRepository) GetByID(id int) (*model.School, error) {
	school := &model.School{}
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&school.ID, &school.Name, &school.Email, &school.Password,
		&school.Phone, &school.Address, &school.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return school, nil
}

// UpdatePassword runs inside the caller's transaction so the hash update and
// the session revocation that accompanies it commit atomically.
func (r *SchoolRepository) UpdatePassword(tx *sql.Tx, id int, passwordHash string) error {
	_, err := tx.Exec(`UPDATE schools SET password = $1 WHERE id = $2`, passwordHash, id)
	return err
}
