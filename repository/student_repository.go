package repository

import (
	"database/sql"
	"go-school-api/model"
)

// IStudentRepository is the student-side principal store.
type IStudentRepository interface {
	Create(student *model.Student) error
	GetByEmail(email string) (*model.Student, error)
	GetByID(id int) (*model.Student, error)
	UpdatePassword(tx *sql.Tx, id int, passwordHash string) error
}

type StudentRepository struct {
	DB *sql.DB
}

func NewStudentRepository(db *sql.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

const studentColumns = `id, name, email, password, phone, class, academic_year, school_id, created_at`

func (r *StudentRepository) Create(student *model.Student) error {
	query := `INSERT INTO students (name, email, password, phone, class, academic_year, school_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	return r.DB.QueryRow(query,
		student.Name, student.Email, student.Password, student.Phone,
		student.Class, student.AcademicYear, student.SchoolID,
	).Scan(&student.ID, &student.CreatedAt)
}

func (r *StudentRepository) GetByEmail(email string) (*model.Student, error) {
	student := &model.Student{}
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = $1`
	err := r.DB.QueryRow(query, email).Scan(
		&student.ID, &student.Name, &student.Email, &student.Password, &student.Phone,
		&student.Class, &student.AcademicYear, &student.SchoolID, &student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}

func (r *StudentRepository) GetByID(id int) (*model.Student, error) {
	student := &model.Student{}
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	err := r.DB.QueryRow(query, id).Scan(
		&student.ID, &student.Name, &student.Email, &student.Password, &student.Phone,
		&student.Class, &student.AcademicYear, &student.SchoolID, &student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}

// UpdatePassword runs inside the caller's transaction so the hash update and
// the session revocation that accompanies it commit atomically.
func (r *StudentRepository) UpdatePassword(tx *sql.Tx, id int, passwordHash string) error {
	_, err := tx.Exec(`UPDATE students SET password = $1 WHERE id = $2`, passwordHash, id)
	return err
}
