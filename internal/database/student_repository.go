package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vgnt/transport-portal/internal/models"
)

const studentColumns = `name, student_id, assigned_seat, total_fee, paid_amount, pending_amount`

// StudentRepository handles database operations for students
type StudentRepository struct {
	db DB
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// GetByNameAndRoll finds the single student whose upper-cased name and roll
// number both match. Zero matches and multiple matches are both errors.
func (r *StudentRepository) GetByNameAndRoll(ctx context.Context, upperName, roll string) (*models.StudentRecord, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE UPPER(name) = $1 AND student_id = $2
		LIMIT 2
	`

	var rows []models.StudentRecord
	if err := r.db.SelectContext(ctx, &rows, query, upperName, roll); err != nil {
		return nil, fmt.Errorf("failed to query student: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, ErrStudentNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrAmbiguousStudent
	}
}

// GetByRoll retrieves a student by roll number
func (r *StudentRepository) GetByRoll(ctx context.Context, roll string) (*models.StudentRecord, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE student_id = $1
	`

	student := &models.StudentRecord{}
	err := r.db.GetContext(ctx, student, query, roll)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

// List returns every student ordered by roll number
func (r *StudentRepository) List(ctx context.Context) ([]models.StudentRecord, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		ORDER BY student_id
	`

	students := []models.StudentRecord{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// ListAssignedSeats returns the seat ids currently assigned to students
func (r *StudentRepository) ListAssignedSeats(ctx context.Context) ([]string, error) {
	query := `
		SELECT assigned_seat
		FROM students
		WHERE assigned_seat IS NOT NULL AND assigned_seat <> ''
	`

	seats := []string{}
	if err := r.db.SelectContext(ctx, &seats, query); err != nil {
		return nil, fmt.Errorf("failed to list assigned seats: %w", err)
	}
	return seats, nil
}
