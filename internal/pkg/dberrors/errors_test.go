package dberrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/yigit/vaxportal/internal/pkg/dberrors"
)

func TestClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "student_drive_idx"})
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "vaccination_records_drive_id_fkey"}
	check := &pgconn.PgError{Code: "23514", ConstraintName: "vaccination_drives_dose_bounds"}
	plain := errors.New("connection reset")

	assert.True(t, dberrors.IsDuplicateKeyError(unique))
	assert.True(t, dberrors.IsDuplicateConstraintError(unique, "student_drive_idx"))
	assert.False(t, dberrors.IsDuplicateConstraintError(unique, "students_student_id_key"))
	assert.False(t, dberrors.IsDuplicateKeyError(plain))

	assert.True(t, dberrors.IsForeignKeyViolation(fk))
	assert.False(t, dberrors.IsForeignKeyViolation(unique))

	assert.True(t, dberrors.IsCheckViolation(check, ""))
	assert.True(t, dberrors.IsCheckViolation(check, "vaccination_drives_dose_bounds"))
	assert.False(t, dberrors.IsCheckViolation(check, "other"))
	assert.False(t, dberrors.IsCheckViolation(plain, ""))
}
