package models

import (
	"strings"
	"time"
)

// Student defines the student model based on the 'students' table
type Student struct {
	ID            int64      `db:"id"`
	StudentID     string     `db:"student_id"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Email         *string    `db:"email"`
	DateOfBirth   *time.Time `db:"date_of_birth"`
	Grade         string     `db:"grade"`
	Address       *string    `db:"address"`
	ParentContact *string    `db:"parent_contact"`
	CreatedAt     time.Time  `db:"created_at"`
}

// FullName joins first and last name
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentUpdate carries the fields of a partial student update; nil means unchanged
type StudentUpdate struct {
	StudentID     *string
	FirstName     *string
	LastName      *string
	Email         *string
	DateOfBirth   *time.Time
	Grade         *string
	Address       *string
	ParentContact *string
}

// Apply copies the set fields onto s
func (u StudentUpdate) Apply(s *Student) {
	if u.StudentID != nil {
		s.StudentID = *u.StudentID
	}
	if u.FirstName != nil {
		s.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		s.LastName = *u.LastName
	}
	if u.Email != nil {
		s.Email = u.Email
	}
	if u.DateOfBirth != nil {
		s.DateOfBirth = u.DateOfBirth
	}
	if u.Grade != nil {
		s.Grade = *u.Grade
	}
	if u.Address != nil {
		s.Address = u.Address
	}
	if u.ParentContact != nil {
		s.ParentContact = u.ParentContact
	}
}
