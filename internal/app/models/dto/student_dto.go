package dto

import (
	"time"

	"github.com/yigit/vaxportal/internal/app/models"
)

// CreateStudentRequest is the body of POST /students
type CreateStudentRequest struct {
	StudentID     string `json:"studentId" binding:"omitempty,max=50" example:"ST-2604-1234"`
	FirstName     string `json:"firstName" binding:"required,notblank,max=100" example:"Asha"`
	LastName      string `json:"lastName" binding:"required,notblank,max=100" example:"Rao"`
	Email         string `json:"email" binding:"omitempty,email" example:"asha.rao@example.com"`
	DateOfBirth   string `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02" example:"2014-08-21"`
	Grade         string `json:"grade" binding:"required,notblank,max=20" example:"6"`
	Address       string `json:"address" binding:"omitempty" example:"12 Lake Road"`
	ParentContact string `json:"parentContact" binding:"omitempty,max=100" example:"+91 98765 43210"`
}

// UpdateStudentRequest is the body of PUT /students/{id}; absent fields stay unchanged
type UpdateStudentRequest struct {
	StudentID     *string `json:"studentId" binding:"omitempty,notblank,max=50"`
	FirstName     *string `json:"firstName" binding:"omitempty,notblank,max=100"`
	LastName      *string `json:"lastName" binding:"omitempty,notblank,max=100"`
	Email         *string `json:"email" binding:"omitempty,email"`
	DateOfBirth   *string `json:"dateOfBirth" binding:"omitempty,datetime=2006-01-02"`
	Grade         *string `json:"grade" binding:"omitempty,notblank,max=20"`
	Address       *string `json:"address"`
	ParentContact *string `json:"parentContact" binding:"omitempty,max=100"`
}

// StudentResponse is the wire form of a student
type StudentResponse struct {
	ID            int64     `json:"id" example:"1"`
	StudentID     string    `json:"studentId" example:"ST-2604-1234"`
	FirstName     string    `json:"firstName" example:"Asha"`
	LastName      string    `json:"lastName" example:"Rao"`
	Email         *string   `json:"email,omitempty"`
	DateOfBirth   *string   `json:"dateOfBirth,omitempty" example:"2014-08-21"`
	Grade         string    `json:"grade" example:"6"`
	Address       *string   `json:"address,omitempty"`
	ParentContact *string   `json:"parentContact,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// StudentListResponse is a page of students
type StudentListResponse struct {
	Students   []StudentResponse `json:"students"`
	Total      int64             `json:"total" example:"42"`
	Pagination PaginationInfo    `json:"pagination"`
}

// ImportStudentsResponse reports a CSV import
type ImportStudentsResponse struct {
	Count int `json:"count" example:"25"`
}

// FromStudent converts a student model to its response
func FromStudent(s *models.Student) StudentResponse {
	return StudentResponse{
		ID:            s.ID,
		StudentID:     s.StudentID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Email:         s.Email,
		DateOfBirth:   formatOptionalDate(s.DateOfBirth),
		Grade:         s.Grade,
		Address:       s.Address,
		ParentContact: s.ParentContact,
		CreatedAt:     s.CreatedAt,
	}
}

// FromStudents converts a slice of student models
func FromStudents(students []*models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, FromStudent(s))
	}
	return out
}
