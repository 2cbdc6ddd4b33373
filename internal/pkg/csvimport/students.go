package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yigit/vaxportal/internal/pkg/helpers"
)

// MaxRows bounds a single import
const MaxRows = 5000

var (
	ErrEmptyFile     = errors.New("CSV file is empty")
	ErrMissingHeader = errors.New("CSV header must include firstName, lastName and grade")
	ErrTooManyRows   = fmt.Errorf("CSV file exceeds %d rows", MaxRows)
)

// StudentRow is one parsed import line. Empty strings mean "not supplied".
type StudentRow struct {
	Line          int
	StudentID     string
	FirstName     string
	LastName      string
	Email         string
	DateOfBirth   string
	Grade         string
	Address       string
	ParentContact string
}

// RowError locates a problem in the input
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// headerAliases maps accepted header spellings to a canonical column
var headerAliases = map[string]string{
	"studentid":      "studentId",
	"student id":     "studentId",
	"firstname":      "firstName",
	"first name":     "firstName",
	"lastname":       "lastName",
	"last name":      "lastName",
	"email":          "email",
	"dateofbirth":    "dateOfBirth",
	"date of birth":  "dateOfBirth",
	"grade":          "grade",
	"address":        "address",
	"parentcontact":  "parentContact",
	"parent contact": "parentContact",
}

// ParseStudents reads a header-based student CSV. Unknown columns are
// ignored, blank lines are skipped and an unparsable date of birth is
// dropped rather than rejecting the row.
func ParseStudents(r io.Reader) ([]StudentRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := headerAliases[key]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	for _, required := range []string{"firstName", "lastName", "grade"} {
		if _, ok := columns[required]; !ok {
			return nil, ErrMissingHeader
		}
	}

	var rows []StudentRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line, _ := reader.FieldPos(0)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}
		if blank(record) {
			continue
		}
		if len(rows) == MaxRows {
			return nil, ErrTooManyRows
		}

		get := func(col string) string {
			i, ok := columns[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := StudentRow{
			Line:          line,
			StudentID:     get("studentId"),
			FirstName:     get("firstName"),
			LastName:      get("lastName"),
			Email:         get("email"),
			DateOfBirth:   get("dateOfBirth"),
			Grade:         get("grade"),
			Address:       get("address"),
			ParentContact: get("parentContact"),
		}
		if row.DateOfBirth != "" {
			if _, err := helpers.ParseDate(row.DateOfBirth); err != nil {
				row.DateOfBirth = ""
			}
		}
		if row.FirstName == "" || row.LastName == "" || row.Grade == "" {
			return nil, &RowError{Line: line, Err: errors.New("firstName, lastName and grade are required")}
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
