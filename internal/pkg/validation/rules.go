package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// GradePattern matches a single grade label such as "6" or "KG"
	GradePattern = `^[A-Za-z0-9][A-Za-z0-9 \-]{0,19}$`

	// MaxGrades bounds the applicable grade list of a drive
	MaxGrades = 20
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Grade *regexp.Regexp
}{
	Grade: regexp.MustCompile(GradePattern),
}

var registerOnce sync.Once

// Register installs the custom rules on gin's validator and makes JSON
// binding reject unknown fields. It is safe to call more than once.
func Register() error {
	var err error
	registerOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = RegisterRules(v)
	})
	return err
}

// RegisterRules adds the portal's rules to v
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("grades", validateGrades); err != nil {
		return err
	}
	return v.RegisterValidation("notblank", validateNotBlank)
}

// ValidGradeList reports whether list is a non-empty comma-separated grade list
func ValidGradeList(list string) bool {
	parts := strings.Split(list, ",")
	count := 0
	for _, p := range parts {
		g := strings.TrimSpace(p)
		if g == "" {
			continue
		}
		if !CompiledPatterns.Grade.MatchString(g) {
			return false
		}
		count++
	}
	return count > 0 && count <= MaxGrades
}

func validateGrades(fl validator.FieldLevel) bool {
	return ValidGradeList(fl.Field().String())
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
