package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type createTaskRequest struct {
	Subject     string `json:"matkul" binding:"required,notblank"`
	Description string `json:"deskripsi" binding:"required,notblank"`
	Deadline    string `json:"deadline" binding:"omitempty,datetime=2006-01-02"`
	Priority    string `json:"prioritas" binding:"omitempty,oneof=Urgent High Medium Low"`
	Status      string `json:"status" binding:"omitempty,oneof='In Progress' 'Need Approval' Pending Complete"`
}

// updateTaskRequest is the partial form: blank subject and description keep
// the stored value.
type updateTaskRequest struct {
	Subject     string `json:"matkul"`
	Description string `json:"deskripsi"`
	Deadline    string `json:"deadline" binding:"omitempty,datetime=2006-01-02"`
	Priority    string `json:"prioritas" binding:"omitempty,oneof=Urgent High Medium Low"`
	Status      string `json:"status" binding:"omitempty,oneof='In Progress' 'Need Approval' Pending Complete"`
}

var registerOnce sync.Once

// registerValidators adds notblank to gin's validator and reports fields by
// their JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	})
}

// fieldProblems maps binding failures to a field -> message view. ok is false
// for errors that are not validation failures, e.g. malformed JSON.
func fieldProblems(err error) (problems map[string]string, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	problems = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			problems[fe.Field()] = "required"
		case "oneof":
			problems[fe.Field()] = "must be one of " + strings.Join(oneofValues(fe.Param()), ", ")
		case "datetime":
			problems[fe.Field()] = "must be a date in YYYY-MM-DD format"
		default:
			problems[fe.Field()] = "invalid"
		}
	}
	return problems, true
}

var oneofParam = regexp.MustCompile(`'[^']*'|\S+`)

func oneofValues(param string) []string {
	values := oneofParam.FindAllString(param, -1)
	for i, v := range values {
		values[i] = strings.Trim(v, "'")
	}
	return values
}
