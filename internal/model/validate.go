package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

const (
	notBlankTag  = "notblank"
	answerKeyTag = "answerkey"
	uniqueKeyTag = "uniquekeys"
	roleTag      = "role"
)

func init() {
	validate = validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(roleTag, roleValidation)
	validate.RegisterStructValidation(questionStructValidation, Question{})
}

// Validate checks v against its validate tags and returns a *ValidationError
// listing every failed field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{
			Field: fieldPath(fe.Namespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return NewValidationError(fmt.Errorf("invalid %s", strings.ToLower(reflect.TypeOf(v).Name())), flds...)
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func roleValidation(fl validator.FieldLevel) bool {
	if r, ok := fl.Field().Interface().(Role); ok {
		return r.Valid()
	}
	return false
}

// questionStructValidation requires unique option keys and an answer that
// names one of them.
func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(Question)
	if !ok {
		return
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if seen[o.Key] {
			sl.ReportError(q.Options, "options", "Options", uniqueKeyTag, "")
			return
		}
		seen[o.Key] = true
	}
	if q.Answer != "" && !seen[q.Answer] {
		sl.ReportError(q.Answer, "answer", "Answer", answerKeyTag, "")
	}
}
