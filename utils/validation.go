package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mohitmourya42infinite/buyer-lead-intake/models"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// Validate is the shared validator instance. main wires it as app.Validator
// so ctx.ReadJSON validates request payloads; the import path calls
// ValidateStruct on it directly.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report errors under json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(buyerInputStructLevel, models.BuyerInput{})

	return v
}

func buyerInputStructLevel(sl validator.StructLevel) {
	input := sl.Current().Interface().(models.BuyerInput)

	// report under json names so cross-field failures match the tag-based ones
	if input.Phone != "" && !phonePattern.MatchString(input.Phone) {
		sl.ReportError(input.Phone, "phone", "Phone", "phone", "")
	}
	if (input.PropertyType == "Apartment" || input.PropertyType == "Villa") && input.BHK == "" {
		sl.ReportError(input.BHK, "bhk", "BHK", "bhk_required", "")
	}
	if input.BudgetMin != nil && input.BudgetMax != nil && *input.BudgetMax < *input.BudgetMin {
		sl.ReportError(input.BudgetMax, "budgetMax", "BudgetMax", "budget_order", "")
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "phone":
		return "must be 10-15 digits"
	case "bhk_required":
		return "BHK is required for Apartment/Villa"
	case "budget_order":
		return "Max budget must be >= Min budget"
	default:
		return "is invalid"
	}
}

func fieldErrors(verrs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = fe.StructField()
		}
		out = append(out, FieldError{Field: name, Message: fieldMessage(fe)})
	}
	return out
}

// ValidateStruct runs the shared validator and renders failures as
// field-path + message pairs. Returns nil when the value is valid.
func ValidateStruct(value interface{}) []FieldError {
	err := Validate.Struct(value)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fieldErrors(verrs)
	}
	return []FieldError{{Field: "", Message: err.Error()}}
}

// JoinFieldErrors flattens a field error list into a single "field: message;
// ..." string, the shape import row errors are reported in.
func JoinFieldErrors(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Field == "" {
			parts = append(parts, e.Message)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// HandleValidationErrors turns a ReadJSON failure into a structured 400
// response: per-field errors for validator failures, a generic message for
// malformed payloads.
func HandleValidationErrors(err error, ctx iris.Context) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"errors": fieldErrors(verrs)})
		return
	}
	CreateError(iris.StatusBadRequest, "Validation Error", "invalid request payload", ctx)
}
