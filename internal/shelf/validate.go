package shelf

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// BookInput is a registration request for a book.
type BookInput struct {
	URL         string `form:"url" validate:"required,url,max=2048"`
	Name        string `form:"name" validate:"required,max=200"`
	Catalogue   string `form:"catalogue" validate:"required,max=120"`
	Author      string `form:"author" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
}

// CatalogueInput is a registration request for a catalogue.
type CatalogueInput struct {
	URL         string `form:"url" validate:"required,url,max=2048"`
	Name        string `form:"name" validate:"required,max=120"`
	Description string `form:"description" validate:"max=2000"`
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when registration input is rejected before
// anything is sent to the ledger.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (in *BookInput) normalize() {
	in.URL = strings.TrimSpace(in.URL)
	in.Name = strings.TrimSpace(in.Name)
	in.Catalogue = strings.TrimSpace(in.Catalogue)
	in.Author = strings.TrimSpace(in.Author)
	in.Description = strings.TrimSpace(in.Description)
}

func (in *CatalogueInput) normalize() {
	in.URL = strings.TrimSpace(in.URL)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		field := fe.Field()
		var message string
		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "url":
			message = fmt.Sprintf("%s must be a valid URL", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message})
	}
	return out
}
