// Package validation checks and normalises user input before it reaches the
// service layer. Every function collects all violations instead of stopping
// at the first one.
package validation

import (
	"fmt"
	"html"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"docvault/internal/model"
)

// DefaultMaxUploadBytes is the upload ceiling used when none is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// FieldError is a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error carries every violation found in one input.
type Error struct {
	Details []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Details))
	for i, d := range e.Details {
		msgs[i] = d.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) add(field, msg string) {
	e.Details = append(e.Details, FieldError{Field: field, Message: msg})
}

func (e *Error) orNil() error {
	if e == nil || len(e.Details) == 0 {
		return nil
	}
	return e
}

// Validator is safe for concurrent use.
type Validator struct {
	v        *validator.Validate
	policy   *bluemonday.Policy
	maxBytes int64
}

// New builds a Validator enforcing maxUploadBytes; a non-positive value falls
// back to DefaultMaxUploadBytes.
func New(maxUploadBytes int64) *Validator {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	})
	return &Validator{v: v, policy: bluemonday.StrictPolicy(), maxBytes: maxUploadBytes}
}

// MaxUploadBytes returns the configured upload ceiling.
func (val *Validator) MaxUploadBytes() int64 { return val.maxBytes }

// Sanitize trims s and strips any markup, leaving plain text.
func (val *Validator) Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(val.policy.Sanitize(s)))
}

func (val *Validator) sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := val.Sanitize(*s)
	return &out
}

func categoryMessage() string {
	cats := model.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return "Category must be one of: " + strings.Join(names, ", ")
}

var fieldMessages = map[string]string{
	"description":     "Description must not exceed 1000 characters",
	"document_number": "Document number must not exceed 100 characters",
	"search":          "Search term must be between 1 and 200 characters",
	"file_type":       "Invalid file type. Only PDF, JPG, and PNG files are allowed",
	"file_extension":  "Invalid file extension. Only .pdf, .jpg, .jpeg and .png are allowed",
}

// collect converts validator output into FieldErrors on dst.
func (val *Validator) collect(dst *Error, err error) {
	if err == nil {
		return
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		dst.add("", err.Error())
		return
	}
	for _, fe := range verrs {
		field := fe.Field()
		switch {
		case fe.Tag() == "category":
			dst.add(field, categoryMessage())
		case fe.Tag() == "required" && field == "category":
			dst.add(field, "Category is required")
		case fe.Tag() == "required" && field == "file":
			dst.add(field, "No file uploaded")
		case fieldMessages[field] != "":
			dst.add(field, fieldMessages[field])
		default:
			dst.add(field, fmt.Sprintf("%s failed on %s", field, fe.Tag()))
		}
	}
}

// FileHeader describes an uploaded file as declared by the client.
type FileHeader struct {
	Name        string
	ContentType string
	Size        int64
}

// UploadForm is the raw multipart input of an upload.
type UploadForm struct {
	File           *FileHeader
	Category       string
	Description    string
	DocumentNumber string
}

// Upload is a validated and normalised UploadForm.
type Upload struct {
	OriginalFilename string
	FileType         model.FileType
	Category         model.Category
	Description      *string
	DocumentNumber   *string
}

type uploadFile struct {
	ContentType string `json:"file_type" validate:"oneof=application/pdf image/jpeg image/jpg image/png"`
	Extension   string `json:"file_extension" validate:"oneof=pdf jpg jpeg png"`
}

type uploadFields struct {
	File           *uploadFile `json:"file" validate:"required"`
	Category       string      `json:"category" validate:"required,category"`
	Description    string      `json:"description" validate:"max=1000"`
	DocumentNumber string      `json:"document_number" validate:"max=100"`
}

// ValidateUpload checks an upload before any side effect takes place.
func (val *Validator) ValidateUpload(f UploadForm) (*Upload, error) {
	in := uploadFields{
		Category:       strings.TrimSpace(f.Category),
		Description:    val.Sanitize(f.Description),
		DocumentNumber: val.Sanitize(f.DocumentNumber),
	}
	if f.File != nil {
		ct, _, _ := strings.Cut(f.File.ContentType, ";")
		in.File = &uploadFile{
			ContentType: strings.ToLower(strings.TrimSpace(ct)),
			Extension:   strings.TrimPrefix(strings.ToLower(filepath.Ext(f.File.Name)), "."),
		}
	}

	verr := &Error{}
	val.collect(verr, val.v.Struct(in))
	if f.File != nil {
		if f.File.Size > val.maxBytes {
			verr.add("file_size", fmt.Sprintf("File size exceeds %s limit", humanBytes(val.maxBytes)))
		}
		if f.File.Size < 0 {
			verr.add("file_size", "File size must not be negative")
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	ft, err := model.FileTypeFromName(f.File.Name)
	if err != nil {
		return nil, &Error{Details: []FieldError{{Field: "file_extension", Message: fieldMessages["file_extension"]}}}
	}
	return &Upload{
		OriginalFilename: filepath.Base(f.File.Name),
		FileType:         ft,
		Category:         model.Category(in.Category),
		Description:      optional(in.Description),
		DocumentNumber:   optional(in.DocumentNumber),
	}, nil
}

// RejectContent reports staged bytes whose sniffed type is not accepted.
func RejectContent(detected string) error {
	for _, m := range model.AllowedMIMETypes {
		if m == detected {
			return nil
		}
	}
	return &Error{Details: []FieldError{{
		Field:   "file_type",
		Message: fmt.Sprintf("File content (%s) is not a PDF, JPG or PNG", detected),
	}}}
}

// UpdateForm is a partial update; nil fields are absent.
type UpdateForm struct {
	Category       *string `json:"category"`
	Description    *string `json:"description"`
	DocumentNumber *string `json:"document_number"`
}

type updateFields struct {
	Category       *string `json:"category" validate:"omitnil,category"`
	Description    *string `json:"description" validate:"omitnil,max=1000"`
	DocumentNumber *string `json:"document_number" validate:"omitnil,max=100"`
}

// ValidateUpdate checks the present fields and returns the resulting patch.
// A present but empty description or document number clears it.
func (val *Validator) ValidateUpdate(f UpdateForm) (model.DocumentPatch, error) {
	in := updateFields{
		Description:    val.sanitizePtr(f.Description),
		DocumentNumber: val.sanitizePtr(f.DocumentNumber),
	}
	if f.Category != nil {
		c := strings.TrimSpace(*f.Category)
		in.Category = &c
	}

	verr := &Error{}
	val.collect(verr, val.v.Struct(in))
	if err := verr.orNil(); err != nil {
		return model.DocumentPatch{}, err
	}

	patch := model.DocumentPatch{
		Description:    in.Description,
		DocumentNumber: in.DocumentNumber,
	}
	if in.Category != nil {
		c := model.Category(*in.Category)
		patch.Category = &c
	}
	return patch, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func humanBytes(n int64) string {
	if n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}
