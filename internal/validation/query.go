package validation

import (
	"strconv"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DefaultRecentLimit is the page size of the recent-documents listing.
const DefaultRecentLimit = 10

// ListParams holds raw query-string values; nil means the key was absent.
type ListParams struct {
	Category *string
	Search   *string
	Limit    *string
	Offset   *string
}

type listFields struct {
	Category *string `json:"category" validate:"omitnil,category"`
	Search   *string `json:"search" validate:"omitnil,min=1,max=200"`
}

// ParseListParams validates list query parameters and builds the repository filter.
func (val *Validator) ParseListParams(p ListParams) (repository.DocumentFilter, error) {
	in := listFields{Search: val.sanitizePtr(p.Search)}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		in.Category = &c
	}

	verr := &Error{}
	val.collect(verr, val.v.Struct(in))

	var f repository.DocumentFilter
	if p.Limit != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*p.Limit))
		if err != nil || n < 1 || n > 100 {
			verr.add("limit", "Limit must be between 1 and 100")
		}
		f.Limit = n
	}
	if p.Offset != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*p.Offset))
		if err != nil || n < 0 {
			verr.add("offset", "Offset must be a non-negative integer")
		}
		f.Offset = n
	}
	if err := verr.orNil(); err != nil {
		return repository.DocumentFilter{}, err
	}

	if in.Category != nil {
		f.Category = model.Category(*in.Category)
	}
	if in.Search != nil {
		f.Search = *in.Search
	}
	return f, nil
}

// ParseRecentLimit validates the optional limit of the recent listing.
func ParseRecentLimit(raw *string) (int, error) {
	if raw == nil {
		return DefaultRecentLimit, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil || n < 1 || n > 100 {
		return 0, &Error{Details: []FieldError{{Field: "limit", Message: "Limit must be between 1 and 100"}}}
	}
	return n, nil
}

// ParseID validates a document id path parameter.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &Error{Details: []FieldError{{Field: "id", Message: "Document ID must be a positive integer"}}}
	}
	return id, nil
}
