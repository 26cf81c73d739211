package model

import "fmt"

// Category classifies a document and names its storage subdirectory.
type Category string

const (
	CategoryPersonalIDs     Category = "personal-ids"
	CategoryEducationalDocs Category = "educational-docs"
	CategoryWorkExperience  Category = "work-experience"
	CategoryResumes         Category = "resumes"
	CategoryInvoices        Category = "invoices"
	CategoryInsurance       Category = "insurance"
	CategoryBankStatements  Category = "bank-statements"
	CategoryOthers          Category = "others"
)

var categoryNames = map[Category]string{
	CategoryPersonalIDs:     "Personal IDs",
	CategoryEducationalDocs: "Educational Docs",
	CategoryWorkExperience:  "Work Experience Letters",
	CategoryResumes:         "Resumes",
	CategoryInvoices:        "Online Purchase Invoices",
	CategoryInsurance:       "Insurance Docs",
	CategoryBankStatements:  "Bank Statements",
	CategoryOthers:          "Others",
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryPersonalIDs,
		CategoryEducationalDocs,
		CategoryWorkExperience,
		CategoryResumes,
		CategoryInvoices,
		CategoryInsurance,
		CategoryBankStatements,
		CategoryOthers,
	}
}

// ParseCategory converts s into a Category, rejecting anything outside the enumeration.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// DisplayName is the human-readable label, or the raw value for unknown categories.
func (c Category) DisplayName() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return string(c)
}

func (c Category) String() string { return string(c) }
