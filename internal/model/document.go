package model

import "time"

// Document is the metadata record of one stored file.
// It carries no persistence tags; the repository maps columns explicitly.
type Document struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	Category         Category  `json:"category"`
	FileType         FileType  `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	FilePath         string    `json:"file_path"`
	Description      *string   `json:"description"`
	DocumentNumber   *string   `json:"document_number"`
	UploadDate       time.Time `json:"upload_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewDocument holds the fields supplied when a record is first inserted.
// Timestamps and ID are assigned by the database.
type NewDocument struct {
	Filename         string
	OriginalFilename string
	Category         Category
	FileType         FileType
	FileSize         int64
	FilePath         string
	Description      *string
	DocumentNumber   *string
}

// DocumentPatch is a partial update. A nil field is left untouched; a pointer
// to "" clears the column.
type DocumentPatch struct {
	Description    *string
	DocumentNumber *string
	Category       *Category
	FilePath       *string
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.Description == nil && p.DocumentNumber == nil && p.Category == nil && p.FilePath == nil
}

// CategoryCount is one row of the per-category statistics.
type CategoryCount struct {
	Category Category `json:"category"`
	Name     string   `json:"name"`
	Count    int      `json:"count"`
}

// Overview aggregates the whole collection.
type Overview struct {
	TotalDocuments int             `json:"total_documents"`
	TotalSizeBytes int64           `json:"total_size_bytes"`
	ByCategory     []CategoryCount `json:"by_category"`
}

// FileCheck is the audit result for one record.
type FileCheck struct {
	ID               int64    `json:"id"`
	OriginalFilename string   `json:"original_filename"`
	Category         Category `json:"category"`
	FilePath         string   `json:"file_path"`
	FileExists       bool     `json:"file_exists"`
	SizeOnDisk       int64    `json:"size_on_disk"`
	SizeMatches      bool     `json:"size_matches"`
}

// AuditReport compares the records with what is on disk.
type AuditReport struct {
	Documents     []FileCheck `json:"documents"`
	MissingFiles  int         `json:"missing_files"`
	SizeMismatch  int         `json:"size_mismatch"`
	OrphanedFiles []string    `json:"orphaned_files"`
}

// Consistent reports whether every record has its file and no extra files exist.
func (r *AuditReport) Consistent() bool {
	return r.MissingFiles == 0 && r.SizeMismatch == 0 && len(r.OrphanedFiles) == 0
}
