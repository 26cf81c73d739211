package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = `id, filename, original_filename, category, file_type, file_size, file_path,
		description, document_number, upload_date, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d              model.Document
		category       string
		fileType       string
		description    sql.NullString
		documentNumber sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.Filename,
		&d.OriginalFilename,
		&category,
		&fileType,
		&d.FileSize,
		&d.FilePath,
		&description,
		&documentNumber,
		&d.UploadDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.Category = model.Category(category)
	d.FileType = model.FileType(fileType)
	if description.Valid {
		d.Description = &description.String
	}
	if documentNumber.Valid {
		d.DocumentNumber = &documentNumber.String
	}
	return &d, nil
}

// nullableString stores nil and "" as NULL.
func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
// Category and search are ANDed; the three search columns are ORed.
func buildWhere(f repository.DocumentFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, string(f.Category))
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		conds = append(conds, fmt.Sprintf(
			`(original_filename ILIKE $%[1]d ESCAPE '\' OR description ILIKE $%[1]d ESCAPE '\' OR document_number ILIKE $%[1]d ESCAPE '\')`,
			len(args),
		))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.NewDocument) (*model.Document, error) {
	q := `
		INSERT INTO documents (filename, original_filename, category, file_type, file_size, file_path, description, document_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.Filename,
		doc.OriginalFilename,
		string(doc.Category),
		string(doc.FileType),
		doc.FileSize,
		doc.FilePath,
		nullableString(doc.Description),
		nullableString(doc.DocumentNumber),
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// FindAll returns filtered documents ordered by upload date, newest first.
// The id tiebreak keeps pages stable when upload dates collide.
func (r *DocumentPostgres) FindAll(ctx context.Context, f repository.DocumentFilter) ([]model.Document, error) {
	where, args := buildWhere(f)
	q := `SELECT ` + documentColumns + ` FROM documents` + where + ` ORDER BY upload_date DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of rows matching the filter.
func (r *DocumentPostgres) Count(ctx context.Context, f repository.DocumentFilter) (int, error) {
	where, args := buildWhere(f)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Update applies a partial update and returns the stored row.
func (r *DocumentPostgres) Update(ctx context.Context, id int64, patch model.DocumentPatch) (*model.Document, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Description != nil {
		set("description", nullableString(patch.Description))
	}
	if patch.DocumentNumber != nil {
		set("document_number", nullableString(patch.DocumentNumber))
	}
	if patch.Category != nil {
		set("category", string(*patch.Category))
	}
	if patch.FilePath != nil {
		set("file_path", *patch.FilePath)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	q := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), documentColumns)
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Delete removes a document by ID and reports whether a row was affected.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CategoryStats counts documents per category, largest first.
func (r *DocumentPostgres) CategoryStats(ctx context.Context) ([]model.CategoryCount, error) {
	const q = `
		SELECT category, COUNT(*) AS count
		FROM documents
		GROUP BY category
		ORDER BY count DESC, category ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]model.CategoryCount, 0)
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		c := model.Category(category)
		stats = append(stats, model.CategoryCount{Category: c, Name: c.DisplayName(), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// OverviewStats returns the document count and the sum of file sizes.
func (r *DocumentPostgres) OverviewStats(ctx context.Context) (*model.Overview, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(file_size), 0)::BIGINT FROM documents`
	var o model.Overview
	if err := r.db.QueryRowContext(ctx, q).Scan(&o.TotalDocuments, &o.TotalSizeBytes); err != nil {
		return nil, err
	}
	return &o, nil
}
