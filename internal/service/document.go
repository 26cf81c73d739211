package service

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/validation"
)

var tracer = otel.Tracer("docvault/internal/service")

// DocumentListResult is the service-level DTO for a filtered page of documents.
type DocumentListResult struct {
	Items  []model.Document `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// UploadFile is the file part of an upload.
type UploadFile struct {
	Reader      io.Reader
	Name        string
	ContentType string
	Size        int64
}

// UploadInput is an upload request as received from the client.
type UploadInput struct {
	File           *UploadFile
	Category       string
	Description    string
	DocumentNumber string
}

// UpdateInput is a partial metadata update; nil fields are left untouched.
type UpdateInput struct {
	Category       *string `json:"category"`
	Description    *string `json:"description"`
	DocumentNumber *string `json:"document_number"`
}

// DocumentFile is an opened stored file. Size is what is on disk, which
// differs from Document.FileSize only when the two have drifted apart.
type DocumentFile struct {
	Document *model.Document
	Body     io.ReadCloser
	Size     int64
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload validates the input, stages and places the file in its category
	// directory, then records it. Any failure leaves no file and no record behind.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns documents matching the query parameters and the total match count.
	List(ctx context.Context, params validation.ListParams) (*DocumentListResult, error)

	// Recent returns the most recently uploaded documents.
	Recent(ctx context.Context, limit int) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// Update changes metadata, moving the file first when the category changes.
	Update(ctx context.Context, id int64, in UpdateInput) (*model.Document, error)

	// Delete removes the file and then the record.
	Delete(ctx context.Context, id int64) error

	// Open returns the document with a reader over its file content.
	// The caller must close Body.
	Open(ctx context.Context, id int64) (*DocumentFile, error)

	// CategoryStats counts documents per category.
	CategoryStats(ctx context.Context) ([]model.CategoryCount, error)

	// Overview aggregates the collection.
	Overview(ctx context.Context) (*model.Overview, error)

	// Verify compares the records with the files on disk.
	Verify(ctx context.Context) (*model.AuditReport, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.FileStore
	repo      repository.DocumentRepository
	validator *validation.Validator
	log       *zap.Logger
	metrics   *Metrics
}

// Option configures a documentService.
type Option func(*documentService)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(s *documentService) { s.log = l }
}

// WithMetrics enables the upload and inconsistency counters.
func WithMetrics(m *Metrics) Option {
	return func(s *documentService) { s.metrics = m }
}

// WithMaxUploadBytes overrides the upload size ceiling.
func WithMaxUploadBytes(n int64) Option {
	return func(s *documentService) { s.validator = validation.New(n) }
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.FileStore, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{
		store:     store,
		repo:      repo,
		validator: validation.New(0),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log).With(zap.String("component", "document_service"))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer func() { endSpan(span, err) }()
	log := s.logger(ctx)

	form := validation.UploadForm{
		Category:       in.Category,
		Description:    in.Description,
		DocumentNumber: in.DocumentNumber,
	}
	if in.File != nil && in.File.Reader != nil {
		form.File = &validation.FileHeader{Name: in.File.Name, ContentType: in.File.ContentType, Size: in.File.Size}
	}
	up, err := s.validator.ValidateUpload(form)
	if err != nil {
		s.metrics.upload("rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("document.category", string(up.Category)))

	filename := s.store.GenerateFilename(up.OriginalFilename)
	staged, size, err := s.store.Stage(in.File.Reader, filename, s.validator.MaxUploadBytes())
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			s.metrics.upload("rejected")
			return nil, &validation.Error{Details: []validation.FieldError{{
				Field:   "file_size",
				Message: "File size exceeds the upload limit",
			}}}
		}
		s.metrics.upload("failed")
		return nil, &FileOperationError{Op: "stage", Path: filename, Err: err}
	}

	detected, err := s.store.DetectContentType(staged)
	if err != nil {
		s.discard(log, staged)
		s.metrics.upload("failed")
		return nil, &FileOperationError{Op: "detect", Path: staged, Err: err}
	}
	if err := validation.RejectContent(detected); err != nil {
		s.discard(log, staged)
		s.metrics.upload("rejected")
		log.Info("upload_content_rejected",
			zap.String("original_filename", up.OriginalFilename),
			zap.String("declared_type", in.File.ContentType),
			zap.String("detected_type", detected),
		)
		return nil, err
	}

	rel, err := s.store.Place(staged, up.Category, filename)
	if err != nil {
		s.discard(log, staged)
		s.metrics.upload("failed")
		return nil, &FileOperationError{Op: "place", Path: s.store.RelativePath(up.Category, filename), Err: err}
	}

	doc, err = s.repo.Create(ctx, &model.NewDocument{
		Filename:         filename,
		OriginalFilename: up.OriginalFilename,
		Category:         up.Category,
		FileType:         up.FileType,
		FileSize:         size,
		FilePath:         rel,
		Description:      up.Description,
		DocumentNumber:   up.DocumentNumber,
	})
	if err != nil {
		s.metrics.upload("failed")
		perr := &PersistenceError{Op: "create", Err: err}
		if _, delErr := s.store.Delete(rel); delErr != nil {
			s.metrics.inconsistency("upload")
			log.Warn("orphaned_file",
				zap.String("event", "file_record_inconsistency"),
				zap.String("operation", "upload"),
				zap.String("file_path", rel),
				zap.NamedError("persist_error", err),
				zap.NamedError("cleanup_error", delErr),
			)
			return nil, errors.Join(perr, &FileOperationError{Op: "cleanup", Path: rel, Err: delErr})
		}
		return nil, perr
	}

	s.metrics.upload("success")
	log.Info("document_uploaded",
		zap.Int64("document_id", doc.ID),
		zap.String("category", string(doc.Category)),
		zap.String("file_path", doc.FilePath),
		zap.Int64("file_size", doc.FileSize),
	)
	return doc, nil
}

func (s *documentService) discard(log *zap.Logger, staged string) {
	if err := s.store.Discard(staged); err != nil {
		log.Warn("staged_file_discard_failed", zap.String("path", staged), zap.Error(err))
	}
}

// List returns a filtered page of documents plus the total number of matches.
func (s *documentService) List(ctx context.Context, params validation.ListParams) (res *DocumentListResult, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.List")
	defer func() { endSpan(span, err) }()

	f, err := s.validator.ParseListParams(params)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, &PersistenceError{Op: "count", Err: err}
	}
	return &DocumentListResult{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *documentService) Recent(ctx context.Context, limit int) (docs []model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Recent")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = validation.DefaultRecentLimit
	}
	docs, err = s.repo.FindAll(ctx, repository.DocumentFilter{Limit: limit})
	if err != nil {
		return nil, &PersistenceError{Op: "recent", Err: err}
	}
	return docs, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id int64) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()
	return s.find(ctx, id)
}

func (s *documentService) find(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "find", Err: err}
	}
	return doc, nil
}

// Update moves the file before persisting a category change. A failed move
// aborts the update; a failed persist after a successful move is reported as
// an inconsistency and left for an operator to reconcile.
func (s *documentService) Update(ctx context.Context, id int64, in UpdateInput) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Update", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()
	log := s.logger(ctx).With(zap.Int64("document_id", id))

	patch, err := s.validator.ValidateUpdate(validation.UpdateForm{
		Category:       in.Category,
		Description:    in.Description,
		DocumentNumber: in.DocumentNumber,
	})
	if err != nil {
		return nil, err
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	moved := false
	if patch.Category != nil && *patch.Category != current.Category {
		newCategory := *patch.Category
		ok, err := s.store.Move(current.Category, newCategory, current.Filename)
		if err != nil {
			return nil, &FileOperationError{Op: "move", Path: current.FilePath, Err: err}
		}
		if !ok {
			return nil, &FileOperationError{Op: "move", Path: current.FilePath, Err: os.ErrNotExist}
		}
		newPath := s.store.RelativePath(newCategory, current.Filename)
		patch.FilePath = &newPath
		moved = true
		log.Info("document_file_moved",
			zap.String("from", current.FilePath),
			zap.String("to", newPath),
		)
	} else {
		patch.Category = nil
	}

	doc, err = s.repo.Update(ctx, id, patch)
	if err != nil {
		if moved {
			s.metrics.inconsistency("update")
			log.Warn("file_record_inconsistency",
				zap.String("event", "file_record_inconsistency"),
				zap.String("operation", "update"),
				zap.String("recorded_path", current.FilePath),
				zap.String("actual_path", *patch.FilePath),
				zap.Error(err),
			)
		}
		if errors.Is(err, repository.ErrNotFound) && !moved {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "update", Err: err}
	}
	return doc, nil
}

// Delete removes the file, then the record. A file that is already gone is
// logged and skipped so the record can still be removed.
func (s *documentService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Delete", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()
	log := s.logger(ctx).With(zap.Int64("document_id", id))

	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.store.Delete(doc.FilePath)
	if err != nil {
		return &FileOperationError{Op: "delete", Path: doc.FilePath, Err: err}
	}
	if !removed {
		log.Warn("document_file_missing", zap.String("file_path", doc.FilePath))
	}

	ok, err := s.repo.Delete(ctx, id)
	if err == nil && !ok {
		err = errors.New("no row deleted")
	}
	if err != nil {
		if removed {
			s.metrics.inconsistency("delete")
			log.Warn("file_record_inconsistency",
				zap.String("event", "file_record_inconsistency"),
				zap.String("operation", "delete"),
				zap.String("recorded_path", doc.FilePath),
				zap.Error(err),
			)
		}
		return &PersistenceError{Op: "delete", Err: err}
	}

	log.Info("document_deleted", zap.String("file_path", doc.FilePath))
	return nil
}

func (s *documentService) Open(ctx context.Context, id int64) (file *DocumentFile, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Open", trace.WithAttributes(attribute.Int64("document.id", id)))
	defer func() { endSpan(span, err) }()

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, size, err := s.store.Open(doc.FilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger(ctx).Warn("document_file_missing",
				zap.Int64("document_id", id),
				zap.String("file_path", doc.FilePath),
			)
			return nil, ErrNotFound
		}
		return nil, &FileOperationError{Op: "open", Path: doc.FilePath, Err: err}
	}
	if size != doc.FileSize {
		s.metrics.inconsistency("download")
		s.logger(ctx).Warn("file_record_inconsistency",
			zap.String("event", "file_record_inconsistency"),
			zap.String("operation", "download"),
			zap.Int64("document_id", id),
			zap.String("file_path", doc.FilePath),
			zap.Int64("recorded_size", doc.FileSize),
			zap.Int64("actual_size", size),
		)
	}
	return &DocumentFile{Document: doc, Body: rc, Size: size}, nil
}

func (s *documentService) CategoryStats(ctx context.Context) (stats []model.CategoryCount, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.CategoryStats")
	defer func() { endSpan(span, err) }()

	stats, err = s.repo.CategoryStats(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "category_stats", Err: err}
	}
	return stats, nil
}

func (s *documentService) Overview(ctx context.Context) (o *model.Overview, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Overview")
	defer func() { endSpan(span, err) }()

	o, err = s.repo.OverviewStats(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "overview", Err: err}
	}
	o.ByCategory, err = s.repo.CategoryStats(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "category_stats", Err: err}
	}
	return o, nil
}
