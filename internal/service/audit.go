package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// Verify checks every record against its file and lists files no record points to.
func (s *documentService) Verify(ctx context.Context) (report *model.AuditReport, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Verify")
	defer func() { endSpan(span, err) }()

	docs, err := s.repo.FindAll(ctx, repository.DocumentFilter{})
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	onDisk, err := s.store.List()
	if err != nil {
		return nil, &FileOperationError{Op: "list", Path: "uploads", Err: err}
	}

	report = &model.AuditReport{
		Documents:     make([]model.FileCheck, 0, len(docs)),
		OrphanedFiles: make([]string, 0),
	}
	recorded := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		recorded[d.FilePath] = struct{}{}
		check := model.FileCheck{
			ID:               d.ID,
			OriginalFilename: d.OriginalFilename,
			Category:         d.Category,
			FilePath:         d.FilePath,
			FileExists:       s.store.Exists(d.FilePath),
		}
		if check.FileExists {
			check.SizeOnDisk = s.store.Size(d.FilePath)
			check.SizeMatches = check.SizeOnDisk == d.FileSize
		} else {
			report.MissingFiles++
		}
		if check.FileExists && !check.SizeMatches {
			report.SizeMismatch++
		}
		report.Documents = append(report.Documents, check)
	}

	for category, names := range onDisk {
		for _, name := range names {
			rel := s.store.RelativePath(category, name)
			if _, ok := recorded[rel]; !ok {
				report.OrphanedFiles = append(report.OrphanedFiles, rel)
			}
		}
	}
	sort.Strings(report.OrphanedFiles)

	if !report.Consistent() {
		s.logger(ctx).Warn("audit_inconsistent",
			zap.Int("documents", len(report.Documents)),
			zap.Int("missing_files", report.MissingFiles),
			zap.Int("size_mismatch", report.SizeMismatch),
			zap.Int("orphaned_files", len(report.OrphanedFiles)),
		)
	}
	return report, nil
}

