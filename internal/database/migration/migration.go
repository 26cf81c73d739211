package migration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"docvault/internal/model"
)

type migrationStep struct {
	Name string
	SQL  string
}

func steps() []migrationStep {
	return []migrationStep{
		{
			Name: "create_table_documents",
			SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                BIGSERIAL    PRIMARY KEY,
  filename          VARCHAR(255) NOT NULL,
  original_filename VARCHAR(255) NOT NULL,
  category          VARCHAR(50)  NOT NULL CHECK (category IN (` + categoryList() + `)),
  file_type         VARCHAR(10)  NOT NULL,
  file_size         BIGINT       NOT NULL CHECK (file_size >= 0),
  file_path         VARCHAR(500) NOT NULL,
  description       TEXT,
  document_number   VARCHAR(100),
  upload_date       TIMESTAMPTZ  NOT NULL DEFAULT now(),
  created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_index_documents_category",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (category);`,
		},
		{
			Name: "create_index_documents_upload_date",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_upload_date ON documents (upload_date);`,
		},
		{
			Name: "create_index_documents_filename",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents (filename);`,
		},
		{
			Name: "create_index_documents_original_filename",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_original_filename ON documents (original_filename);`,
		},
	}
}

func categoryList() string {
	cats := model.Categories()
	quoted := make([]string, len(cats))
	for i, c := range cats {
		quoted[i] = "'" + string(c) + "'"
	}
	return strings.Join(quoted, ", ")
}

// EnsureMigrated creates the documents table when the sentinel check finds it
// absent, then ensures every index. Index steps always run, so a run that
// failed after creating the table is completed on the next start.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))

	log.Info("db_migration_check")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass('public.documents') IS NOT NULL").Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	pending := steps()
	if exists {
		log.Info("db_migration_skip",
			zap.String("migration_step", pending[0].Name),
			zap.String("reason", "table already exists"),
		)
		pending = pending[1:]
	}

	log.Info("db_migration_start", zap.Int("steps", len(pending)))

	for _, step := range pending {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success", zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
