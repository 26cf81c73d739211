// Command docctl runs maintenance tasks against the document store:
// schema migration, file/record consistency checks and collection stats.
package main

import (
	"context"
	"database/sql"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/logger"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// env is what every subcommand runs against.
type env struct {
	log    *zap.Logger
	db     *sql.DB
	dbHost string
	svc    service.DocumentService
}

type envFactory func(ctx context.Context) (*env, func(), error)

func openEnv(ctx context.Context) (*env, func(), error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Log, cfg.Location())
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	closeAll := func() {
		database.Close(db, log)
		_ = log.Sync()
	}

	store, err := storage.NewLocal(cfg.Storage)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	svc := service.NewDocumentService(store, postgres.NewDocumentPostgres(db),
		service.WithLogger(log),
		service.WithMaxUploadBytes(cfg.Storage.MaxUploadBytes),
	)
	return &env{log: log, db: db, dbHost: cfg.Database.Host, svc: svc}, closeAll, nil
}

func main() {
	if err := newRootCmd(openEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
