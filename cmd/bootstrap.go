package cmd

import (
	"fmt"
	"time"

	"vocab-loader/core/config"
	"vocab-loader/core/database"
	"vocab-loader/core/logger"
	"vocab-loader/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is what every command needs: configuration, a logger and, for commands touching
// the CDM, a database connection.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func bootstrap(connect bool) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, log: l}
	if !connect {
		return a, nil
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = db
	l.Debug("Connected to database", zap.String("driver", cfg.Database.Driver))
	return a, nil
}

// close flushes the logger and releases the database connection.
func (a *app) close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = a.log.Sync()
}

// logCounts reports the rows written by a run, per table.
func logCounts(l *zap.Logger, uow *reconcile.UnitOfWork) {
	for _, table := range uow.Tables() {
		c := uow.Counts(table)
		l.Info("Rows written",
			zap.String("run_id", uow.RunID),
			zap.String("table", table),
			zap.Int64("deleted", c.Deleted),
			zap.Int64("inserted", c.Inserted),
			zap.Int64("updated", c.Updated),
		)
	}
	total := uow.Total()
	l.Info("Run finished",
		zap.String("run_id", uow.RunID),
		zap.Int64("deleted", total.Deleted),
		zap.Int64("inserted", total.Inserted),
		zap.Int64("updated", total.Updated),
		zap.Duration("elapsed", time.Since(uow.Started)),
	)
}
