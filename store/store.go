package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/resilience"
)

// Store tracks workflow runs in a SQLite database.
type Store struct {
	db     *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open opens the run store, retrying with backoff, and runs auto-migration.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.NewDefault("flowkit")
	}
	log = log.WithComponent("store")

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperrors.StoreError(fmt.Errorf("create store directory %s: %w", dir, err))
			}
		}
	}

	backoff, _ := time.ParseDuration(cfg.RetryBackoff)

	var db *gorm.DB
	open := func() error {
		var err error
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		// SQLite allows one writer; a single connection also keeps
		// :memory: databases from splitting across the pool.
		sqlDB.SetMaxOpenConns(1)
		return sqlDB.PingContext(ctx)
	}

	err := resilience.RetryFunc(ctx, resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries,
		InitialBackoff: backoff,
		RetryIf: func(err error) bool {
			return resilience.DefaultRetryIf(err) && apperrors.IsRetryable(err)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			log.Warn("Store open failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": wait.String(),
			})
		},
	}, open)
	if err != nil {
		return nil, apperrors.StoreError(fmt.Errorf("open %s after %d attempts: %w", cfg.Path, cfg.MaxRetries, err))
	}

	s := &Store{db: db, log: log, cfg: cfg}
	if err := s.AutoMigrate(&WorkflowRun{}); err != nil {
		return nil, err
	}

	log.Debug("Run store opened", map[string]interface{}{"path": cfg.Path})
	return s, nil
}

// Close closes the underlying connection pool. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.closed = true
	return sqlDB.Close()
}

// PingContext verifies the store is reachable, respecting the context.
func (s *Store) PingContext(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to the given context.
func (s *Store) WithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// AutoMigrate runs GORM auto-migration for the given models.
func (s *Store) AutoMigrate(models ...interface{}) error {
	for _, model := range models {
		if err := s.db.AutoMigrate(model); err != nil {
			return apperrors.StoreError(fmt.Errorf("migrate %T: %w", model, err))
		}
	}
	return nil
}

// TransactionFunc defines a function that runs within a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction executes fn within a transaction with panic recovery.
func (s *Store) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperrors.StoreError(fmt.Errorf("begin transaction: %w", tx.Error))
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			s.log.Error("Transaction rolled back due to panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return apperrors.StoreError(fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr))
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return apperrors.StoreError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// CheckHealth reports store reachability (implements observability.HealthChecker).
func (s *Store) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{
		Name:    "store",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"path": s.cfg.Path},
	}
	if err := s.PingContext(ctx); err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
	}
	return h
}

// --- GORM logger adapter ---

// parseLogLevel converts a string log level to GORM's LogLevel.
func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Info
	}
}

type gormLoggerAdapter struct {
	log           *logger.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(log *logger.Logger, slowThreshold time.Duration, logLevel gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{
		log:           log.WithComponent("gorm"),
		logLevel:      logLevel,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{log: l.log, logLevel: level, slowThreshold: l.slowThreshold}
}

func (l *gormLoggerAdapter) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		l.log.Error("Query error", map[string]interface{}{
			"sql": sql, "duration": elapsed.String(), "rows": rows, "error": err.Error(),
		})
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		l.log.Warn("Slow query", map[string]interface{}{
			"sql": sql, "duration": elapsed.String(), "rows": rows,
		})
	case l.logLevel >= gormlogger.Info:
		l.log.Debug("Query", map[string]interface{}{
			"sql": sql, "duration": elapsed.String(), "rows": rows,
		})
	}
}
