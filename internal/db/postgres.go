package db

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ignatzorin/bharatalert-backend/internal/logger"
)

// migrationsLockKey используется pg_advisory_xact_lock, чтобы две реплики
// не применяли миграции одновременно.
const migrationsLockKey = 7_310_442_118

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	// Нагрузка модерации небольшая, длинные транзакции держат FOR UPDATE.
	conn.SetMaxOpenConns(30)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)
	conn.SetConnMaxIdleTime(time.Minute)

	return conn, nil
}

// RunMigrations применяет SQL файлы из каталога по порядку имён.
// Уже применённые файлы пропускаются.
func RunMigrations(ctx context.Context, conn *sqlx.DB, migrationsDir string) error {
	log := logger.Component("migrations")

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("postgres: не удалось инициализировать таблицу миграций: %w", err)
	}

	names, err := migrationFiles(migrationsDir)
	if err != nil {
		return err
	}

	for _, name := range names {
		applied, err := applyMigration(ctx, conn, migrationsDir, name)
		if err != nil {
			return err
		}
		if applied {
			log.WithField("migration", name).Info("миграция применена")
		}
	}
	return nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось прочитать каталог миграций: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// applyMigration выполняет файл в транзакции под advisory lock.
// Возвращает false, если миграция уже была применена.
func applyMigration(ctx context.Context, conn *sqlx.DB, dir, name string) (bool, error) {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("postgres: не удалось начать транзакцию для миграции %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationsLockKey); err != nil {
		return false, fmt.Errorf("postgres: не удалось взять блокировку миграций: %w", err)
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, name); err != nil {
		return false, fmt.Errorf("postgres: не удалось проверить статус миграции %s: %w", name, err)
	}
	if exists {
		return false, nil
	}

	sqlBytes, err := fs.ReadFile(os.DirFS(dir), name)
	if err != nil {
		return false, fmt.Errorf("postgres: не удалось прочитать миграцию %s: %w", filepath.Join(dir, name), err)
	}

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return false, fmt.Errorf("postgres: не удалось выполнить миграцию %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, fmt.Errorf("postgres: не удалось отметить миграцию %s как выполненную: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("postgres: не удалось зафиксировать миграцию %s: %w", name, err)
	}
	return true, nil
}
