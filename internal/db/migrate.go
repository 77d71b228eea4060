package db

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "schema_migrations"

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies pending migrations, or rolls back the given number of
// steps when down is set. It returns how many migrations ran.
func Migrate(pool *pgxpool.Pool, down bool, steps int) (int, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	migrate.SetTable(migrationTable)

	direction := migrate.Up
	if down {
		direction = migrate.Down
		if steps <= 0 {
			steps = 1
		}
	}

	n, err := migrate.ExecMax(sqlDB, "postgres", migrationSource(), direction, steps)
	if err != nil {
		return n, fmt.Errorf("run migrations: %w", err)
	}

	return n, nil
}
