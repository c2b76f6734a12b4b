package composite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open validates the DSN for the configured dialect, opens a pool, applies
// the pool settings and pings it. The sqlite3 driver is not linked in; import
// github.com/mattn/go-sqlite3 to use it.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	return openDSN(ctx, cfg, cfg.DSN)
}

// OpenResolver opens the primary and every replica in cfg.
func OpenResolver(ctx context.Context, cfg *Config, opts ...ResolverOption) (*DBResolver, error) {
	primary, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	replicas := make([]*sql.DB, 0, len(cfg.Replicas))
	for _, dsn := range cfg.Replicas {
		replica, err := openDSN(ctx, cfg, dsn)
		if err != nil {
			primary.Close()
			for _, r := range replicas {
				r.Close()
			}
			return nil, err
		}
		replicas = append(replicas, replica)
	}

	opts = append([]ResolverOption{WithPrimary(primary), WithReplicas(replicas...)}, opts...)
	return NewDBResolver(opts...), nil
}

func openDSN(ctx context.Context, cfg *Config, dsn string) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialect := cfg.Dialect()
	if err := validateDSN(dialect, dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("composite: ping %s: %w", dialect.Name, err)
	}

	ConfigurePool(db, cfg)

	return db, nil
}

func validateDSN(dialect *Dialect, dsn string) error {
	switch dialect {
	case Dialects.PostgreSQL:
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return fmt.Errorf("composite: invalid postgres dsn: %w", err)
		}
	case Dialects.MySQL:
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return fmt.Errorf("composite: invalid mysql dsn: %w", err)
		}
	}
	return nil
}

// ConfigurePool applies the pool settings of cfg to db. Zero values leave
// the driver defaults in place.
func ConfigurePool(db *sql.DB, cfg *Config) {
	if db == nil || cfg == nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
