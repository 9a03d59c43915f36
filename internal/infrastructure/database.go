package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"chatrelay/internal/config"
	"chatrelay/internal/interfaces"

	"go.uber.org/zap"
)

var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// ConnectionError is returned when the startup connection attempt fails.
// Callers decide whether it is fatal.
type ConnectionError struct {
	Driver string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s database at %s: %v", e.Driver, redact(e.Target), e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ConnectionTarget joins the base URI and the database name with a path separator.
func ConnectionTarget(cfg config.DatabaseConfig) string {
	return strings.TrimSuffix(cfg.URI, "/") + "/" + cfg.Name
}

// ConnectDatabase makes exactly one attempt to reach the configured database.
// The provider is chosen from the URI scheme. No retry.
func ConnectDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (interfaces.Database, error) {
	target := ConnectionTarget(cfg)
	driver := driverFor(cfg.URI)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	var (
		db  interfaces.Database
		err error
	)
	switch driver {
	case "mongodb":
		db, err = NewMongoStore(ctx, target, cfg.Name)
	case "postgres":
		db, err = NewPostgresStore(ctx, target)
	case "sqlite":
		db, err = NewSQLiteStore(ctx, strings.TrimPrefix(target, "sqlite://"))
	default:
		driver = "unknown"
		err = ErrUnsupportedScheme
	}
	if err != nil {
		return nil, &ConnectionError{Driver: driver, Target: target, Err: err}
	}

	logger.Info("database connected",
		zap.String("driver", driver),
		zap.String("database", cfg.Name),
		zap.String("target", redact(target)))
	return db, nil
}

func driverFor(uri string) string {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return "mongodb"
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(uri, "sqlite://"):
		return "sqlite"
	}
	return ""
}

// redact hides the password part of a URI before it reaches logs.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return target
	}
	return u.Redacted()
}
