package db

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/invoicely/internal/config"
	obslogger "github.com/smallbiznis/invoicely/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

// Options tunes the connection pool and instrumentation of a gorm handle.
type Options struct {
	Name            string
	Logger          gormlogger.Interface
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Tracing         bool
	Metrics         bool
}

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

// New opens the configured database and closes it when the app stops.
func New(p Params) (*gorm.DB, error) {
	dialector, err := Dialect(p.Cfg)
	if err != nil {
		return nil, err
	}

	conn, err := Open(dialector, Options{
		Name:            p.Cfg.DBName,
		Logger:          obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		MaxIdleConn:     p.Cfg.DBMaxIdleConn,
		MaxOpenConn:     p.Cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(p.Cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(p.Cfg.DBConnMaxIdleTime) * time.Second,
		Tracing:         true,
		Metrics:         true,
	})
	if err != nil {
		return nil, err
	}

	p.Log.Info("database connected", zap.String("dialect", conn.Dialector.Name()))

	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return conn, nil
}

// Open creates a gorm handle. SQLite handles are pinned to a single
// connection so writers never contend for the file lock and pragmas stick.
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if opts.Logger != nil {
		gormCfg.Logger = opts.Logger
	} else {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	if conn.Dialector.Name() == TypeSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		if opts.MaxIdleConn > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConn)
		}
		if opts.MaxOpenConn > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConn)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
		if opts.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
		}
	}

	if opts.Tracing {
		if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(opts.Name))); err != nil {
			return nil, fmt.Errorf("register tracing plugin: %w", err)
		}
	}
	if opts.Metrics {
		if err := conn.Use(gormprometheus.New(gormprometheus.Config{
			DBName:          opts.Name,
			RefreshInterval: 15,
			StartServer:     false,
		})); err != nil {
			return nil, fmt.Errorf("register metrics plugin: %w", err)
		}
	}

	return conn, nil
}
