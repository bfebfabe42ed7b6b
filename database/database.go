package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"firmdesk/config"
	"firmdesk/errs"
	"firmdesk/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DialectorFunc resolves a tenant name to a gorm dialector. Production wires
// a MySQL DSN whose database name is the tenant name; tests substitute
// sqlite.
type DialectorFunc func(tenant string) gorm.Dialector

// Registry resolves tenant names to request-scoped database handles. Each
// tenant is an isolated logical database; the registry holds no open
// connections itself and performs no cross-request locking.
type Registry struct {
	defaultTenant string
	dialector     DialectorFunc
	gormLogger    logger.Interface
	logger        *zap.SugaredLogger
}

// NewRegistry creates a registry backed by MySQL using the configured
// credentials. The tenant name selects the database.
func NewRegistry(cfg config.DatabaseConfig, defaultTenant string, lg *zap.SugaredLogger) *Registry {
	dialector := func(tenant string) gorm.Dialector {
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, tenant, cfg.Params)
		return mysql.Open(dsn)
	}
	return NewRegistryWithDialector(dialector, defaultTenant, lg)
}

// NewRegistryWithDialector creates a registry with a custom dialector
// factory. Used by tests to run against in-memory sqlite databases.
func NewRegistryWithDialector(fn DialectorFunc, defaultTenant string, lg *zap.SugaredLogger) *Registry {
	// GORM logger configuration
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &Registry{
		defaultTenant: defaultTenant,
		dialector:     fn,
		gormLogger:    gormLogger,
		logger:        lg.Named("Registry"),
	}
}

// DefaultTenant returns the tenant used when a request carries no claim.
func (r *Registry) DefaultTenant() string {
	return r.defaultTenant
}

// Open resolves tenant to a live database handle. An empty tenant name falls
// back to the configured default tenant. The connection is probed before
// being returned; on failure the caller receives no handle. The returned
// release function must be deferred by the caller so the handle is closed on
// every exit path.
func (r *Registry) Open(tenant string) (*gorm.DB, func(), error) {
	if tenant == "" {
		tenant = r.defaultTenant
	}

	// TranslateError turns driver-specific duplicate key failures into
	// gorm.ErrDuplicatedKey so services can map them to a conflict.
	db, err := gorm.Open(r.dialector(tenant), &gorm.Config{Logger: r.gormLogger, TranslateError: true})
	if err != nil {
		r.logger.Errorw("Failed to open tenant database", "tenant", tenant, "error", err)
		return nil, nil, errs.Connection("could not connect to tenant database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errs.Connection("could not connect to tenant database", err)
	}

	// Probe before handing the connection out.
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		r.logger.Errorw("Tenant database probe failed", "tenant", tenant, "error", err)
		return nil, nil, errs.Connection("tenant database unreachable", err)
	}

	release := func() {
		if err := sqlDB.Close(); err != nil {
			r.logger.Warnw("Failed to release tenant connection", "tenant", tenant, "error", err)
		}
	}
	return db, release, nil
}

// Migrate creates or updates all tenant tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Menu{},
		&models.Operation{},
		&models.MenuOperation{},
		&models.PermissionSet{},
		&models.PermissionSetOperation{},
		&models.UserPermissionGrant{},
		&models.Client{},
		&models.Task{},
		&models.Ticket{},
		&models.Timesheet{},
	)
}
