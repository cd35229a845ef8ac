// Package wire provides dependency injection for the kiln application.
// It builds one Container per process with lazy initialization.
package wire

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/example/kiln/internal/adapters/sqlite"
	"github.com/example/kiln/internal/app"
	"github.com/example/kiln/internal/catalog"
	"github.com/example/kiln/internal/config"
	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/db"
	"github.com/example/kiln/internal/metrics"
	"github.com/example/kiln/internal/ports/primary"
)

// Container holds the services and their shared dependencies.
type Container struct {
	Config  *config.Config
	DB      *sql.DB
	Logger  *slog.Logger
	Metrics *metrics.Recorder

	Schedule     primary.ScheduleService
	Tasks        primary.TaskService
	Pieces       primary.PieceService
	Orders       primary.OrderService
	Availability primary.AvailabilityService
	Activity     primary.ActivityService
}

var (
	configFile string
	container  *Container
	initErr    error
	once       sync.Once
)

// SetConfigFile selects an explicit config file. It must be called before
// the first call to Services.
func SetConfigFile(path string) {
	configFile = path
}

// Services returns the process-wide Container, building it on first use.
func Services() (*Container, error) {
	once.Do(func() {
		cfg, err := config.Load(configFile)
		if err != nil {
			initErr = err
			return
		}
		container, initErr = New(cfg)
	})
	return container, initErr
}

// NewLogger builds the slog text logger used across the process.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// New opens the database named by cfg and wires every service to it.
func New(cfg *config.Config) (*Container, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c, err := NewWithDB(cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return c, nil
}

// NewWithDB wires services onto an already opened database.
func NewWithDB(cfg *config.Config, database *sql.DB) (*Container, error) {
	stages, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}
	return build(cfg, database, stages, NewLogger(cfg)), nil
}

func build(cfg *config.Config, database *sql.DB, stages *stage.Catalog, logger *slog.Logger) *Container {
	store := sqlite.NewStore(database)
	recorder := metrics.New()

	return &Container{
		Config:  cfg,
		DB:      database,
		Logger:  logger,
		Metrics: recorder,
		Schedule: app.NewScheduleService(store, stages, app.ScheduleConfig{
			Template:      cfg.Weekly,
			LookaheadDays: cfg.LookaheadDays,
			LockTTL:       cfg.LockTTL,
		}, recorder, logger),
		Tasks:        app.NewTaskService(store, stages, recorder, logger),
		Pieces:       app.NewPieceService(store, stages, logger),
		Orders:       app.NewOrderService(store, stages, logger),
		Availability: app.NewAvailabilityService(store, cfg.Weekly, logger),
		Activity:     app.NewActivityService(store.Activity()),
	}
}

// Close releases the database handle.
func (c *Container) Close() error {
	return c.DB.Close()
}
