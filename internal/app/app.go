package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/db"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
}

func New() (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := pg.SeedMilestones(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("milestone seed: %w", err)
	}
	if err := pg.SeedSuperadmin(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("superadmin seed: %w", err)
	}
	conn := pg.DB()

	clientset := wireClients(log, cfg)
	reposet := wireRepos(conn, log)
	serviceset := wireServices(conn, log, cfg, reposet, clientset)
	handlerset := wireHandlers(log, serviceset)
	middlewareset := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, middlewareset)

	return &App{
		Log:      log,
		DB:       conn,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Clients:  clientset,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Notifier != nil {
		a.Services.Notifier.Flush()
	}
	if a.Clients.CatalogCache != nil {
		a.Clients.CatalogCache.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
