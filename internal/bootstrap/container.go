package bootstrap

import (
	"context"
	"log"

	"edulycee-client/internal/config"
	"edulycee-client/internal/gateway"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/internal/repository/contract"
	"edulycee-client/internal/repository/implementation"
	"edulycee-client/internal/repository/memory"
	"edulycee-client/internal/service"
	"edulycee-client/pkg/chat"
	"edulycee-client/pkg/events"
	"edulycee-client/pkg/quiz"
	"edulycee-client/pkg/store"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger
	Bus    *events.Bus

	// State
	Auth     *store.AuthState
	Sessions *store.SessionStore

	// Remote
	Gateway *gateway.Client
	Api     service.IApiService

	// Services
	AuthService      service.IAuthService
	LibraryService   service.ILibraryService
	DocumentService  service.IDocumentService
	DashboardService service.IDashboardService
	HistoryService   service.IHistoryService

	// Engines
	Chat *chat.Engine
	Quiz *quiz.Engine

	rdb *redis.Client
}

// Options overrides pieces of the graph; zero values select the configured defaults.
type Options struct {
	Logger      logger.ILogger
	Credentials contract.CredentialRepository
	Navigator   gateway.Navigator
	QuizOptions []quiz.Option
}

func NewContainer(cfg *config.Config, opts Options) *Container {
	c := &Container{}

	// 1. Core Facades
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}
	c.Logger = sysLogger

	// 2. Event Bus
	c.Bus = events.NewBus(sysLogger)

	// 3. Credential Store
	credentials := opts.Credentials
	if credentials == nil {
		credentials = c.credentialRepository(cfg)
	}
	c.Auth = store.NewAuthState(credentials, c.Bus, sysLogger)
	c.Sessions = store.NewSessionStore(c.Bus, sysLogger)

	// 4. Gateway
	navigator := opts.Navigator
	if navigator == nil {
		navigator = gateway.NavigatorFunc(func() {
			sysLogger.Warn("BOOTSTRAP", "Session expired, login required", nil)
		})
	}
	c.Gateway = gateway.NewClient(cfg.Api.BaseURL, cfg.Api.Timeout, c.Auth, navigator, sysLogger)
	c.Api = service.NewApiService(c.Gateway)

	// 5. Services
	c.AuthService = service.NewAuthService(c.Api, c.Auth, sysLogger)
	c.LibraryService = service.NewLibraryService(c.Api, cfg.Api.PageSize)
	c.DocumentService = service.NewDocumentService(c.Api, c.Auth, c.Sessions, sysLogger)
	c.DashboardService = service.NewDashboardService(c.Api)
	c.HistoryService = service.NewHistoryService(c.Api)

	// 6. Engines
	c.Chat = chat.NewEngine(c.Api, c.Sessions, c.Bus, sysLogger)
	c.Quiz = quiz.NewEngine(c.Api, c.Sessions, c.Bus, sysLogger, opts.QuizOptions...)

	// Losing the credential ends the study session.
	c.Auth.Subscribe(func(identity model.Identity) {
		if !identity.IsAuthenticated() {
			c.Sessions.Close()
		}
	})

	return c
}

func (c *Container) credentialRepository(cfg *config.Config) contract.CredentialRepository {
	switch cfg.Credential.Store {
	case "memory":
		return memory.NewCredentialRepository()
	case "redis":
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to file credentials", err)
			_ = rdb.Close()
			return implementation.NewFileCredentialRepository(cfg.Credential.File, cfg.Credential.Profile)
		}
		c.rdb = rdb
		return implementation.NewRedisCredentialRepository(rdb, cfg.Credential.Profile)
	default:
		return implementation.NewFileCredentialRepository(cfg.Credential.File, cfg.Credential.Profile)
	}
}

// Close ends the active session and releases the bus and any Redis connection.
func (c *Container) Close() {
	c.Sessions.Close()
	if err := c.Bus.Close(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
