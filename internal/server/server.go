package server

import (
	"crypto/rand"
	"errors"
	"net"
	"sync"
	"time"

	"edulycee-client/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// Demo account created when Options.SeedDemoUser is set.
const (
	DemoUsername = "demo"
	DemoEmail    = "demo@edulycee.fr"
	DemoPassword = "demo1234"
)

type Options struct {
	JwtSecret    string
	TokenTTL     time.Duration
	SeedDemoUser bool
}

// Server is an in-memory rendition of the remote study service, used for local
// runs and integration tests.
type Server struct {
	app      *fiber.App
	data     *catalog
	validate *validator.Validate
	logger   logger.ILogger
	tokenTTL time.Duration

	mu     sync.RWMutex
	secret []byte
}

func New(opts Options, log logger.ILogger) *Server {
	if opts.JwtSecret == "" {
		opts.JwtSecret = "edulycee-dev-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		data:     newCatalog(),
		validate: validator.New(),
		logger:   log,
		tokenTTL: opts.TokenTTL,
		secret:   []byte(opts.JwtSecret),
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.Error("MOCK", "Request failed", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
			return fail(ctx, code, err.Error())
		},
	})

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())
	app.Use(func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		log.Debug("MOCK", "Handled", map[string]interface{}{
			"method":      ctx.Method(),
			"path":        ctx.Path(),
			"status":      ctx.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return err
	})

	s.registerRoutes(app)
	s.app = app

	if opts.SeedDemoUser {
		hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err == nil {
			_, _ = s.data.addUser(DemoUsername, DemoEmail, hash)
		}
	}
	return s
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) secretKey() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// RevokeAll rotates the signing key, so every token issued so far is rejected.
func (s *Server) RevokeAll() {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	s.mu.Lock()
	s.secret = key
	s.mu.Unlock()
	s.logger.Info("MOCK", "All tokens revoked", nil)
}

func (s *Server) Run(port string) error {
	s.logger.Info("MOCK", "Stub service listening", map[string]interface{}{"port": port})
	return s.app.Listen(":" + port)
}

func (s *Server) Listener(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
