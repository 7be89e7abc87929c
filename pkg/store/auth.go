package store

import (
	"context"
	"sync"
	"time"

	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/logger"
	"edulycee-client/internal/repository/contract"
	"edulycee-client/pkg/events"

	"github.com/golang-jwt/jwt/v5"
)

// AuthState is the process-wide credential holder. Every mutation writes the
// persisted record first and the in-memory identity second, so a token is
// persisted if and only if the identity in memory is non-empty.
type AuthState struct {
	mu          sync.RWMutex
	identity    model.Identity
	repo        contract.CredentialRepository
	events      events.Publisher
	logger      logger.ILogger
	subscribers []func(model.Identity)
	generation  uint64
}

func NewAuthState(repo contract.CredentialRepository, publisher events.Publisher, log logger.ILogger) *AuthState {
	if publisher == nil {
		publisher = events.Discard
	}
	return &AuthState{repo: repo, events: publisher, logger: log}
}

// Hydrate reads the persisted identity once at startup. Any failure leaves the
// session unauthenticated.
func (a *AuthState) Hydrate(ctx context.Context) model.Identity {
	a.mu.Lock()
	stored, err := a.repo.Load(ctx)
	switch {
	case err != nil:
		a.logger.Warn("AUTH", "Failed to read persisted credential", map[string]interface{}{"error": err.Error()})
		a.identity = model.Identity{}
	case stored == nil || !stored.IsAuthenticated():
		if stored != nil {
			_ = a.repo.Clear(ctx)
		}
		a.identity = model.Identity{}
	default:
		a.identity = *stored
	}
	a.generation++
	identity := a.identity
	a.mu.Unlock()

	a.logger.Info("AUTH", "Session hydrated", map[string]interface{}{
		"authenticated": identity.IsAuthenticated(),
		"user_id":       identity.UserId,
	})
	return identity
}

// Set replaces the identity. Nothing changes in memory when persisting fails.
func (a *AuthState) Set(ctx context.Context, identity model.Identity) error {
	a.mu.Lock()
	if err := a.repo.Save(ctx, identity); err != nil {
		a.mu.Unlock()
		return err
	}
	a.identity = identity
	a.generation++
	a.mu.Unlock()

	a.changed(identity)
	return nil
}

// Clear drops the identity. It never fails; a persistence error is logged.
func (a *AuthState) Clear(ctx context.Context) {
	a.mu.Lock()
	was := a.identity.IsAuthenticated()
	a.clearLocked(ctx)
	if was {
		a.generation++
	}
	a.mu.Unlock()

	if was {
		a.changed(model.Identity{})
	}
}

// Expire clears the identity only when token is still the current credential.
// Concurrent rejections of the same credential see true exactly once.
func (a *AuthState) Expire(token string) bool {
	a.mu.Lock()
	if token == "" || a.identity.Token != token {
		a.mu.Unlock()
		return false
	}
	userId := a.identity.UserId
	a.clearLocked(context.Background())
	a.generation++
	a.mu.Unlock()

	a.events.Publish(events.New(events.AuthExpired, map[string]interface{}{"user_id": userId}))
	a.changed(model.Identity{})
	return true
}

func (a *AuthState) clearLocked(ctx context.Context) {
	if err := a.repo.Clear(ctx); err != nil {
		a.logger.Error("AUTH", "Failed to clear persisted credential", map[string]interface{}{"error": err.Error()})
	}
	a.identity = model.Identity{}
}

func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity.Token
}

func (a *AuthState) Identity() model.Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

func (a *AuthState) IsAuthenticated() bool {
	return a.Identity().IsAuthenticated()
}

// Generation counts identity changes. It moves on hydrate, every sign-in and
// every effective sign-out.
func (a *AuthState) Generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.generation
}

// Subscribe registers fn for every identity change. fn runs synchronously on the
// goroutine that made the change and must not call back into Set or Clear.
func (a *AuthState) Subscribe(fn func(model.Identity)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// TokenExpiry reads the exp claim without verifying the signature.
func (a *AuthState) TokenExpiry() (time.Time, bool) {
	token := a.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (a *AuthState) changed(identity model.Identity) {
	a.mu.RLock()
	subscribers := append([]func(model.Identity){}, a.subscribers...)
	a.mu.RUnlock()

	a.events.Publish(events.New(events.AuthChanged, map[string]interface{}{
		"authenticated": identity.IsAuthenticated(),
		"user_id":       identity.UserId,
	}))
	for _, fn := range subscribers {
		fn(identity)
	}
}
