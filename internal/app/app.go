// Package app provides the HTTP handlers for the links2code API.
package app

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/hash"
	"github.com/philippebeck/links2code-api/internal/services/mailer"
	"github.com/philippebeck/links2code-api/internal/services/ratelimit"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
	"github.com/philippebeck/links2code-api/internal/services/storage"
	"github.com/philippebeck/links2code-api/internal/services/token"
)

// App composes the store, validators, hasher, token issuer, object storage
// and mailer as injected collaborators for the request handlers.
type App struct {
	db      sqldb.Service
	storage storage.Service
	mail    mailer.Service
	sentry  *sentry.SentryService
	tokens  *token.TokenService
	hasher  *hash.HashService
	guard   *ratelimit.Guard
	policy  PasswordPolicy
	logger  *slog.Logger
}

func NewApp(
	db sqldb.Service,
	storage storage.Service,
	mail mailer.Service,
	sentry *sentry.SentryService,
	tokens *token.TokenService,
	hasher *hash.HashService,
	guard *ratelimit.Guard,
	logger *slog.Logger,
) *App {
	return &App{
		db:      db,
		storage: storage,
		mail:    mail,
		sentry:  sentry,
		tokens:  tokens,
		hasher:  hasher,
		guard:   guard,
		policy:  PolicyFromEnv(),
		logger:  logger,
	}
}

func (a *App) toSentry(c *gin.Context, handler, errType string, level sentry.Level, err error) {
	a.sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("handler", handler)
		scope.SetExtra("error_type", errType)
		scope.SetLevel(level)
		if reqID := c.GetHeader("X-Request-ID"); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		a.sentry.CaptureException(err)
	})
}
