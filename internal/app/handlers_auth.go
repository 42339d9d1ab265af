package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
)

func (a *App) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.toSentry(c, "login", "unmarshal", sentry.LevelError, err)
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(c, ErrMissingFields, nil)
		return
	}

	user, err := a.db.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			// Same response as a wrong password to avoid account enumeration.
			writeError(c, ErrInvalidCredentials, nil)
			return
		}
		a.toSentry(c, "login", "db", sentry.LevelError, err)
		writeError(c, ErrProcessLogin, nil)
		return
	}

	if !a.hasher.CheckPasswordHash(req.Password, user.Password) {
		writeError(c, ErrInvalidCredentials, nil)
		return
	}

	sessionToken, err := a.tokens.GenerateToken(c.Request.Context(), user.ID)
	if err != nil {
		a.toSentry(c, "login", "token", sentry.LevelError, err)
		writeError(c, ErrGenerateToken, nil)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{UserID: user.ID, Token: sessionToken})
}
