package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/services/mailer"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
)

const sendTimeout = 15 * time.Second

// HandleSendMessage relays a visitor message by mail. Sending is
// fire-and-forget: the dispatch runs on its own goroutine with a detached
// context so a client disconnect cannot cancel it, and a send failure is
// logged but never fails the request.
func (a *App) HandleSendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.toSentry(c, "send_message", "unmarshal", sentry.LevelError, err)
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Message == "" {
		writeError(c, ErrMissingFields, nil)
		return
	}
	if !validEmail(req.Email) {
		writeError(c, ErrInvalidUserData, nil)
		return
	}

	msg := mailer.ContactMessage{
		To:    req.Email,
		Host:  c.Request.Host,
		Title: req.Title,
		Text:  req.Message,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := a.mail.SendContactMessage(ctx, msg); err != nil {
			a.logger.Warn("contact message send failed", "error", err)
			a.sentry.CaptureException(err)
		}
	}()

	c.JSON(http.StatusOK, MessageResponse{Message: "message_sent"})
}
