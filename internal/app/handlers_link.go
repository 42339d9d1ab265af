package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/sdk/models"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
)

func (a *App) HandleListLinks(c *gin.Context) {
	links, err := a.db.ListLinks(c.Request.Context())
	if err != nil {
		a.toSentry(c, "list_links", "db", sentry.LevelError, err)
		writeError(c, ErrRetrieveLinks, nil)
		return
	}

	c.JSON(http.StatusOK, links)
}

func (a *App) HandleCreateLink(c *gin.Context) {
	var req models.NewLink
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if req.Title == "" || req.URL == "" {
		writeError(c, ErrMissingFields, nil)
		return
	}

	if _, err := a.db.CreateLink(c.Request.Context(), req); err != nil {
		a.toSentry(c, "create_link", "db", sentry.LevelError, err)
		writeError(c, ErrCreateLink, nil)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "link_created"})
}

func (a *App) HandleUpdateLink(c *gin.Context) {
	linkID := c.Param("id")

	var req models.NewLink
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, ErrUnmarshal, nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.URL = strings.TrimSpace(req.URL)
	if req.Title == "" || req.URL == "" {
		writeError(c, ErrMissingFields, nil)
		return
	}

	if _, err := a.db.UpdateLink(c.Request.Context(), linkID, req); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrLinkNotFound, nil)
			return
		}
		a.toSentry(c, "update_link", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateLink, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "link_updated"})
}

func (a *App) HandleDeleteLink(c *gin.Context) {
	linkID := c.Param("id")

	if err := a.db.DeleteLink(c.Request.Context(), linkID); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrLinkNotFound, nil)
			return
		}
		a.toSentry(c, "delete_link", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteLink, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "link_deleted"})
}
