package app

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/philippebeck/links2code-api/internal/sdk/models"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
)

const maxUploadBytes = 10 << 20 // 10 MB

func (a *App) HandleListUsers(c *gin.Context) {
	users, err := a.db.ListUsers(c.Request.Context())
	if err != nil {
		a.toSentry(c, "list_users", "db", sentry.LevelError, err)
		writeError(c, ErrRetrieveUsers, nil)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (a *App) HandleCreateUser(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		// Fall back to standard form parsing for bodies without a file part.
		if err := c.Request.ParseForm(); err != nil {
			a.toSentry(c, "create_user", "parse_form", sentry.LevelError, err)
			writeError(c, ErrUnmarshal, nil)
			return
		}
	}

	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("pass")

	// Validation must pass before hashing or any side effect occurs.
	if code := a.validateUserInput(name, email, password); code != "" {
		writeError(c, code, nil)
		return
	}

	hashed, err := a.hasher.HashPassword(password)
	if err != nil {
		a.toSentry(c, "create_user", "bcrypt", sentry.LevelError, err)
		writeError(c, ErrHashPassword, nil)
		return
	}

	imagePath, err := a.uploadImage(c)
	if err != nil {
		a.toSentry(c, "create_user", "storage", sentry.LevelError, err)
		writeError(c, ErrUploadImage, nil)
		return
	}

	_, err = a.db.CreateUser(c.Request.Context(), models.NewUser{
		Name:      name,
		Email:     email,
		Password:  hashed,
		ImagePath: imagePath,
	})
	if err != nil {
		if errors.Is(err, sqldb.ErrDBDuplicatedEntry) {
			writeError(c, ErrUserExists, nil)
			return
		}
		a.toSentry(c, "create_user", "db", sentry.LevelError, err)
		writeError(c, ErrCreateUser, nil)
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "user_created"})
}

func (a *App) HandleUpdateUser(c *gin.Context) {
	userID := c.Param("id")

	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		if err := c.Request.ParseForm(); err != nil {
			a.toSentry(c, "update_user", "parse_form", sentry.LevelError, err)
			writeError(c, ErrUnmarshal, nil)
			return
		}
	}

	name := strings.TrimSpace(c.PostForm("name"))
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("pass")

	// Updates re-run the full validation pipeline and re-hash the supplied
	// password unconditionally; there is no unchanged-password shortcut.
	if code := a.validateUserInput(name, email, password); code != "" {
		writeError(c, code, nil)
		return
	}

	existing, err := a.db.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return
		}
		a.toSentry(c, "update_user", "db", sentry.LevelError, err)
		writeError(c, ErrUpdateUser, nil)
		return
	}

	hashed, err := a.hasher.HashPassword(password)
	if err != nil {
		a.toSentry(c, "update_user", "bcrypt", sentry.LevelError, err)
		writeError(c, ErrHashPassword, nil)
		return
	}

	imagePath := existing.ImagePath

	newPath, err := a.uploadImage(c)
	if err != nil {
		a.toSentry(c, "update_user", "storage", sentry.LevelError, err)
		writeError(c, ErrUploadImage, nil)
		return
	}
	if newPath != nil {
		if existing.ImagePath != nil {
			// Best effort: a stray object never blocks the update.
			if err := a.storage.Remove(c.Request.Context(), *existing.ImagePath); err != nil {
				a.logger.Warn("profile image cleanup failed", "user_id", userID, "error", err)
				a.toSentry(c, "update_user", "storage_cleanup", sentry.LevelWarning, err)
			}
		}
		imagePath = newPath
	}

	_, err = a.db.UpdateUser(c.Request.Context(), userID, models.NewUser{
		Name:      name,
		Email:     email,
		Password:  hashed,
		ImagePath: imagePath,
	})
	if err != nil {
		switch {
		case errors.Is(err, sqldb.ErrDBNotFound):
			writeError(c, ErrUserNotFound, nil)
		case errors.Is(err, sqldb.ErrDBDuplicatedEntry):
			writeError(c, ErrUserExists, nil)
		default:
			a.toSentry(c, "update_user", "db", sentry.LevelError, err)
			writeError(c, ErrUpdateUser, nil)
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user_updated"})
}

func (a *App) HandleDeleteUser(c *gin.Context) {
	userID := c.Param("id")

	user, err := a.db.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return
		}
		// Lookup failed outright: perform no removal at all.
		a.toSentry(c, "delete_user", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteUser, nil)
		return
	}

	if user.ImagePath != nil {
		// Asset removal is best effort: a failure is logged and reported
		// but must never block removal of the account record.
		if err := a.storage.Remove(c.Request.Context(), *user.ImagePath); err != nil {
			a.logger.Warn("profile image cleanup failed", "user_id", userID, "error", err)
			a.toSentry(c, "delete_user", "storage_cleanup", sentry.LevelWarning, err)
		}
	}

	if err := a.db.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			writeError(c, ErrUserNotFound, nil)
			return
		}
		a.toSentry(c, "delete_user", "db", sentry.LevelError, err)
		writeError(c, ErrDeleteUser, nil)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "user_deleted"})
}

// validateUserInput runs the email and password checks shared by create and
// update. The specific violation is logged for diagnostics; the returned
// boundary code stays undifferentiated.
func (a *App) validateUserInput(name, email, password string) string {
	if name == "" || email == "" || password == "" {
		return ErrMissingFields
	}

	if !validEmail(email) {
		a.logger.Debug("rejected user input", "reason", "invalid_email_format")
		return ErrInvalidUserData
	}

	if violation := a.policy.Validate(password); violation != nil {
		a.logger.Debug("rejected user input", "reason", violation.Code)
		return ErrInvalidUserData
	}

	return ""
}

// uploadImage stores an attached profile image and returns its
// storage-relative object path, or nil when the request carries no file.
func (a *App) uploadImage(c *gin.Context) (*string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	objectPath := "avatars/" + uuid.NewString() + ext

	if err := a.storage.Upload(c.Request.Context(), objectPath, file, fileHeader.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	return &objectPath, nil
}
