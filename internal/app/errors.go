package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned at the HTTP boundary. Validation and authentication
// failures deliberately collapse into single undifferentiated codes so the
// response never reveals which rule failed or whether an account exists.
const (
	ErrUnmarshal          = "invalid_request_body"
	ErrMissingFields      = "missing_required_fields"
	ErrInvalidUserData    = "invalid_user_data"
	ErrUserExists         = "user_already_exists"
	ErrInvalidCredentials = "invalid_credentials"
	ErrUnauthorized       = "unauthorized"
	ErrUserNotFound       = "user_not_found"
	ErrLinkNotFound       = "link_not_found"
	ErrTooManyRequests    = "too_many_requests"
	ErrHashPassword       = "internal_hash_error"
	ErrCreateUser         = "internal_create_user_error"
	ErrUpdateUser         = "internal_update_user_error"
	ErrDeleteUser         = "internal_delete_user_error"
	ErrProcessLogin       = "internal_login_error"
	ErrRetrieveUsers      = "internal_retrieve_users_error"
	ErrGenerateToken      = "internal_generate_token_error"
	ErrUploadImage        = "internal_upload_image_error"
	ErrCreateLink         = "internal_create_link_error"
	ErrUpdateLink         = "internal_update_link_error"
	ErrDeleteLink         = "internal_delete_link_error"
	ErrRetrieveLinks      = "internal_retrieve_links_error"
)

var errorStatusMap = map[string]int{
	ErrUnmarshal:          http.StatusBadRequest,
	ErrMissingFields:      http.StatusBadRequest,
	ErrInvalidUserData:    http.StatusBadRequest,
	ErrUserExists:         http.StatusConflict,
	ErrInvalidCredentials: http.StatusUnauthorized,
	ErrUnauthorized:       http.StatusUnauthorized,
	ErrUserNotFound:       http.StatusNotFound,
	ErrLinkNotFound:       http.StatusNotFound,
	ErrTooManyRequests:    http.StatusTooManyRequests,
	ErrHashPassword:       http.StatusInternalServerError,
	ErrCreateUser:         http.StatusInternalServerError,
	ErrUpdateUser:         http.StatusInternalServerError,
	ErrDeleteUser:         http.StatusInternalServerError,
	ErrProcessLogin:       http.StatusInternalServerError,
	ErrRetrieveUsers:      http.StatusInternalServerError,
	ErrGenerateToken:      http.StatusInternalServerError,
	ErrUploadImage:        http.StatusInternalServerError,
	ErrCreateLink:         http.StatusInternalServerError,
	ErrUpdateLink:         http.StatusInternalServerError,
	ErrDeleteLink:         http.StatusInternalServerError,
	ErrRetrieveLinks:      http.StatusInternalServerError,
}

func statusForError(code string) int {
	if status, ok := errorStatusMap[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, code string, details map[string]string) {
	c.JSON(statusForError(code), ErrorResponse{Error: code, Details: details})
}
