package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/services/token"
)

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Setenv("JWT_ACCESS_SECRET", "test-access-secret")
	t.Setenv("JWT_ISSUER", "test-issuer")

	tokens := token.NewTokenService()

	var seenUserID string
	router := gin.New()
	router.GET("/protected", Authenticate(tokens), func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user"})
			return
		}
		seenUserID = userID
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	doRequest := func(authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		if w := doRequest(""); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("wrong scheme", func(t *testing.T) {
		if w := doRequest("Basic abc123"); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if w := doRequest("Bearer not.a.token"); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid token attaches the account id", func(t *testing.T) {
		signed, err := tokens.GenerateToken(context.Background(), "user-42")
		if err != nil {
			t.Fatalf("GenerateToken returned error: %v", err)
		}

		w := doRequest("Bearer " + signed)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if seenUserID != "user-42" {
			t.Fatalf("expected user id %q in context, got %q", "user-42", seenUserID)
		}
	})
}
