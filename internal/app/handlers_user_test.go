package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/sdk/models"
	"github.com/philippebeck/links2code-api/internal/sdk/sqldb"
	"github.com/philippebeck/links2code-api/internal/services/hash"
	"github.com/philippebeck/links2code-api/internal/services/mailer"
	"github.com/philippebeck/links2code-api/internal/services/ratelimit"
	"github.com/philippebeck/links2code-api/internal/services/sentry"
	"github.com/philippebeck/links2code-api/internal/services/token"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = os.Setenv("JWT_ACCESS_SECRET", "test-access-secret")
	_ = os.Setenv("JWT_ISSUER", "test-issuer")

	code := m.Run()
	os.Exit(code)
}

// ---------------------------------------------
// Stub collaborators
// ---------------------------------------------

type stubDB struct {
	health         func(ctx context.Context) map[string]string
	getUserByID    func(ctx context.Context, userID string) (models.User, error)
	getUserByEmail func(ctx context.Context, email string) (models.User, error)
	createUser     func(ctx context.Context, user models.NewUser) (models.User, error)
	updateUser     func(ctx context.Context, userID string, user models.NewUser) (models.User, error)
	deleteUser     func(ctx context.Context, userID string) error
	listUsers      func(ctx context.Context) ([]models.User, error)
	getLinkByID    func(ctx context.Context, linkID string) (models.Link, error)
	createLink     func(ctx context.Context, link models.NewLink) (models.Link, error)
	updateLink     func(ctx context.Context, linkID string, link models.NewLink) (models.Link, error)
	deleteLink     func(ctx context.Context, linkID string) error
	listLinks      func(ctx context.Context) ([]models.Link, error)
}

func (s *stubDB) Health(ctx context.Context) map[string]string {
	if s.health == nil {
		return map[string]string{"status": "up"}
	}
	return s.health(ctx)
}

func (s *stubDB) Close() error { return nil }

func (s *stubDB) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	if s.getUserByID == nil {
		panic("unexpected GetUserByID call")
	}
	return s.getUserByID(ctx, userID)
}

func (s *stubDB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getUserByEmail == nil {
		panic("unexpected GetUserByEmail call")
	}
	return s.getUserByEmail(ctx, email)
}

func (s *stubDB) CreateUser(ctx context.Context, user models.NewUser) (models.User, error) {
	if s.createUser == nil {
		panic("unexpected CreateUser call")
	}
	return s.createUser(ctx, user)
}

func (s *stubDB) UpdateUser(ctx context.Context, userID string, user models.NewUser) (models.User, error) {
	if s.updateUser == nil {
		panic("unexpected UpdateUser call")
	}
	return s.updateUser(ctx, userID, user)
}

func (s *stubDB) DeleteUser(ctx context.Context, userID string) error {
	if s.deleteUser == nil {
		panic("unexpected DeleteUser call")
	}
	return s.deleteUser(ctx, userID)
}

func (s *stubDB) ListUsers(ctx context.Context) ([]models.User, error) {
	if s.listUsers == nil {
		panic("unexpected ListUsers call")
	}
	return s.listUsers(ctx)
}

func (s *stubDB) GetLinkByID(ctx context.Context, linkID string) (models.Link, error) {
	if s.getLinkByID == nil {
		panic("unexpected GetLinkByID call")
	}
	return s.getLinkByID(ctx, linkID)
}

func (s *stubDB) CreateLink(ctx context.Context, link models.NewLink) (models.Link, error) {
	if s.createLink == nil {
		panic("unexpected CreateLink call")
	}
	return s.createLink(ctx, link)
}

func (s *stubDB) UpdateLink(ctx context.Context, linkID string, link models.NewLink) (models.Link, error) {
	if s.updateLink == nil {
		panic("unexpected UpdateLink call")
	}
	return s.updateLink(ctx, linkID, link)
}

func (s *stubDB) DeleteLink(ctx context.Context, linkID string) error {
	if s.deleteLink == nil {
		panic("unexpected DeleteLink call")
	}
	return s.deleteLink(ctx, linkID)
}

func (s *stubDB) ListLinks(ctx context.Context) ([]models.Link, error) {
	if s.listLinks == nil {
		panic("unexpected ListLinks call")
	}
	return s.listLinks(ctx)
}

type stubStorage struct {
	upload func(ctx context.Context, objectPath string, reader io.Reader, contentType string) error
	remove func(ctx context.Context, objectPath string) error
}

func (s *stubStorage) Upload(ctx context.Context, objectPath string, reader io.Reader, contentType string) error {
	if s.upload == nil {
		return nil
	}
	return s.upload(ctx, objectPath, reader, contentType)
}

func (s *stubStorage) Remove(ctx context.Context, objectPath string) error {
	if s.remove == nil {
		return nil
	}
	return s.remove(ctx, objectPath)
}

type stubMailer struct {
	send func(ctx context.Context, msg mailer.ContactMessage) error
}

func (s *stubMailer) SendContactMessage(ctx context.Context, msg mailer.ContactMessage) error {
	if s.send == nil {
		return nil
	}
	return s.send(ctx, msg)
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

func newTestApp(t *testing.T, db sqldb.Service, store *stubStorage, mail mailer.Service) *App {
	t.Helper()

	if store == nil {
		store = &stubStorage{}
	}
	if mail == nil {
		mail = &stubMailer{}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := ratelimit.NewGuard(ratelimit.NewMemoryStore())

	return NewApp(db, store, mail, sentry.NewSentryService(), token.NewTokenService(), hash.NewHashService(), guard, logger)
}

func bearerToken(t *testing.T, a *App, userID string) string {
	t.Helper()

	signed, err := a.tokens.GenerateToken(context.Background(), userID)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	return "Bearer " + signed
}

func userForm(name, email, pass string) (io.Reader, string) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)
	form.Set("pass", pass)
	return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded"
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp
}

// ---------------------------------------------
// Login
// ---------------------------------------------

func TestHandleLogin(t *testing.T) {
	hasher := hash.NewHashService()
	hashed, err := hasher.HashPassword("Abcdef12")
	if err != nil {
		t.Fatalf("hashing fixture password: %v", err)
	}

	stored := models.User{ID: "user-1", Name: "A", Email: "a@b.com", Password: hashed}

	db := &stubDB{
		getUserByEmail: func(ctx context.Context, email string) (models.User, error) {
			if email == stored.Email {
				return stored, nil
			}
			return models.User{}, sqldb.ErrDBNotFound
		},
	}
	a := newTestApp(t, db, nil, nil)
	router := a.RegisterRoutes()

	doLogin := func(email, pass string) *httptest.ResponseRecorder {
		body := `{"email":"` + email + `","pass":"` + pass + `"}`
		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("success returns the account id and a matching token", func(t *testing.T) {
		w := doLogin("a@b.com", "Abcdef12")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}

		var resp LoginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding login response: %v", err)
		}
		if resp.UserID != "user-1" {
			t.Fatalf("expected userId %q, got %q", "user-1", resp.UserID)
		}

		claims, err := a.tokens.ParseToken(context.Background(), resp.Token)
		if err != nil {
			t.Fatalf("issued token does not verify: %v", err)
		}
		if claims.Subject != "user-1" {
			t.Fatalf("token subject %q does not match account id", claims.Subject)
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknownEmail := doLogin("nobody@b.com", "Abcdef12")
		wrongPassword := doLogin("a@b.com", "Wrong1234")

		if unknownEmail.Code != http.StatusUnauthorized {
			t.Fatalf("unknown email: expected 401, got %d", unknownEmail.Code)
		}
		if wrongPassword.Code != http.StatusUnauthorized {
			t.Fatalf("wrong password: expected 401, got %d", wrongPassword.Code)
		}
		if unknownEmail.Body.String() != wrongPassword.Body.String() {
			t.Fatalf("responses differ: %q vs %q", unknownEmail.Body.String(), wrongPassword.Body.String())
		}
	})
}

// ---------------------------------------------
// Create
// ---------------------------------------------

func TestHandleCreateUser(t *testing.T) {
	t.Run("valid input persists a hashed credential", func(t *testing.T) {
		var inserted models.NewUser
		db := &stubDB{
			createUser: func(ctx context.Context, user models.NewUser) (models.User, error) {
				inserted = user
				return models.User{ID: "user-1", Name: user.Name, Email: user.Email, Password: user.Password}, nil
			},
		}
		a := newTestApp(t, db, nil, nil)
		router := a.RegisterRoutes()

		body, contentType := userForm("A", "a@b.com", "Abcdef12")
		req := httptest.NewRequest(http.MethodPost, "/users", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		if string(inserted.Password) == "Abcdef12" {
			t.Fatal("plaintext password reached the store")
		}
		if !a.hasher.CheckPasswordHash("Abcdef12", inserted.Password) {
			t.Fatal("stored hash does not match the supplied password")
		}
	})

	t.Run("policy violations are collapsed into one generic code", func(t *testing.T) {
		createCalled := false
		db := &stubDB{
			createUser: func(ctx context.Context, user models.NewUser) (models.User, error) {
				createCalled = true
				return models.User{}, nil
			},
		}
		a := newTestApp(t, db, nil, nil)
		router := a.RegisterRoutes()

		rejected := []string{
			"abcdef12",  // no uppercase
			"ABCDEF12",  // no lowercase
			"Abcdefgh",  // no digit
			"Abc 1234",  // whitespace
			"Ab1",       // too short
		}

		var bodies []string
		for _, pass := range rejected {
			body, contentType := userForm("A", "a@b.com", pass)
			req := httptest.NewRequest(http.MethodPost, "/users", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("password %q: expected 400, got %d", pass, w.Code)
			}
			if resp := decodeError(t, w); resp.Error != ErrInvalidUserData {
				t.Fatalf("password %q: expected %q, got %q", pass, ErrInvalidUserData, resp.Error)
			}
			bodies = append(bodies, w.Body.String())
		}

		for _, b := range bodies[1:] {
			if b != bodies[0] {
				t.Fatal("different policy violations must produce identical responses")
			}
		}
		if createCalled {
			t.Fatal("rejected input must never reach the store")
		}
	})

	t.Run("invalid email never reaches hashing or the store", func(t *testing.T) {
		a := newTestApp(t, &stubDB{}, nil, nil)
		router := a.RegisterRoutes()

		body, contentType := userForm("A", "not-an-email", "Abcdef12")
		req := httptest.NewRequest(http.MethodPost, "/users", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if resp := decodeError(t, w); resp.Error != ErrInvalidUserData {
			t.Fatalf("expected %q, got %q", ErrInvalidUserData, resp.Error)
		}
	})

	t.Run("duplicate email maps to a conflict", func(t *testing.T) {
		db := &stubDB{
			createUser: func(ctx context.Context, user models.NewUser) (models.User, error) {
				return models.User{}, sqldb.ErrDBDuplicatedEntry
			},
		}
		a := newTestApp(t, db, nil, nil)
		router := a.RegisterRoutes()

		body, contentType := userForm("A", "a@b.com", "Abcdef12")
		req := httptest.NewRequest(http.MethodPost, "/users", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})
}

// ---------------------------------------------
// Update
// ---------------------------------------------

func TestHandleUpdateUser(t *testing.T) {
	hasher := hash.NewHashService()
	oldHash, err := hasher.HashPassword("OldPass99")
	if err != nil {
		t.Fatalf("hashing fixture password: %v", err)
	}

	t.Run("re-hashes the supplied password into the stored record", func(t *testing.T) {
		var replaced models.NewUser
		db := &stubDB{
			getUserByID: func(ctx context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Name: "A", Email: "a@b.com", Password: oldHash}, nil
			},
			updateUser: func(ctx context.Context, userID string, user models.NewUser) (models.User, error) {
				replaced = user
				return models.User{ID: userID, Name: user.Name, Email: user.Email, Password: user.Password}, nil
			},
		}
		a := newTestApp(t, db, nil, nil)
		router := a.RegisterRoutes()

		body, contentType := userForm("A", "a@b.com", "NewPass77")
		req := httptest.NewRequest(http.MethodPut, "/users/user-1", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearerToken(t, a, "user-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if string(replaced.Password) == string(oldHash) {
			t.Fatal("stored credential must change on update")
		}
		if !a.hasher.CheckPasswordHash("NewPass77", replaced.Password) {
			t.Fatal("stored hash does not match the new password")
		}
		if a.hasher.CheckPasswordHash("OldPass99", replaced.Password) {
			t.Fatal("old password must no longer match the stored hash")
		}
	})

	t.Run("missing account leaves the store untouched", func(t *testing.T) {
		db := &stubDB{
			getUserByID: func(ctx context.Context, userID string) (models.User, error) {
				return models.User{}, sqldb.ErrDBNotFound
			},
		}
		a := newTestApp(t, db, nil, nil)
		router := a.RegisterRoutes()

		body, contentType := userForm("A", "a@b.com", "NewPass77")
		req := httptest.NewRequest(http.MethodPut, "/users/ghost", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", bearerToken(t, a, "user-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}

// ---------------------------------------------
// Delete
// ---------------------------------------------

func TestHandleDeleteUser(t *testing.T) {
	imagePath := "avatars/abc.jpg"

	t.Run("failed asset cleanup never blocks record removal", func(t *testing.T) {
		deleted := false
		db := &stubDB{
			getUserByID: func(ctx context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, ImagePath: &imagePath}, nil
			},
			deleteUser: func(ctx context.Context, userID string) error {
				deleted = true
				return nil
			},
		}
		store := &stubStorage{
			remove: func(ctx context.Context, objectPath string) error {
				return io.ErrUnexpectedEOF
			},
		}
		a := newTestApp(t, db, store, nil)
		router := a.RegisterRoutes()

		req := httptest.NewRequest(http.MethodDelete, "/users/user-1", nil)
		req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !deleted {
			t.Fatal("record must be removed even when asset cleanup fails")
		}
	})

	t.Run("missing account performs no removal", func(t *testing.T) {
		removeCalled := false
		db := &stubDB{
			getUserByID: func(ctx context.Context, userID string) (models.User, error) {
				return models.User{}, sqldb.ErrDBNotFound
			},
		}
		store := &stubStorage{
			remove: func(ctx context.Context, objectPath string) error {
				removeCalled = true
				return nil
			},
		}
		a := newTestApp(t, db, store, nil)
		router := a.RegisterRoutes()

		req := httptest.NewRequest(http.MethodDelete, "/users/ghost", nil)
		req.Header.Set("Authorization", bearerToken(t, a, "admin-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
		if removeCalled {
			t.Fatal("no asset removal may happen for a missing account")
		}
	})
}

// ---------------------------------------------
// List / auth requirement
// ---------------------------------------------

func TestHandleListUsers(t *testing.T) {
	db := &stubDB{
		listUsers: func(ctx context.Context) ([]models.User, error) {
			return []models.User{{ID: "user-1", Name: "A", Email: "a@b.com", Password: []byte("secret-hash")}}, nil
		},
	}
	a := newTestApp(t, db, nil, nil)
	router := a.RegisterRoutes()

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("never serializes the password hash", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", bearerToken(t, a, "user-1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "secret-hash") {
			t.Fatal("password hash leaked into the list response")
		}
	})
}
