// Package sqldb provides database operations for the links2code API.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
	"github.com/philippebeck/links2code-api/internal/sdk/models"
)

// lib/pq errorCodeNames
// https://github.com/lib/pq/blob/master/error.go#L178
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	notNullViolation    = "23502"
)

var (
	ErrDBNotFound          = sql.ErrNoRows
	ErrDBDuplicatedEntry   = errors.New("duplicated entry")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrNotNullViolation    = errors.New("not null violation")
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health(ctx context.Context) map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	// User operations
	GetUserByID(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.NewUser) (models.User, error)
	UpdateUser(ctx context.Context, userID string, user models.NewUser) (models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// Link operations
	GetLinkByID(ctx context.Context, linkID string) (models.Link, error)
	CreateLink(ctx context.Context, link models.NewLink) (models.Link, error)
	UpdateLink(ctx context.Context, linkID string, link models.NewLink) (models.Link, error)
	DeleteLink(ctx context.Context, linkID string) error
	ListLinks(ctx context.Context) ([]models.Link, error)
}

type service struct {
	db *sql.DB
}

var _ Service = (*service)(nil)

var dbInstance *service

func New() Service {
	// Reuse Connection
	if dbInstance != nil {
		return dbInstance
	}

	var (
		username = os.Getenv("DB_USERNAME")
		password = os.Getenv("DB_PASSWORD")
		host     = os.Getenv("DB_HOST")
		port     = os.Getenv("DB_PORT")
		database = os.Getenv("DB_DATABASE")
	)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", username, password, host, port, database)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal(err)
	}
	dbInstance = &service{
		db: db,
	}
	return dbInstance
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics. The ping
// is bounded by the caller's context, capped at one second.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Println("Disconnected from database")
	return s.db.Close()
}

// ---------------------------------------------
// User Operations
// ---------------------------------------------

// GetUserByID retrieves a user by their ID
func (s *service) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT
			id,
			name,
			email,
			password,
			image_path,
			created_at,
			updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.ImagePath,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		return models.User{}, fmt.Errorf("selecting user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by their email address
func (s *service) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
		SELECT
			id,
			name,
			email,
			password,
			image_path,
			created_at,
			updated_at
		FROM users
		WHERE email = $1
	`

	var user models.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.ImagePath,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		return models.User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return user, nil
}

// CreateUser inserts a new user into the database
func (s *service) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	const query = `
		INSERT INTO users (name, email, password, image_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password, image_path, created_at, updated_at
	`

	var user models.User

	err := s.db.QueryRowContext(ctx, query,
		nu.Name,
		nu.Email,
		nu.Password,
		nu.ImagePath,
	).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.ImagePath,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if isPgError(err, uniqueViolation) {
			return models.User{}, ErrDBDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

// UpdateUser replaces the full user document identified by userID
func (s *service) UpdateUser(ctx context.Context, userID string, nu models.NewUser) (models.User, error) {
	const query = `
		UPDATE users
		SET name = $2,
		    email = $3,
		    password = $4,
		    image_path = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, name, email, password, image_path, created_at, updated_at
	`

	var user models.User

	err := s.db.QueryRowContext(ctx, query,
		userID,
		nu.Name,
		nu.Email,
		nu.Password,
		nu.ImagePath,
	).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&user.ImagePath,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrDBNotFound
		}
		if isPgError(err, uniqueViolation) {
			return models.User{}, ErrDBDuplicatedEntry
		}
		return models.User{}, fmt.Errorf("updating user: %w", err)
	}

	return user, nil
}

// DeleteUser removes the user record identified by userID
func (s *service) DeleteUser(ctx context.Context, userID string) error {
	const query = `
		DELETE FROM users
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrDBNotFound
	}

	return nil
}

// ListUsers retrieves all users from the database
func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	const query = `
		SELECT
			id,
			name,
			email,
			password,
			image_path,
			created_at,
			updated_at
		FROM users
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Password,
			&user.ImagePath,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	return users, nil
}

// ---------------------------------------------
// Link Operations
// ---------------------------------------------

// GetLinkByID retrieves a link by its ID
func (s *service) GetLinkByID(ctx context.Context, linkID string) (models.Link, error) {
	const query = `
		SELECT id, title, url, created_at, updated_at
		FROM links
		WHERE id = $1
	`

	var link models.Link
	err := s.db.QueryRowContext(ctx, query, linkID).Scan(
		&link.ID,
		&link.Title,
		&link.URL,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Link{}, ErrDBNotFound
		}
		return models.Link{}, fmt.Errorf("selecting link: %w", err)
	}

	return link, nil
}

// CreateLink inserts a new link into the database
func (s *service) CreateLink(ctx context.Context, nl models.NewLink) (models.Link, error) {
	const query = `
		INSERT INTO links (title, url)
		VALUES ($1, $2)
		RETURNING id, title, url, created_at, updated_at
	`

	var link models.Link
	err := s.db.QueryRowContext(ctx, query, nl.Title, nl.URL).Scan(
		&link.ID,
		&link.Title,
		&link.URL,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err != nil {
		if isPgError(err, uniqueViolation) {
			return models.Link{}, ErrDBDuplicatedEntry
		}
		return models.Link{}, fmt.Errorf("creating link: %w", err)
	}

	return link, nil
}

// UpdateLink replaces the full link document identified by linkID
func (s *service) UpdateLink(ctx context.Context, linkID string, nl models.NewLink) (models.Link, error) {
	const query = `
		UPDATE links
		SET title = $2,
		    url = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, title, url, created_at, updated_at
	`

	var link models.Link
	err := s.db.QueryRowContext(ctx, query, linkID, nl.Title, nl.URL).Scan(
		&link.ID,
		&link.Title,
		&link.URL,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Link{}, ErrDBNotFound
		}
		return models.Link{}, fmt.Errorf("updating link: %w", err)
	}

	return link, nil
}

// DeleteLink removes the link record identified by linkID
func (s *service) DeleteLink(ctx context.Context, linkID string) error {
	const query = `
		DELETE FROM links
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, linkID)
	if err != nil {
		return fmt.Errorf("deleting link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrDBNotFound
	}

	return nil
}

// ListLinks retrieves all links from the database
func (s *service) ListLinks(ctx context.Context) ([]models.Link, error) {
	const query = `
		SELECT id, title, url, created_at, updated_at
		FROM links
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing links: %w", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		err := rows.Scan(
			&link.ID,
			&link.Title,
			&link.URL,
			&link.CreatedAt,
			&link.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}

	return links, nil
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

// isPgError checks if the error is a PostgreSQL error with the given code
func isPgError(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDBNotFound)
}

// IsDuplicateEntry checks if the error is a duplicate entry error.
func IsDuplicateEntry(err error) bool {
	return isPgError(err, uniqueViolation)
}
