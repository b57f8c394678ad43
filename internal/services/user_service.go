package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// UserFilter narrows a user listing. Empty fields match everything.
type UserFilter struct {
	Role     string
	Domain   string
	Language string
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(id string) (models.User, error)
	ListUsers(filter UserFilter) ([]models.User, error)
	CreateUser(user models.User, password string) (models.User, error)
	UpdateUser(id string, user models.User) (models.User, error)
	UpdatePassword(id, currentPassword, newPassword string) error
	DeleteUser(id string) error
	AuthenticateUser(email, password string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

const userColumns = "id, name, email, password_hash, role, domain, languages_json, location, created_at"

func scanUser(scanner rowScanner) (models.User, error) {
	var user models.User
	var domain, languages, location sql.NullString
	err := scanner.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&domain, &languages, &location, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	user.Domain = domain.String
	user.LanguagesJSON = languages.String
	user.Location = location.String
	user.PrepareForAPI()
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id string) (models.User, error) {
	user, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return models.User{}, notFound(err, "user", id)
	}
	user.PasswordHash = ""
	return user, nil
}

// getUserByEmail retrieves a single user by their email, including the password hash.
func (s *UserService) getUserByEmail(email string) (models.User, error) {
	user, err := scanUser(s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email)))
	if err != nil {
		return models.User{}, notFound(err, "user", email)
	}
	return user, nil
}

// ListUsers returns users matching the filter, newest first.
func (s *UserService) ListUsers(filter UserFilter) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1 = 1"
	var args []interface{}
	if filter.Role != "" {
		query += " AND role = ?"
		args = append(args, filter.Role)
	}
	if filter.Domain != "" {
		query += " AND domain LIKE ?"
		args = append(args, "%"+filter.Domain+"%")
	}
	if filter.Language != "" {
		// languages_json is a JSON array of strings.
		query += " AND languages_json LIKE ?"
		args = append(args, `%"`+filter.Language+`"%`)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, rows.Err()
}

// CreateUser creates a new user, hashing their password.
func (s *UserService) CreateUser(user models.User, password string) (models.User, error) {
	if !models.ValidRole(user.Role) {
		return models.User{}, fmt.Errorf("unknown role %q: %w", user.Role, ErrInvalidInput)
	}
	if len(password) < 8 {
		return models.User{}, fmt.Errorf("password must be at least 8 characters: %w", ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user.ID = uuid.New().String()
	user.Email = normalizeEmail(user.Email)
	user.PasswordHash = string(hashedPassword)
	user.CreatedAt = now()
	user.PrepareForSave()

	_, err = s.db.Exec("INSERT INTO users("+userColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.Domain, user.LanguagesJSON, user.Location, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return models.User{}, err
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// UpdateUser updates a user's profile information. Role and password are not changed here.
func (s *UserService) UpdateUser(id string, user models.User) (models.User, error) {
	user.PrepareForSave()
	res, err := s.db.Exec("UPDATE users SET name = ?, email = ?, domain = ?, languages_json = ?, location = ? WHERE id = ?",
		user.Name, normalizeEmail(user.Email), user.Domain, user.LanguagesJSON, user.Location, id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return s.GetUserByID(id)
}

// UpdatePassword verifies the current password, then hashes and sets a new password for a user.
func (s *UserService) UpdatePassword(id, currentPassword, newPassword string) error {
	var hash string
	err := s.db.QueryRow("SELECT password_hash FROM users WHERE id = ?", id).Scan(&hash)
	if err != nil {
		return notFound(err, "user", id)
	}

	// Check if the current password is correct
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", ErrAuthenticationFailed)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.Exec("UPDATE users SET password_hash = ? WHERE id = ?", string(hashedPassword), id)
	return err
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(id string) error {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// AuthenticateUser verifies a user's credentials.
func (s *UserService) AuthenticateUser(email, password string) (models.User, error) {
	user, err := s.getUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, fmt.Errorf("user not found: %w", ErrAuthenticationFailed)
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, fmt.Errorf("invalid password: %w", ErrAuthenticationFailed)
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
