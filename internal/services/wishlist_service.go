package services

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// WishlistServiceProvider defines the interface for a manager's saved experts.
type WishlistServiceProvider interface {
	GetWishlist(managerID string) ([]models.WishlistEntry, error)
	AddToWishlist(managerID, expertID, note string) (models.WishlistEntry, error)
	RemoveFromWishlist(managerID, expertID string) error
}

// WishlistService provides business logic for wishlists.
type WishlistService struct {
	db *sql.DB
}

// NewWishlistService creates a new WishlistService.
func NewWishlistService(db *sql.DB) *WishlistService {
	return &WishlistService{db: db}
}

// GetWishlist lists the manager's saved experts together with their profiles.
func (s *WishlistService) GetWishlist(managerID string) ([]models.WishlistEntry, error) {
	rows, err := s.db.Query(`
		SELECT w.id, w.manager_id, w.expert_id, w.note, w.created_at,
		       u.id, u.name, u.email, u.password_hash, u.role, u.domain, u.languages_json, u.location, u.created_at
		FROM wishlist w JOIN users u ON u.id = w.expert_id
		WHERE w.manager_id = ? ORDER BY w.created_at DESC`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.WishlistEntry{}
	for rows.Next() {
		var e models.WishlistEntry
		var note, domain, languages, location sql.NullString
		var u models.User
		if err := rows.Scan(&e.ID, &e.ManagerID, &e.ExpertID, &note, &e.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &domain, &languages, &location, &u.CreatedAt); err != nil {
			return nil, err
		}
		e.Note = note.String
		u.PasswordHash = ""
		u.Domain = domain.String
		u.LanguagesJSON = languages.String
		u.Location = location.String
		u.PrepareForAPI()
		e.Expert = &u
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddToWishlist saves an annotator to the manager's wishlist.
func (s *WishlistService) AddToWishlist(managerID, expertID, note string) (models.WishlistEntry, error) {
	role, err := userRole(s.db, expertID)
	if err != nil {
		return models.WishlistEntry{}, err
	}
	if role != models.RoleAnnotator {
		return models.WishlistEntry{}, fmt.Errorf("user %s is not an expert: %w", expertID, ErrInvalidInput)
	}

	entry := models.WishlistEntry{
		ID:        uuid.New().String(),
		ManagerID: managerID,
		ExpertID:  expertID,
		Note:      note,
		CreatedAt: now(),
	}
	_, err = s.db.Exec("INSERT INTO wishlist (id, manager_id, expert_id, note, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.ManagerID, entry.ExpertID, entry.Note, entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.WishlistEntry{}, fmt.Errorf("expert %s is already on the wishlist: %w", expertID, ErrConflict)
		}
		return models.WishlistEntry{}, err
	}
	return entry, nil
}

// RemoveFromWishlist removes an expert from the manager's wishlist.
func (s *WishlistService) RemoveFromWishlist(managerID, expertID string) error {
	res, err := s.db.Exec("DELETE FROM wishlist WHERE manager_id = ? AND expert_id = ?", managerID, expertID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expert %s on wishlist: %w", expertID, ErrNotFound)
	}
	return nil
}
