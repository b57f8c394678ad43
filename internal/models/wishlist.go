package models

import "time"

// WishlistEntry is an expert a manager saved for later.
type WishlistEntry struct {
	ID        string    `json:"id"`
	ManagerID string    `json:"managerId"`
	ExpertID  string    `json:"expertId"`
	Note      string    `json:"note,omitempty"`
	Expert    *User     `json:"expert,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
