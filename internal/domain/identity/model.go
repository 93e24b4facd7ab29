// Package identity manages application users and the login flow. Every user
// holds exactly one role; FED_USER, CLUB_USER and LAB_USER accounts are
// additionally scoped to their organization.
package identity

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	FederationID *string   `json:"federationId"`
	ClubID       *string   `json:"clubId"`
	LabID        *string   `json:"labId"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}
