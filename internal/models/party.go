package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the tenant that owns Targets.
type Customer struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	Contact   string     `json:"contact_person,omitempty" db:"contact_person"`
	Notes     string     `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewCustomer creates a Customer with a freshly minted ID.
func NewCustomer(name, email string) *Customer {
	return &Customer{ID: uuid.New().String(), Name: name, Email: email}
}

// Target is an IP or FQDN belonging to a Customer. (customer_id, address)
// is unique among non-deleted rows — enforced by the store, not here.
type Target struct {
	ID          string     `json:"id" db:"id"`
	CustomerID  string     `json:"customer_id" db:"customer_id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	Address     string     `json:"address" db:"address"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// NewTarget creates a Target with a freshly minted ID.
func NewTarget(customerID, displayName, address string) *Target {
	return &Target{ID: uuid.New().String(), CustomerID: customerID, DisplayName: displayName, Address: address}
}
