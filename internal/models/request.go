// Package models - API request types with validation and normalization.
package models

import (
	"fmt"
	"strings"
)

// GenerateCardsRequest asks for count synthetic numbers on the given prefix.
type GenerateCardsRequest struct {
	Bin     string `json:"bin"`
	Count   int    `json:"count"`
	Country string `json:"country,omitempty"` // AVS postal data, optional
}

// Validate checks the request fields. The count ceiling is enforced
// separately against the configured per-request maximum.
func (r *GenerateCardsRequest) Validate() error {
	if r.Bin == "" {
		return fmt.Errorf("bin is required")
	}
	if len(r.Bin) < 6 || len(r.Bin) > 8 {
		return fmt.Errorf("bin must be 6 to 8 digits")
	}
	for i := 0; i < len(r.Bin); i++ {
		if r.Bin[i] < '0' || r.Bin[i] > '9' {
			return fmt.Errorf("bin must contain only digits")
		}
	}
	if r.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	return nil
}

// Normalize trims whitespace and upper-cases the country code.
func (r *GenerateCardsRequest) Normalize() {
	r.Bin = strings.TrimSpace(r.Bin)
	r.Country = strings.ToUpper(strings.TrimSpace(r.Country))
}

// CreateKeyRequest mints a new API key.
type CreateKeyRequest struct {
	Name          string   `json:"name"`
	OwnerID       string   `json:"owner_id"`
	Tier          Tier     `json:"tier"`
	Permissions   []string `json:"permissions"`
	ExpiresInDays int      `json:"expires_in_days,omitempty"` // 0 = no expiry
}

// Validate checks the request fields.
func (r *CreateKeyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !r.Tier.Valid() {
		return fmt.Errorf("tier must be one of free, pro, enterprise")
	}
	if len(r.Permissions) == 0 {
		return fmt.Errorf("at least one permission is required")
	}
	if _, err := ParsePermissionRules(r.Permissions); err != nil {
		return err
	}
	if r.ExpiresInDays < 0 {
		return fmt.Errorf("expires_in_days must not be negative")
	}
	return nil
}

// Normalize trims whitespace from the name and owner.
func (r *CreateKeyRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.OwnerID = strings.TrimSpace(r.OwnerID)
}

// UpdateKeyRequest patches mutable key fields; nil pointers leave the field
// unchanged.
type UpdateKeyRequest struct {
	Name        *string  `json:"name,omitempty"`
	Active      *bool    `json:"active,omitempty"`
	Tier        *Tier    `json:"tier,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Validate checks the provided fields.
func (r *UpdateKeyRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if r.Tier != nil && !r.Tier.Valid() {
		return fmt.Errorf("tier must be one of free, pro, enterprise")
	}
	if r.Permissions != nil {
		if _, err := ParsePermissionRules(r.Permissions); err != nil {
			return err
		}
	}
	return nil
}
