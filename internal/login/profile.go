package login

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
)

// Profile is the user object the provider embeds in its token response.
type Profile struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	IsStaff  bool   `json:"is_staff"`
}

func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return nil
}

// profileFromToken decodes the "user" member of the token response.
func profileFromToken(token *oauth2.Token) (*Profile, error) {
	raw := token.Extra("user")
	if raw == nil {
		return nil, fmt.Errorf("%w: user missing from token response", ErrInvalidProfile)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	profile := &Profile{}
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	return profile, nil
}
