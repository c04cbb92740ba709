package models

import (
	"strings"
	"time"
)

// ResetClientRequest clears the rate-limit state of one client identity.
type ResetClientRequest struct {
	Kind       KeyPrefix `json:"kind" validate:"required,oneof=ip user apikey"`
	Identifier string    `json:"identifier" validate:"required,max=256"`
}

// Normalize trims input and lowercases the kind.
func (r *ResetClientRequest) Normalize() {
	r.Kind = KeyPrefix(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	r.Identifier = strings.TrimSpace(r.Identifier)
}

// BlockedIPsResponse lists active blocks.
type BlockedIPsResponse struct {
	Blocked []BlockedIP `json:"blocked"`
	Count   int         `json:"count"`
}

// UnblockResponse confirms a lifted block.
type UnblockResponse struct {
	IP        string    `json:"ip"`
	Unblocked bool      `json:"unblocked"`
	At        time.Time `json:"at"`
}

// ResetClientResponse confirms a rate-limit reset.
type ResetClientResponse struct {
	ClientKey string `json:"client_key"`
	Reset     bool   `json:"reset"`
}
