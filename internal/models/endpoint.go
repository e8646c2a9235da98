package models

import "encoding/json"

// Endpoint is a replacement proxy endpoint from the replacement directory,
// keyed there by package name.
type Endpoint struct {
	IP       string      `json:"ip"`
	User     string      `json:"user"`
	Port     json.Number `json:"port"`
	Password string      `json:"password"`
}
