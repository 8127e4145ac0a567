package api

import (
	"time"

	"github.com/goalcast/core/pkg/database/pool"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Pool      *pool.Stats       `json:"pool,omitempty"`
	Providers map[string]string `json:"providers,omitempty"`
	AI        string            `json:"ai,omitempty"`
}

// PaginationInfo represents pagination metadata
type PaginationInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}
