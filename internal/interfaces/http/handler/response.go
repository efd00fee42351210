package handler

import "github.com/fxoffice/backend/internal/interfaces/http/dto"

// Swagger-only shapes. Handlers write dto.Response; these give swag a typed Data field.

// APIResponse is the success envelope with a typed payload
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// KYCStatusCounts maps a KYC status (PENDING, VERIFIED, REJECTED) to its customer count
type KYCStatusCounts map[string]int64
