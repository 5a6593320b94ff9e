package dto

import (
	"fmt"
	"strings"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
)

// UpdateRequestStatusRequest represents the body of PATCH /requests/:id
type UpdateRequestStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RequestListFilter represents the query string of GET /requests
type RequestListFilter struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`

	// Set server-side from the caller
	UserID   string `form:"-"`
	Category string `form:"-"`
}

// SetDefaults sets default values for pagination
func (f *RequestListFilter) SetDefaults() {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
}

// Validate validates the RequestListFilter
func (f *RequestListFilter) Validate() error {
	if f.Page > MaxPage {
		return fmt.Errorf("%w: page must not exceed %d", domain.ErrInvalidPage, MaxPage)
	}
	if f.Status == "" {
		return nil
	}
	_, err := domain.ParseRequestStatus(f.Status)
	return err
}

// Offset returns the row offset of the requested page
func (f *RequestListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
