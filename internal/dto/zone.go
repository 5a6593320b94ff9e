package dto

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prohmpiriya/shelf-booking/internal/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit far from int overflow
	MaxPage = 100_000
)

// ZoneListFilter represents the query string of GET /zones.
// Multi-value dimensions accept repeated parameters and comma-separated lists.
type ZoneListFilter struct {
	City      []string `form:"city" json:"city,omitempty"`
	Market    []string `form:"market" json:"market,omitempty"`
	Macrozone []string `form:"macrozone" json:"macrozone,omitempty"`
	Equipment []string `form:"equipment" json:"equipment,omitempty"`
	Supplier  []string `form:"supplier" json:"supplier,omitempty"`
	Category  []string `form:"category" json:"category,omitempty"`
	Status    string   `form:"status" json:"status,omitempty"`
	Search    string   `form:"search" json:"search,omitempty"`
	Page      int      `form:"page" json:"page"`
	Limit     int      `form:"limit" json:"limit"`
}

// SetDefaults sets default values for pagination
func (f *ZoneListFilter) SetDefaults() {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

// Normalize canonicalizes every dimension so equal filters compare and hash equal
func (f *ZoneListFilter) Normalize() {
	f.City = normalizeSet(f.City)
	f.Market = normalizeSet(f.Market)
	f.Macrozone = normalizeSet(f.Macrozone)
	f.Equipment = normalizeSet(f.Equipment)
	f.Supplier = normalizeSet(f.Supplier)
	f.Category = normalizeSet(f.Category)
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.Search = strings.TrimSpace(f.Search)
	f.SetDefaults()
}

// Validate validates the ZoneListFilter
func (f *ZoneListFilter) Validate() error {
	if f.Page > MaxPage {
		return fmt.Errorf("%w: page must not exceed %d", domain.ErrInvalidPage, MaxPage)
	}
	if f.Status == "" {
		return nil
	}
	_, err := domain.ParseZoneStatus(f.Status)
	return err
}

// Offset returns the row offset of the requested page
func (f *ZoneListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ScopeToCategory replaces the category dimension with the given category
func (f *ZoneListFilter) ScopeToCategory(category string) {
	f.Category = []string{category}
}

func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// UpdateZoneStatusRequest represents the body of PATCH /zones/:id/status
type UpdateZoneStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ClaimZoneRequest represents the body of PATCH /zones/:id
type ClaimZoneRequest struct {
	Supplier *string `json:"supplier"`
	Brand    *string `json:"brand"`
}

// ToClaim converts the request to a domain claim
func (r *ClaimZoneRequest) ToClaim() domain.ZoneClaim {
	return domain.ZoneClaim{Supplier: r.Supplier, Brand: r.Brand}
}

// BulkUpdateZonesRequest represents the body of POST /zones/bulk-update
type BulkUpdateZonesRequest struct {
	ZoneIDs []string `json:"zoneIds"`
	Status  string   `json:"status" binding:"required"`
}

// BulkDeleteZonesRequest represents the body of DELETE /zones/bulk-delete
type BulkDeleteZonesRequest struct {
	ZoneIDs []string `json:"zoneIds"`
}

// BulkResult reports how many zones a bulk operation touched
type BulkResult struct {
	Count int64 `json:"count"`
}

// ZoneRecord is one flat row of a zone import
type ZoneRecord struct {
	UniqueIdentifier  string `json:"uniqueIdentifier" binding:"required"`
	City              string `json:"city"`
	Market            string `json:"market"`
	MainMacrozone     string `json:"mainMacrozone"`
	AdjacentMacrozone string `json:"adjacentMacrozone"`
	Equipment         string `json:"equipment"`
	Dimensions        string `json:"dimensions"`
	Category          string `json:"category" binding:"required"`
}

// ToZone converts the record to a new AVAILABLE zone
func (r *ZoneRecord) ToZone() *domain.Zone {
	return &domain.Zone{
		UniqueIdentifier:  strings.TrimSpace(r.UniqueIdentifier),
		City:              strings.TrimSpace(r.City),
		Market:            strings.TrimSpace(r.Market),
		MainMacrozone:     strings.TrimSpace(r.MainMacrozone),
		AdjacentMacrozone: strings.TrimSpace(r.AdjacentMacrozone),
		Equipment:         strings.TrimSpace(r.Equipment),
		Dimensions:        strings.TrimSpace(r.Dimensions),
		Category:          strings.TrimSpace(r.Category),
		Status:            domain.ZoneStatusAvailable,
	}
}

// ImportZonesRequest represents the body of POST /zones/import
type ImportZonesRequest struct {
	Zones []ZoneRecord `json:"zones" binding:"required,min=1,dive"`
}

// ImportResult reports the outcome of a zone import
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ZoneListResponse is a page of zones; it is what the zone-list cache stores
type ZoneListResponse struct {
	Zones []*domain.Zone `json:"zones"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
