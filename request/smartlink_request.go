package request

import (
	"time"

	"github.com/PayRam/go-affiliate/models"
	"gorm.io/gorm"
)

type CreateSmartLinkRequest struct {
	Slug            string                  `json:"slug" binding:"required"`
	Name            string                  `json:"name" binding:"required"`
	BaseURL         string                  `json:"baseURL" binding:"required"`
	Rules           []models.RedirectRule   `json:"rules"`
	GeoRedirects    []models.GeoRedirect    `json:"geoRedirects"`
	DeviceRedirects []models.DeviceRedirect `json:"deviceRedirects"`
	TimeRedirects   []models.TimeRedirect   `json:"timeRedirects"`
}

type UpdateSmartLinkRequest struct {
	Name            *string                  `json:"name"`
	BaseURL         *string                  `json:"baseURL"`
	Status          *string                  `json:"status"`
	Rules           *[]models.RedirectRule   `json:"rules"`
	GeoRedirects    *[]models.GeoRedirect    `json:"geoRedirects"`
	DeviceRedirects *[]models.DeviceRedirect `json:"deviceRedirects"`
	TimeRedirects   *[]models.TimeRedirect   `json:"timeRedirects"`
}

type GetSmartLinkRequest struct {
	Projects             []string             `form:"projects"`
	ID                   *uint                `form:"id"`
	Slug                 *string              `form:"slug"`
	Status               *string              `form:"status"`
	PaginationConditions PaginationConditions `form:"paginationConditions"`
}

func ApplyGetSmartLinkRequest(req GetSmartLinkRequest, query *gorm.DB) *gorm.DB {
	if len(req.Projects) > 0 {
		query = query.Where("affiliate_smart_links.project IN (?)", req.Projects)
	}
	if req.ID != nil {
		query = query.Where("affiliate_smart_links.id = ?", *req.ID)
	}
	if req.Slug != nil {
		query = query.Where("affiliate_smart_links.slug = ?", *req.Slug)
	}
	if req.Status != nil {
		query = query.Where("affiliate_smart_links.status = ?", *req.Status)
	}
	return query
}

// ResolveRequest is the visitor context a smart link is resolved
// against. Attributes feed custom rule conditions, e.g. utm fields.
type ResolveRequest struct {
	Country    string                 `json:"country"` // ISO 3166-1 alpha-2
	Device     string                 `json:"device"`
	Timestamp  *time.Time             `json:"timestamp"` // Defaults to now
	Attributes map[string]interface{} `json:"attributes"`
}
