package serviceimpl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PayRam/go-affiliate/conditions"
	"github.com/PayRam/go-affiliate/models"
	"github.com/PayRam/go-affiliate/request"
	"github.com/PayRam/go-affiliate/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type smartLinkService struct {
	DB *gorm.DB
}

func NewSmartLinkService(db *gorm.DB) *smartLinkService {
	return &smartLinkService{DB: db}
}

func (s *smartLinkService) CreateSmartLink(project string, req request.CreateSmartLinkRequest) (*models.SmartLink, error) {
	link := &models.SmartLink{
		Project: project,
		Slug:    req.Slug,
		Name:    req.Name,
		BaseURL: req.BaseURL,
		Status:  models.SmartLinkStatusActive,
	}

	var err error
	if link.Rules, err = models.EncodeJSONColumn(req.Rules); err != nil {
		return nil, fmt.Errorf("failed to encode rules: %w", err)
	}
	if link.GeoRedirects, err = models.EncodeJSONColumn(req.GeoRedirects); err != nil {
		return nil, fmt.Errorf("failed to encode geo redirects: %w", err)
	}
	if link.DeviceRedirects, err = models.EncodeJSONColumn(req.DeviceRedirects); err != nil {
		return nil, fmt.Errorf("failed to encode device redirects: %w", err)
	}
	if link.TimeRedirects, err = models.EncodeJSONColumn(req.TimeRedirects); err != nil {
		return nil, fmt.Errorf("failed to encode time redirects: %w", err)
	}

	if err := s.DB.Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("slug %s already exists for project %s", req.Slug, project)
		}
		return nil, fmt.Errorf("failed to create smart link: %w", err)
	}

	return link, nil
}

func (s *smartLinkService) UpdateSmartLink(project, slug string, req request.UpdateSmartLinkRequest) (*models.SmartLink, error) {
	var link models.SmartLink

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project = ? AND slug = ?", project, slug).
			First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("smart link %s not found for project %s", slug, project)
			}
			return fmt.Errorf("failed to fetch smart link: %w", err)
		}

		if req.Name != nil {
			link.Name = *req.Name
		}
		if req.BaseURL != nil {
			link.BaseURL = *req.BaseURL
		}
		if req.Status != nil {
			if *req.Status != models.SmartLinkStatusActive && *req.Status != models.SmartLinkStatusDisabled {
				return fmt.Errorf("invalid new status: must be 'active' or 'disabled'")
			}
			link.Status = *req.Status
		}

		var err error
		if req.Rules != nil {
			if link.Rules, err = models.EncodeJSONColumn(*req.Rules); err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}
		}
		if req.GeoRedirects != nil {
			if link.GeoRedirects, err = models.EncodeJSONColumn(*req.GeoRedirects); err != nil {
				return fmt.Errorf("failed to encode geo redirects: %w", err)
			}
		}
		if req.DeviceRedirects != nil {
			if link.DeviceRedirects, err = models.EncodeJSONColumn(*req.DeviceRedirects); err != nil {
				return fmt.Errorf("failed to encode device redirects: %w", err)
			}
		}
		if req.TimeRedirects != nil {
			if link.TimeRedirects, err = models.EncodeJSONColumn(*req.TimeRedirects); err != nil {
				return fmt.Errorf("failed to encode time redirects: %w", err)
			}
		}

		if err := tx.Save(&link).Error; err != nil {
			return fmt.Errorf("failed to update smart link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (s *smartLinkService) GetSmartLinks(req request.GetSmartLinkRequest) ([]models.SmartLink, int64, error) {
	var links []models.SmartLink
	var count int64

	query := s.DB.Model(&models.SmartLink{})

	query = request.ApplyGetSmartLinkRequest(req, query)

	countQuery := query
	if err := countQuery.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count smart links: %w", err)
	}

	query = request.ApplyPaginationConditions(query, req.PaginationConditions)

	if err := query.Find(&links).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch smart links: %w", err)
	}

	return links, count, nil
}

// Resolve walks the redirect stages in fixed precedence: custom rules by
// descending priority, then geo, device and time redirects, then the base
// URL. A disabled link still resolves to its base URL so shared links
// keep working.
func (s *smartLinkService) Resolve(project, slug string, req request.ResolveRequest) (*response.ResolveResult, error) {
	var link models.SmartLink
	if err := s.DB.Where("project = ? AND slug = ?", project, slug).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("smart link %s not found for project %s", slug, project)
		}
		return nil, fmt.Errorf("failed to fetch smart link: %w", err)
	}

	if link.Status != models.SmartLinkStatusActive {
		return &response.ResolveResult{Redirect: true, URL: link.BaseURL, Reason: "fallback"}, nil
	}

	payload := resolvePayload(req)

	rules, err := link.RedirectRules()
	if err != nil {
		return nil, err
	}
	active := rules[:0]
	for _, rule := range rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})
	for _, rule := range active {
		if !conditions.Evaluate(payload, rule.Conditions) {
			continue
		}
		if rule.Action == models.RuleActionBlock {
			return &response.ResolveResult{Redirect: false, Reason: "blocked"}, nil
		}
		return &response.ResolveResult{Redirect: true, URL: rule.URL, Reason: "rule"}, nil
	}

	if req.Country != "" {
		geo, err := link.GeoRules()
		if err != nil {
			return nil, err
		}
		for _, g := range geo {
			if strings.EqualFold(g.Country, req.Country) {
				return &response.ResolveResult{Redirect: true, URL: g.URL, Reason: "geo"}, nil
			}
		}
	}

	if req.Device != "" {
		devices, err := link.DeviceRules()
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			if strings.EqualFold(d.Device, req.Device) {
				return &response.ResolveResult{Redirect: true, URL: d.URL, Reason: "device"}, nil
			}
		}
	}

	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}
	times, err := link.TimeRules()
	if err != nil {
		return nil, err
	}
	for _, t := range times {
		if t.IsActive && timeRuleMatches(t, at) {
			return &response.ResolveResult{Redirect: true, URL: t.URL, Reason: "time"}, nil
		}
	}

	return &response.ResolveResult{Redirect: true, URL: link.BaseURL, Reason: "fallback"}, nil
}

func timeRuleMatches(rule models.TimeRedirect, at time.Time) bool {
	dayOK := false
	weekday := int(at.Weekday())
	for _, d := range rule.Days {
		if d == weekday {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}
	hour := at.Hour()
	return hour >= rule.StartHour && hour <= rule.EndHour
}

// resolvePayload exposes the visitor context to custom rule conditions.
// Attributes are merged flat so rules can address e.g. "utm_source".
func resolvePayload(req request.ResolveRequest) map[string]interface{} {
	payload := make(map[string]interface{}, len(req.Attributes)+2)
	for k, v := range req.Attributes {
		payload[k] = v
	}
	if req.Country != "" {
		payload["country"] = req.Country
	}
	if req.Device != "" {
		payload["device"] = req.Device
	}
	return payload
}
