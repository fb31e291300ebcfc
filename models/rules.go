package models

import (
	"encoding/json"
	"fmt"

	"github.com/PayRam/go-affiliate/conditions"
)

const (
	RuleActionRedirect = "redirect"
	RuleActionBlock    = "block"
)

// RedirectRule is one priority-ordered smart-link rule. All conditions
// are AND-ed; the highest-priority matching rule wins, ties broken by
// configuration order.
type RedirectRule struct {
	Priority   int                    `json:"priority"`
	Action     string                 `json:"action"` // redirect or block
	URL        string                 `json:"url,omitempty"`
	Conditions []conditions.Condition `json:"conditions"`
	IsActive   bool                   `json:"isActive"`
}

type GeoRedirect struct {
	Country string `json:"country"` // ISO 3166-1 alpha-2, upper case
	URL     string `json:"url"`
}

type DeviceRedirect struct {
	Device string `json:"device"` // e.g. mobile, desktop, tablet
	URL    string `json:"url"`
}

// TimeRedirect matches at hour granularity: the visit's weekday must be
// listed in Days and its hour must fall within [StartHour, EndHour].
type TimeRedirect struct {
	Days      []int  `json:"days"` // 0 = Sunday .. 6 = Saturday
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	URL       string `json:"url"`
	IsActive  bool   `json:"isActive"`
}

func (s *SmartLink) RedirectRules() ([]RedirectRule, error) {
	var rules []RedirectRule
	if err := decodeJSONColumn(s.Rules, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rules for smart link %d: %w", s.ID, err)
	}
	return rules, nil
}

func (s *SmartLink) GeoRules() ([]GeoRedirect, error) {
	var rules []GeoRedirect
	if err := decodeJSONColumn(s.GeoRedirects, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode geo redirects for smart link %d: %w", s.ID, err)
	}
	return rules, nil
}

func (s *SmartLink) DeviceRules() ([]DeviceRedirect, error) {
	var rules []DeviceRedirect
	if err := decodeJSONColumn(s.DeviceRedirects, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode device redirects for smart link %d: %w", s.ID, err)
	}
	return rules, nil
}

func (s *SmartLink) TimeRules() ([]TimeRedirect, error) {
	var rules []TimeRedirect
	if err := decodeJSONColumn(s.TimeRedirects, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode time redirects for smart link %d: %w", s.ID, err)
	}
	return rules, nil
}

const (
	TransformRenameField    = "RENAME_FIELD"
	TransformAddField       = "ADD_FIELD"
	TransformRemoveField    = "REMOVE_FIELD"
	TransformFormatField    = "FORMAT_FIELD"
	TransformCalculateField = "CALCULATE_FIELD"
)

const (
	FormatUppercase = "UPPERCASE"
	FormatLowercase = "LOWERCASE"
	FormatDateISO   = "DATE_ISO"
	FormatCurrency  = "CURRENCY"
)

// Transformation is one step of the webhook transform stage, applied in
// configuration order before filters run.
type Transformation struct {
	Type    string      `json:"type"`
	Field   string      `json:"field,omitempty"`
	NewName string      `json:"newName,omitempty"` // RENAME_FIELD target
	Value   interface{} `json:"value,omitempty"`   // ADD_FIELD constant
	Format  string      `json:"format,omitempty"`  // FORMAT_FIELD mode
	Formula string      `json:"formula,omitempty"` // CALCULATE_FIELD expression with {{placeholders}}
}

// PayloadFilter gates delivery. A negated filter inverts the condition's
// result; any effective false aborts delivery as filtered-out.
type PayloadFilter struct {
	Condition conditions.Condition `json:"condition"`
	Negate    bool                 `json:"negate"`
}

func (w *Webhook) SubscribedEvents() ([]string, error) {
	var events []string
	if err := decodeJSONColumn(w.Events, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events for webhook %d: %w", w.ID, err)
	}
	return events, nil
}

func (w *Webhook) TransformationList() ([]Transformation, error) {
	var transforms []Transformation
	if err := decodeJSONColumn(w.Transformations, &transforms); err != nil {
		return nil, fmt.Errorf("failed to decode transformations for webhook %d: %w", w.ID, err)
	}
	return transforms, nil
}

func (w *Webhook) FilterList() ([]PayloadFilter, error) {
	var filters []PayloadFilter
	if err := decodeJSONColumn(w.Filters, &filters); err != nil {
		return nil, fmt.Errorf("failed to decode filters for webhook %d: %w", w.ID, err)
	}
	return filters, nil
}

func (r *ValidationRule) ConditionList() ([]conditions.Condition, error) {
	var conds []conditions.Condition
	if err := decodeJSONColumn(r.Conditions, &conds); err != nil {
		return nil, fmt.Errorf("failed to decode conditions for validation rule %d: %w", r.ID, err)
	}
	return conds, nil
}

func decodeJSONColumn(raw *string, dest interface{}) error {
	if raw == nil || *raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), dest)
}

// EncodeJSONColumn serialises a rule set or pipeline configuration for
// storage in a JSON column.
func EncodeJSONColumn(v interface{}) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
