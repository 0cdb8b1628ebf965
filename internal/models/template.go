package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TemplateFrequency describes how often a checklist is expected to run.
type TemplateFrequency string

const (
	FrequencyDaily   TemplateFrequency = "daily"
	FrequencyWeekly  TemplateFrequency = "weekly"
	FrequencyMonthly TemplateFrequency = "monthly"
	FrequencyAdhoc   TemplateFrequency = "adhoc"
)

// Valid reports whether the frequency is one of the known values.
func (f TemplateFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyAdhoc:
		return true
	}
	return false
}

// Template is a checklist definition composed of ordered sections and items.
type Template struct {
	ID        string             `db:"id" json:"id"`
	Name      string             `db:"name" json:"name"`
	IsActive  bool               `db:"is_active" json:"is_active"`
	Frequency *TemplateFrequency `db:"frequency" json:"frequency,omitempty"`
	Version   int                `db:"version" json:"version"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// Section groups items within a template. Sort order drives display and
// evaluation sequence; ties fall back to creation order.
type Section struct {
	ID         string    `db:"id" json:"id"`
	TemplateID string    `db:"template_id" json:"template_id"`
	Name       string    `db:"name" json:"name"`
	SortOrder  int       `db:"sort_order" json:"sort_order"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ItemType enumerates the supported typed questions.
type ItemType string

const (
	ItemTypeYesNo    ItemType = "yesno"
	ItemTypeNumber   ItemType = "number"
	ItemTypeText     ItemType = "text"
	ItemTypeSelect   ItemType = "select"
	ItemTypeCheckbox ItemType = "checkbox"
)

// Valid reports whether the item type is one of the known values.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeYesNo, ItemTypeNumber, ItemTypeText, ItemTypeSelect, ItemTypeCheckbox:
		return true
	}
	return false
}

// Item is a single typed question within a section. Config is only meaningful
// for select items, where it carries the ordered option list.
type Item struct {
	ID        string         `db:"id" json:"id"`
	SectionID string         `db:"section_id" json:"section_id"`
	Prompt    string         `db:"prompt" json:"prompt"`
	Type      ItemType       `db:"type" json:"type"`
	Required  bool           `db:"required" json:"required"`
	SortOrder int            `db:"sort_order" json:"sort_order"`
	Config    types.JSONText `db:"config" json:"config,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// SelectConfig is the parsed config payload for select items.
type SelectConfig struct {
	Options []string `json:"options"`
}

// TemplateFilter captures filtering criteria for listing templates.
type TemplateFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// TemplateDetail bundles a template with its ordered sections and items.
type TemplateDetail struct {
	Template Template          `json:"template"`
	Sections []SectionWithItems `json:"sections"`
}

// SectionWithItems pairs a section with its ordered items.
type SectionWithItems struct {
	Section Section `json:"section"`
	Items   []Item  `json:"items"`
}
