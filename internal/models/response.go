package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Response is the current value recorded for an item within a run. Exactly one
// of the value slots is populated, matching the item's type. Rows are unique
// per (run_id, item_id); writes overwrite under last-write-wins.
type Response struct {
	ID          string         `db:"id" json:"id"`
	RunID       string         `db:"run_id" json:"run_id"`
	ItemID      string         `db:"item_id" json:"item_id"`
	ValueText   *string        `db:"value_text" json:"value_text,omitempty"`
	ValueNumber *float64       `db:"value_number" json:"value_number,omitempty"`
	ValueJSON   types.JSONText `db:"value_json" json:"value_json,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// CheckboxValue is the JSON payload stored for checkbox responses.
type CheckboxValue struct {
	Checked bool `json:"checked"`
}

// ReviewRow is a response joined to its item, section, run and template, as
// produced by the review query. Section columns are nullable: an item whose
// section was removed still surfaces, bucketed under "General".
type ReviewRow struct {
	ResponseID        string         `db:"response_id" json:"response_id"`
	RunID             string         `db:"run_id" json:"run_id"`
	RunStatus         RunStatus      `db:"run_status" json:"run_status"`
	RunCreatedAt      time.Time      `db:"run_created_at" json:"run_created_at"`
	TemplateName      string         `db:"template_name" json:"template_name"`
	SectionID         *string        `db:"section_id" json:"section_id,omitempty"`
	SectionName       *string        `db:"section_name" json:"section_name,omitempty"`
	SectionSortOrder  *int           `db:"section_sort_order" json:"section_sort_order,omitempty"`
	ItemID            string         `db:"item_id" json:"item_id"`
	ItemPrompt        string         `db:"item_prompt" json:"item_prompt"`
	ItemType          ItemType       `db:"item_type" json:"item_type"`
	ItemSortOrder     *int           `db:"item_sort_order" json:"item_sort_order,omitempty"`
	ValueText         *string        `db:"value_text" json:"value_text,omitempty"`
	ValueNumber       *float64       `db:"value_number" json:"value_number,omitempty"`
	ValueJSON         types.JSONText `db:"value_json" json:"value_json,omitempty"`
	ResponseCreatedAt time.Time      `db:"response_created_at" json:"response_created_at"`
}

// ReviewSection is one ordered group of formatted responses under a section.
type ReviewSection struct {
	SectionID   string        `json:"section_id,omitempty"`
	SectionName string        `json:"section_name"`
	Rows        []ReviewEntry `json:"rows"`
}

// ReviewEntry is a single formatted response in the review view.
type ReviewEntry struct {
	ResponseID     string    `json:"response_id"`
	ItemID         string    `json:"item_id"`
	Prompt         string    `json:"prompt"`
	Type           ItemType  `json:"type"`
	FormattedValue string    `json:"formatted_value"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// ReviewRun is a run's responses grouped by section for display.
type ReviewRun struct {
	RunID        string          `json:"run_id"`
	TemplateName string          `json:"template_name"`
	Status       RunStatus       `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	Sections     []ReviewSection `json:"sections"`
}
