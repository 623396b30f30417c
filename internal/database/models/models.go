// Package models contains the database model definitions for the small
// process-level settings cache: this is not where cues live, only durable
// preferences that outlive any one show file.
package models

import (
	"time"
)

// Setting represents a single key/value process-level preference, e.g. the
// last-opened show path or the configured mDNS service name.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }
