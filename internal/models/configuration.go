package models

import "time"

// Settings keys decorating printed grade sheets.
const (
	SettingSchoolName  = "school_name"
	SettingManagerName = "manager_name"
)

// Configuration represents a persisted settings entry.
type Configuration struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedBy *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
