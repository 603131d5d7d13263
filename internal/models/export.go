package models

import "time"

// ExportVersion is the data export format version
const ExportVersion = "1.0.0"

// ExportData is the full JSON backup of a user's data
type ExportData struct {
	User          *User           `json:"user"`
	Relationships []*Relationship `json:"relationships"`
	Interactions  []*Interaction  `json:"interactions"`
	LevelHistory  []*LevelChange  `json:"level_history"`
	Quests        []*Quest        `json:"quests"`
	ExportDate    time.Time       `json:"export_date"`
	Version       string          `json:"version"`
}

// ImportSummary reports what a backup import recreated
type ImportSummary struct {
	Relationships int `json:"relationships"`
	Interactions  int `json:"interactions"`
	LevelUps      int `json:"level_ups"`
}
