package models

import "time"

// Machine is the persisted catalog row for a schedulable resource. Schedules
// are deliberately not persisted; they are rebuilt empty at boot and live only
// in the registry.
type Machine struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
