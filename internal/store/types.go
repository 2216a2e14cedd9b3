package store

import (
	"time"

	"machinery-backend/internal/model"
)

// MachineFilter narrows machine listings. Zero values are ignored.
type MachineFilter struct {
	CategoryID int64
	Status     model.MachineStatus
	Center     string
	Query      string
	Limit      int
	Offset     int
}

// AlertFilter narrows alert listings and counts. Zero values are ignored.
type AlertFilter struct {
	MachineID int64
	Statuses  []model.AlertStatus
	Priority  model.AlertPriority
	Since     time.Time
	Limit     int
}

// MaintenanceFilter narrows scheduled maintenance queries.
// From is inclusive and To exclusive; zero times are ignored.
type MaintenanceFilter struct {
	MachineID int64
	Statuses  []model.MaintenanceStatus
	From      time.Time
	To        time.Time
	Limit     int
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
