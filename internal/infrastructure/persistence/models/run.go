package models

import (
	"time"

	"github.com/erp/orderrecon/internal/domain/history"
)

// RunModel is the persistence model for the history.Run entity
type RunModel struct {
	AggregateModel
	Platform     string         `gorm:"type:varchar(50);not null;index"`
	Status       history.Status `gorm:"type:varchar(20);not null;default:'pending';index"`
	FilesRead    int            `gorm:"not null;default:0"`
	FilesSkipped int            `gorm:"not null;default:0"`
	RowsRead     int            `gorm:"not null;default:0"`
	OutputRows   int            `gorm:"not null;default:0"`
	Warnings     int            `gorm:"not null;default:0"`
	OutputPath   string         `gorm:"type:varchar(1024)"`
	Diagnostics  string         `gorm:"type:text"`
	ErrorMessage string         `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (RunModel) TableName() string {
	return "reconcile_runs"
}

// ToDomain converts the persistence model to a domain Run
func (m *RunModel) ToDomain() *history.Run {
	return &history.Run{
		BaseEntity:   m.AggregateModel.ToDomain(),
		Platform:     m.Platform,
		Status:       m.Status,
		FilesRead:    m.FilesRead,
		FilesSkipped: m.FilesSkipped,
		RowsRead:     m.RowsRead,
		OutputRows:   m.OutputRows,
		Warnings:     m.Warnings,
		OutputPath:   m.OutputPath,
		Diagnostics:  m.Diagnostics,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// FromDomain populates the persistence model from a domain Run
func (m *RunModel) FromDomain(r *history.Run) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Platform = r.Platform
	m.Status = r.Status
	m.FilesRead = r.FilesRead
	m.FilesSkipped = r.FilesSkipped
	m.RowsRead = r.RowsRead
	m.OutputRows = r.OutputRows
	m.Warnings = r.Warnings
	m.OutputPath = r.OutputPath
	m.Diagnostics = r.Diagnostics
	m.ErrorMessage = r.ErrorMessage
	m.StartedAt = r.StartedAt
	m.CompletedAt = r.CompletedAt
}

// RunModelFromDomain creates a new persistence model from a domain Run
func RunModelFromDomain(r *history.Run) *RunModel {
	m := &RunModel{}
	m.FromDomain(r)
	return m
}
