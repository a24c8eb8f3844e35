package models

import (
	"encoding/json"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/job"
	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// modelLogger reports rows whose JSON columns fail to round-trip
var modelLogger = zap.L().Named("persistence.models")

// JobModel is the GORM model for the crosslist_jobs table.
// The uniqueness of one active job per (listing, platform, operation) is
// enforced by a partial unique index created in migrations, not by tags here.
type JobModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key"`
	ListingID            uuid.UUID  `gorm:"column:listing_id;type:uuid;not null;index:idx_crosslist_jobs_listing"`
	UserID               uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Platform             string     `gorm:"type:varchar(32);not null;index:idx_crosslist_jobs_listing"`
	Operation            string     `gorm:"type:varchar(16);not null"`
	ListingJSON          string     `gorm:"column:listing;type:jsonb;not null"`
	EncryptedCredentials string     `gorm:"column:encrypted_credentials;type:text;not null"`
	Status               string     `gorm:"type:varchar(32);not null;index:idx_crosslist_jobs_due,priority:1"`
	ErrorKind            string     `gorm:"column:error_kind;type:varchar(32)"`
	ErrorMessage         string     `gorm:"column:error_message;type:text"`
	Attempt              int        `gorm:"not null"`
	MaxAttempts          int        `gorm:"column:max_attempts;not null"`
	AuthFailures         int        `gorm:"column:auth_failures;not null"`
	ElementMisses        int        `gorm:"column:element_misses;not null"`
	NextRunAt            *time.Time `gorm:"column:next_run_at;index:idx_crosslist_jobs_due,priority:2"`
	ClaimedBy            string     `gorm:"column:claimed_by;type:varchar(64)"`
	PlatformListingID    string     `gorm:"column:platform_listing_id;type:varchar(128)"`
	PlatformURL          string     `gorm:"column:platform_url;type:text"`
	WarningsJSON         string     `gorm:"column:warnings;type:jsonb"`
	StartedAt            *time.Time `gorm:"column:started_at"`
	CompletedAt          *time.Time `gorm:"column:completed_at"`
	CreatedAt            time.Time  `gorm:"not null;index:idx_crosslist_jobs_due,priority:3"`
	UpdatedAt            time.Time  `gorm:"not null"`
	Version              int        `gorm:"not null"`
}

// TableName returns the table name for JobModel
func (JobModel) TableName() string {
	return "crosslist_jobs"
}

// ToDomain converts JobModel to a domain Job
func (m *JobModel) ToDomain() *job.Job {
	j := &job.Job{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		ListingID:            m.ListingID,
		UserID:               m.UserID,
		Platform:             platform.Code(m.Platform),
		Operation:            job.Operation(m.Operation),
		EncryptedCredentials: m.EncryptedCredentials,
		Status:               job.Status(m.Status),
		ErrorKind:            platform.FailureKind(m.ErrorKind),
		ErrorMessage:         m.ErrorMessage,
		Attempt:              m.Attempt,
		MaxAttempts:          m.MaxAttempts,
		AuthFailures:         m.AuthFailures,
		ElementMisses:        m.ElementMisses,
		NextRunAt:            m.NextRunAt,
		ClaimedBy:            m.ClaimedBy,
		PlatformListingID:    m.PlatformListingID,
		PlatformURL:          m.PlatformURL,
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
	}

	if m.ListingJSON != "" {
		var item listing.Normalized
		if err := json.Unmarshal([]byte(m.ListingJSON), &item); err != nil {
			modelLogger.Warn("failed to parse listing JSON",
				zap.String("job_id", m.ID.String()),
				zap.Error(err))
		} else {
			j.Listing = item
		}
	}

	if m.WarningsJSON != "" && m.WarningsJSON != "[]" {
		var warnings []string
		if err := json.Unmarshal([]byte(m.WarningsJSON), &warnings); err != nil {
			modelLogger.Warn("failed to parse warnings JSON",
				zap.String("job_id", m.ID.String()),
				zap.Error(err))
		} else {
			j.Warnings = warnings
		}
	}

	return j
}

// JobModelFromDomain creates a JobModel from a domain Job
func JobModelFromDomain(j *job.Job) *JobModel {
	m := &JobModel{
		ID:                   j.ID,
		ListingID:            j.ListingID,
		UserID:               j.UserID,
		Platform:             string(j.Platform),
		Operation:            string(j.Operation),
		EncryptedCredentials: j.EncryptedCredentials,
		Status:               string(j.Status),
		ErrorKind:            string(j.ErrorKind),
		ErrorMessage:         j.ErrorMessage,
		Attempt:              j.Attempt,
		MaxAttempts:          j.MaxAttempts,
		AuthFailures:         j.AuthFailures,
		ElementMisses:        j.ElementMisses,
		NextRunAt:            j.NextRunAt,
		ClaimedBy:            j.ClaimedBy,
		PlatformListingID:    j.PlatformListingID,
		PlatformURL:          j.PlatformURL,
		StartedAt:            j.StartedAt,
		CompletedAt:          j.CompletedAt,
		CreatedAt:            j.CreatedAt,
		UpdatedAt:            j.UpdatedAt,
		Version:              j.Version,
	}

	if jsonBytes, err := json.Marshal(j.Listing); err == nil {
		m.ListingJSON = string(jsonBytes)
	} else {
		m.ListingJSON = "{}"
	}

	if len(j.Warnings) == 0 {
		m.WarningsJSON = "[]"
	} else if jsonBytes, err := json.Marshal(j.Warnings); err == nil {
		m.WarningsJSON = string(jsonBytes)
	} else {
		m.WarningsJSON = "[]"
	}

	return m
}
