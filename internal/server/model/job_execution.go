package model

import "gorm.io/gorm"

type JobExecution struct {
	gorm.Model
	RunUUID     string `gorm:"not null;type:varchar(36);uniqueIndex:idx_run_uuid_job_name"`
	JobName     string `gorm:"type:varchar(50);not null;uniqueIndex:idx_run_uuid_job_name"`
	Outcome     string `gorm:"type:ENUM('pending', 'running', 'passed', 'failed', 'errored');not null"`
	FailureKind string `gorm:"type:varchar(32)"`
	Stdout      string `gorm:"type:text"`
	Stderr      string `gorm:"type:text"`
}
