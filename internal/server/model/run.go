package model

import "gorm.io/gorm"

type Run struct {
	gorm.Model
	RunUUID     string `gorm:"type:varchar(36);not null;uniqueIndex"`
	Revision    string `gorm:"type:varchar(64);not null;index"`
	Ref         string `gorm:"type:varchar(255);not null;index"`
	TriggerType string `gorm:"type:ENUM('webhook', 'manual');not null"`
	Verdict     string `gorm:"type:ENUM('pending', 'accepted', 'rejected', 'superseded');not null"`
}
