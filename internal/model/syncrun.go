package model

import (
	"time"

	"gorm.io/datatypes"
)

// SyncRun 每次批量对账的审计记录，failed_keys 存失败记录的自然键，便于回放
type SyncRun struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID    string         `gorm:"column:run_uuid;type:varchar(64);uniqueIndex;not null"`
	Platform   string         `gorm:"column:platform;type:varchar(32);not null;index"`
	Kind       string         `gorm:"column:kind;type:varchar(16);not null"` // orders/offers/stocks
	Processed  int            `gorm:"column:processed;type:int;default:0"`
	Created    int            `gorm:"column:created;type:int;default:0"`
	Updated    int            `gorm:"column:updated;type:int;default:0"`
	Failed     int            `gorm:"column:failed;type:int;default:0"`
	FailedKeys datatypes.JSON `gorm:"column:failed_keys;type:jsonb"`
	StartedAt  time.Time      `gorm:"column:started_at;type:timestamp;not null"`
	FinishedAt *time.Time     `gorm:"column:finished_at;type:timestamp"`
}

func (SyncRun) TableName() string { return "sync_run" }
