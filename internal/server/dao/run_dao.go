package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"gatekeep/internal/common"
	"gatekeep/internal/server/model"
)

type RunDao interface {
	Create(ctx context.Context, run *model.Run) error
	SetVerdict(ctx context.Context, runUUID, verdict string) error
	GetByUUID(ctx context.Context, runUUID string) (*model.Run, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Run, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type runDAO struct {
}

func NewRunDao() RunDao {
	return &runDAO{}
}

func (d *runDAO) Create(ctx context.Context, run *model.Run) error {
	return db.WithContext(ctx).Create(run).Error
}

func (d *runDAO) SetVerdict(ctx context.Context, runUUID, verdict string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run model.Run
		if err := tx.Where("run_uuid = ?", runUUID).Take(&run).Error; err != nil {
			return err
		}
		run.Verdict = verdict
		return tx.Save(&run).Error
	})
}

func (d *runDAO) GetByUUID(ctx context.Context, runUUID string) (*model.Run, error) {
	var run model.Run
	if err := db.WithContext(ctx).Where("run_uuid = ?", runUUID).Take(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrNo(common.RunNotExists)
		}
		return nil, err
	}
	return &run, nil
}

func (d *runDAO) ListRecent(ctx context.Context, limit int) ([]*model.Run, error) {
	var runs []*model.Run
	if err := db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (d *runDAO) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Unscoped().Where("created_at < ?", cutoff).Delete(&model.Run{})
	return res.RowsAffected, res.Error
}
