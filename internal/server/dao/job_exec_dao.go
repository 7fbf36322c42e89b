package dao

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gatekeep/internal/server/model"
)

type JobExecDao interface {
	Upsert(ctx context.Context, exec *model.JobExecution) error
	GetByRunUUID(ctx context.Context, runUUID string) ([]*model.JobExecution, error)
}

type jobExecDAO struct {
}

func NewJobExecDao() JobExecDao {
	return &jobExecDAO{}
}

func (d *jobExecDAO) Upsert(ctx context.Context, newExec *model.JobExecution) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobExec model.JobExecution
		if err := tx.Where("run_uuid = ? AND job_name = ?", newExec.RunUUID, newExec.JobName).Take(&jobExec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(newExec).Error
			}
			return err
		}

		jobExec.Outcome = newExec.Outcome
		jobExec.FailureKind = newExec.FailureKind
		jobExec.Stdout = newExec.Stdout
		jobExec.Stderr = newExec.Stderr

		return tx.Save(&jobExec).Error
	})
}

func (d *jobExecDAO) GetByRunUUID(ctx context.Context, runUUID string) ([]*model.JobExecution, error) {
	var execs []*model.JobExecution
	if err := db.WithContext(ctx).Where("run_uuid = ?", runUUID).Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}
