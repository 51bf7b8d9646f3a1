package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"job-board-go/internal/constants"
	"job-board-go/internal/storage/models"
)

// CreateMatchRunWithOutbox 创建排队中的匹配任务，并在同一事务中写入待投递的任务消息
func (m *MySQL) CreateMatchRunWithOutbox(ctx context.Context, run *models.MatchRun, exchange, routingKey string) error {
	ctx, span := m.startSpan(ctx, "MySQL.CreateMatchRunWithOutbox", "INSERT", "match_runs")
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run.Status = constants.MatchRunQueued
		if err := tx.Create(run).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(MatchTaskMessage{
			RunID:        run.ID,
			RecruiterID:  run.RecruiterID,
			RecruiterDir: run.RecruiterDir,
			MinScore:     run.MinScore,
			SubmittedAt:  run.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("序列化匹配任务消息失败: %w", err)
		}

		return tx.Create(&models.OutboxMessage{
			AggregateID:      run.ID,
			EventType:        EventMatchRequested,
			Payload:          string(payload),
			TargetExchange:   exchange,
			TargetRoutingKey: routingKey,
			Status:           "PENDING",
		}).Error
	})
	endSpan(span, err)
	return err
}

// GetMatchRun 获取匹配任务
func (m *MySQL) GetMatchRun(ctx context.Context, id string) (*models.MatchRun, error) {
	var run models.MatchRun
	if err := m.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, translateErr(err)
	}
	return &run, nil
}

// ListMatchRuns 列出招聘者最近的匹配任务，不含报告内容
func (m *MySQL) ListMatchRuns(ctx context.Context, recruiterID string, limit int) ([]models.MatchRun, error) {
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	var runs []models.MatchRun
	err := m.db.WithContext(ctx).
		Omit("report_json").
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// MarkMatchRunRunning 把排队中的任务标记为运行中；任务已结束时返回 false
func (m *MySQL) MarkMatchRunRunning(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	res := m.db.WithContext(ctx).Model(&models.MatchRun{}).
		Where("id = ? AND status IN ?", id, []string{constants.MatchRunQueued, constants.MatchRunRunning}).
		Updates(map[string]interface{}{"status": constants.MatchRunRunning, "started_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteMatchRun 保存报告并通知招聘者
func (m *MySQL) CompleteMatchRun(ctx context.Context, id string, report []byte, totalFiles, successCount int, notification *models.Notification) error {
	ctx, span := m.startSpan(ctx, "MySQL.CompleteMatchRun", "UPDATE", "match_runs")
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.MatchRun{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":        constants.MatchRunCompleted,
			"report_json":   datatypes.JSON(report),
			"total_files":   totalFiles,
			"success_count": successCount,
			"error":         "",
			"completed_at":  now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if notification != nil {
			return tx.Create(notification).Error
		}
		return nil
	})
	endSpan(span, err)
	return err
}

// FailMatchRun 记录任务失败原因并通知招聘者
func (m *MySQL) FailMatchRun(ctx context.Context, id, reason string, notification *models.Notification) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.MatchRun{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":       constants.MatchRunFailed,
			"error":        reason,
			"completed_at": time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if notification != nil {
			return tx.Create(notification).Error
		}
		return nil
	})
}
