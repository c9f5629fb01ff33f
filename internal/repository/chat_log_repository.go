package repository

import (
	"fmt"

	"gorm.io/gorm"

	"peakmind/internal/model"
)

type ChatLogRepository struct {
	db *gorm.DB
}

func NewChatLogRepository(db *gorm.DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

func (r *ChatLogRepository) Create(entry *model.ChatLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create chat log failed: %w", err)
	}
	return nil
}

// ListRecentByUserID returns the newest entries in chronological order.
func (r *ChatLogRepository) ListRecentByUserID(userID uint, limit int) ([]model.ChatLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var entries []model.ChatLog
	if err := r.db.Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list chat logs failed: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
