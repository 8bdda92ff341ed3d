package slotstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Slot 槽位表
type Slot struct {
	Key       string `gorm:"column:slot_key;primaryKey;size:128"`
	Value     string `gorm:"column:slot_value;type:text"`
	UpdatedAt int64  `gorm:"column:updated_at;autoUpdateTime:milli"`
}

func (Slot) TableName() string {
	return "slot"
}

// DBStore 基于 mysql 的槽位存储
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&Slot{}); err != nil {
		return nil, err
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Get(ctx context.Context, key string) (string, error) {
	var slot Slot
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).First(&slot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return slot.Value, nil
}

func (s *DBStore) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"slot_value", "updated_at"}),
	}).Create(&Slot{Key: key, Value: value}).Error
}

func (s *DBStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&Slot{}).Error
}
