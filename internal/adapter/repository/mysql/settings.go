package mysql

import (
	"context"
	"errors"

	"vsla-ledger/internal/domain/sysconfig"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) *SettingsRepository { return &SettingsRepository{db: db} }

func (r *SettingsRepository) List(ctx context.Context) ([]sysconfig.Setting, error) {
	var out []sysconfig.Setting
	res := r.db.WithContext(ctx).Order("config_key ASC").Find(&out)
	return out, res.Error
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*sysconfig.Setting, error) {
	var out sysconfig.Setting
	res := r.db.WithContext(ctx).Where("config_key = ?", key).First(&out)
	return &out, res.Error
}

func (r *SettingsRepository) Upsert(ctx context.Context, s *sysconfig.Setting) error {
	existing, err := r.Get(ctx, s.Key)
	switch {
	case err == nil:
		s.ID, s.CreatedAt = existing.ID, existing.CreatedAt
		return r.db.WithContext(ctx).Save(s).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(s).Error
	default:
		return err
	}
}

func (r *SettingsRepository) CreateMissing(ctx context.Context, rows []sysconfig.Setting) (int64, error) {
	var added int64
	for i := range rows {
		row := rows[i]
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return added, res.Error
		}
		added += res.RowsAffected
	}
	return added, nil
}
