// Package sqlite stores ACT documents in a SQLite table through gorm.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/glebarez/sqlite"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	pathKey = "storage.sqlite.path"
	dirMode = 0o700
)

type sessionRecord struct {
	ID           string    `gorm:"column:id;primaryKey;size:64"`
	Objective    string    `gorm:"column:objective"`
	ActUpdatedAt time.Time `gorm:"column:act_updated_at;index"`
	Document     string    `gorm:"column:document;type:text;not null"`
}

func (sessionRecord) TableName() string {
	return "sessions"
}

type Repository struct {
	db *gorm.DB
}

var _ ports.SessionRepository = (*Repository)(nil)

// Open opens (and migrates) the database at dsn. Use ":memory:" for a
// throwaway store.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate sessions table: %w", err)
	}

	return &Repository{db: db}, nil
}

func NewFromConfig(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(pathKey, filepath.Join(homeDir, ".uap", "sessions.db"))

	path, err := filepath.Abs(cfg.GetString(pathKey))
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	return Open(path)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Load(ctx context.Context, sessionID string) (domain.ACT, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.ACT{}, err
	}

	var record sessionRecord
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ACT{}, domain.ErrSessionNotFound
		}
		return domain.ACT{}, fmt.Errorf("query session %q: %w", sessionID, err)
	}

	var act domain.ACT
	if err := json.Unmarshal([]byte(record.Document), &act); err != nil {
		return domain.ACT{}, fmt.Errorf("decode session %q: %w", sessionID, err)
	}

	return act, nil
}

func (r *Repository) Save(ctx context.Context, act domain.ACT) error {
	if err := domain.ValidateSessionID(act.SessionID); err != nil {
		return err
	}

	data, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", act.SessionID, err)
	}

	record := sessionRecord{
		ID:           act.SessionID,
		Objective:    act.CurrentObjective,
		ActUpdatedAt: act.UpdatedAt.UTC(),
		Document:     string(data),
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("upsert session %q: %w", act.SessionID, err)
	}

	return nil
}

func (r *Repository) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).
		Model(&sessionRecord{}).
		Order("act_updated_at ASC").
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return ids, nil
}
