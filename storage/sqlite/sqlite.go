// Package sqlite keeps slot values in a SQLite table through gorm.
package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.sr.ht/~jackmordaunt/bookshelf/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ storage.Slot = (*Storer)(nil)

// Schema is a database representation of a slot.
type Schema struct {
	Key       string `gorm:"primaryKey;column:slot_key"`
	Value     []byte
	UpdatedAt time.Time
}

func (Schema) TableName() string {
	return "slots"
}

// Storer implements slot storage on a SQLite database.
type Storer struct {
	DB *gorm.DB
}

// Open the database file at path, creating the schema if needed.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Storer, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("preparing directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	// SQLite works best with a single connection; it also keeps
	// ":memory:" databases from splitting per connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(&Schema{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Storer{DB: db}, nil
}

func (s *Storer) Get(key string) ([]byte, error) {
	var row Schema
	err := s.DB.Where("slot_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("key %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, s.unavailable(fmt.Errorf("loading %q: %w", key, err))
	}
	return row.Value, nil
}

func (s *Storer) Put(key string, value []byte) error {
	row := Schema{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return s.unavailable(fmt.Errorf("saving %q: %w", key, err))
	}
	return nil
}

func (s *Storer) Delete(key string) error {
	if err := s.DB.Where("slot_key = ?", key).Delete(&Schema{}).Error; err != nil {
		return s.unavailable(fmt.Errorf("deleting %q: %w", key, err))
	}
	return nil
}

func (s *Storer) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// unavailable tags err when the connection has gone away.
func (s *Storer) unavailable(err error) error {
	sqlDB, dbErr := s.DB.DB()
	if dbErr != nil || sqlDB.Ping() != nil {
		return fmt.Errorf("%v: %w", err, storage.ErrUnavailable)
	}
	return err
}
