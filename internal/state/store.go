// Package state persists the small amount of client-side state that must
// survive restarts: the theme preference and the remote API session cookie.
// Everything else (profiles, todos) is server-owned and only cached in memory.
package state

import (
	"net/http"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Preference is a single named setting.
type Preference struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:255;not null"`
}

// RemoteCookie mirrors one cookie of the remote API session.
type RemoteCookie struct {
	Name    string `gorm:"primaryKey;size:128"`
	Value   string `gorm:"size:1024;not null"`
	Path    string `gorm:"size:255"`
	Expires time.Time
}

const (
	prefTheme    = "theme"
	ThemeLight   = "light"
	ThemeDark    = "dark"
	defaultTheme = ThemeLight
)

// Store wraps the local SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) the state database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Preference{}, &RemoteCookie{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Theme returns the persisted theme preference, defaulting to light.
func (s *Store) Theme() string {
	var p Preference
	if err := s.db.First(&p, "name = ?", prefTheme).Error; err != nil {
		return defaultTheme
	}
	if p.Value != ThemeLight && p.Value != ThemeDark {
		return defaultTheme
	}
	return p.Value
}

// SetTheme persists the theme preference. Unrecognized values are ignored.
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return nil
	}
	return s.db.Save(&Preference{Name: prefTheme, Value: theme}).Error
}

// SaveCookies replaces the persisted remote session cookies.
func (s *Store) SaveCookies(cookies []*http.Cookie) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&RemoteCookie{}).Error; err != nil {
			return err
		}
		for _, c := range cookies {
			rc := RemoteCookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires}
			if err := tx.Create(&rc).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadCookies returns the persisted remote session cookies, skipping any
// that have expired.
func (s *Store) LoadCookies() ([]*http.Cookie, error) {
	var rows []RemoteCookie
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(rows))
	for _, row := range rows {
		if !row.Expires.IsZero() && row.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: row.Name, Value: row.Value, Path: row.Path, Expires: row.Expires})
	}
	return cookies, nil
}
