package data

import (
	"sync"

	"github.com/juju/errors"
	"gorm.io/gorm"
)

// Setting is one row of the optional settings table. Active rows override
// environment configuration at startup.
type Setting struct {
	ID     uint8  `gorm:"primaryKey"`
	Name   string `gorm:"size:32;uniqueIndex"`
	Value  string `gorm:"type:text"`
	Active uint8  `gorm:"default:1"`
}

func (Setting) TableName() string { return "settings" }

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// EnsureSettingsTable creates the settings table when it is missing.
func EnsureSettingsTable(db *gorm.DB) error {
	return errors.Annotate(db.AutoMigrate(&Setting{}), "migrate settings")
}

// LoadSettings loads all active settings from the database into cache.
func LoadSettings(db *gorm.DB) error {
	var settings []Setting
	if err := db.Where("active = ?", 1).Find(&settings).Error; err != nil {
		return errors.Annotate(err, "load settings")
	}

	m := make(map[string]string, len(settings))
	for _, s := range settings {
		m[s.Name] = s.Value
	}
	ReplaceSettings(m)
	logger.Infof("loaded %d settings", len(m))
	return nil
}

// ReplaceSettings swaps the cached settings wholesale.
func ReplaceSettings(m map[string]string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsCache = m
}

// GetSetting retrieves a setting value from cache (call LoadSettings first)
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}
