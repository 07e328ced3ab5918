package db

import (
	"errors"
	"sync"

	"gorm.io/gorm"
)

// RoleCache is the durable game→role recovery mapping. With a database
// it survives process restarts; without one it degrades to an in-memory
// map, which is enough for tests and single-process embedding.
type RoleCache struct {
	db    *gorm.DB
	mu    sync.Mutex
	roles map[string]string
}

func NewRoleCache(conn *gorm.DB) *RoleCache {
	return &RoleCache{
		db:    conn,
		roles: make(map[string]string),
	}
}

// Set remembers the role id under the given key, overwriting any
// previous value.
func (c *RoleCache) Set(key, roleID string) {
	if key == "" || roleID == "" {
		return
	}
	if c.db == nil {
		c.mu.Lock()
		c.roles[key] = roleID
		c.mu.Unlock()
		return
	}
	record := SessionRole{
		Key:    key,
		RoleID: roleID,
	}
	_ = c.db.Save(&record).Error
}

// Get returns the cached role id for the key, or "".
func (c *RoleCache) Get(key string) string {
	if c.db == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.roles[key]
	}
	var record SessionRole
	if err := c.db.Where("key = ?", key).First(&record).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ""
		}
		return ""
	}
	return record.RoleID
}

// Clear forgets the cached role id for the key.
func (c *RoleCache) Clear(key string) {
	if c.db == nil {
		c.mu.Lock()
		delete(c.roles, key)
		c.mu.Unlock()
		return
	}
	_ = c.db.Delete(&SessionRole{}, "key = ?", key).Error
}
