package model

import "time"

// CacheEntry is the row layout used by the SQL cache backends.
type CacheEntry struct {
	Dataset   string    `gorm:"primaryKey;size:64" json:"dataset"`
	Payload   []byte    `gorm:"not null" json:"payload"`
	WrittenAt time.Time `gorm:"not null;index" json:"writtenAt"`
}

func (CacheEntry) TableName() string { return "cache_entries" }
