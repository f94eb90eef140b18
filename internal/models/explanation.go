package models

import "time"

// Explanation is a cached plain-language description of a financial term.
// Term is stored lowercased and is unique.
type Explanation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Term        string    `gorm:"uniqueIndex;not null;size:200" json:"term"`
	Explanation string    `gorm:"type:text;not null" json:"explanation"`
	CreatedAt   time.Time `json:"created_at"`
}
