package models

import "time"

// Campus is the top level of the organizational hierarchy.
type Campus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// College belongs to one Campus.
type College struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CampusID  uint      `gorm:"index;not null" json:"campus_id"`
	Slug      string    `gorm:"size:64;not null" json:"slug"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Campus    Campus    `json:"campus,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Program is an academic program belonging to one College. Users attach to
// a Program during onboarding; feed scoping walks this hierarchy upward.
type Program struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CollegeID uint      `gorm:"index;not null" json:"college_id"`
	Slug      string    `gorm:"size:64;not null" json:"slug"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	College   College   `json:"college,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
