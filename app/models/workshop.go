package models

import "time"

const (
	JoinModeChoice   = "CHOICE"
	JoinModeRandom   = "RANDOM"
	JoinModeAssigned = "ASSIGNED"
)

// Workshop is a group-organizer event. Its join mode dictates how new
// participants are placed into groups.
type Workshop struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID uint      `gorm:"not null;index" json:"owner_user_id"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	JoinMode    string    `gorm:"type:varchar(16);not null;default:'CHOICE'" json:"join_mode" validate:"oneof=CHOICE RANDOM ASSIGNED"`
	AccessCode  string    `gorm:"type:varchar(64)" json:"-"`
	IsActive    bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Groups []Group `gorm:"foreignKey:WorkshopID" json:"groups,omitempty"`
}

// Group is a capacity-bounded bucket of participants inside a workshop.
// A group never exceeds MaxSize active participants.
type Group struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	WorkshopID uint      `gorm:"not null;index" json:"workshop_id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Color      string    `gorm:"type:varchar(16)" json:"color,omitempty"`
	MaxSize    int       `gorm:"not null;default:4" json:"max_size"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:GroupID" json:"participants,omitempty"`
}

// Participant is one person placed into a group. Names are unique among
// active participants within a workshop (first-write-wins, case-sensitive).
type Participant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;index" json:"group_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Name      string    `gorm:"type:varchar(150);not null;index" json:"name"`
	Email     string    `gorm:"type:varchar(200)" json:"email,omitempty"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
