package models

import "time"

const AcademySettingID = 1

type AcademySetting struct {
	ID                uint   `gorm:"primaryKey" json:"-"`
	CancelCutoffHours int    `gorm:"not null" json:"cancel_cutoff_hours" validate:"min=0,max=168"`
	SeatHoldMinutes   int    `gorm:"not null" json:"seat_hold_minutes" validate:"min=5,max=120"`
	DefaultCapacity   int    `gorm:"not null" json:"default_capacity" validate:"min=1,max=200"`
	TimeZone          string `gorm:"size:64;not null" json:"time_zone" validate:"required,timezone"`
	ContactEmail      string `gorm:"size:255" json:"contact_email" validate:"omitempty,email"`
	ContactPhone      string `gorm:"size:30" json:"contact_phone" validate:"omitempty,max=30"`
	CoachName         string `gorm:"size:120" json:"coach_name" validate:"max=120"`
	CoachBio          string `gorm:"type:text" json:"coach_bio" validate:"max=4000"`

	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultAcademySetting() AcademySetting {
	return AcademySetting{
		ID:                AcademySettingID,
		CancelCutoffHours: 12,
		SeatHoldMinutes:   30,
		DefaultCapacity:   10,
		TimeZone:          "Africa/Johannesburg",
	}
}

// HoldTTL is how long an unpaid online reservation keeps its seat.
func (s AcademySetting) HoldTTL() time.Duration {
	return time.Duration(s.SeatHoldMinutes) * time.Minute
}

func (s AcademySetting) CancelCutoff() time.Duration {
	return time.Duration(s.CancelCutoffHours) * time.Hour
}

// Location falls back to UTC when the configured zone cannot be loaded.
func (s AcademySetting) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
