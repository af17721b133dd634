package sessions

import "time"

// Session is a server-side refresh session. Each refresh token is usable once.
type Session struct {
	ID           int64     `gorm:"primaryKey" bson:"-" json:"-"`
	RefreshToken string    `gorm:"uniqueIndex;size:64" bson:"refreshToken" json:"refreshToken"`
	UserID       int64     `gorm:"index" bson:"userId" json:"userId"`
	Username     string    `bson:"username" json:"username"`
	ExpiresAt    time.Time `gorm:"index" bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// TableName keeps the sqlite table name stable.
func (Session) TableName() string { return "sessions" }

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
