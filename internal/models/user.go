package models

import "time"

// User is an account that owns workouts and routines.
// Federated users carry the identity provider subject in Sub and have no password.
type User struct {
	ID             int64     `gorm:"primaryKey" bson:"_id" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" bson:"username" json:"username"`
	HashedPassword string    `gorm:"column:hashed_password" bson:"hashedPassword,omitempty" json:"-"`
	Sub            string    `gorm:"index" bson:"sub,omitempty" json:"-"`
	Email          string    `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"-"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"-"`
}

func (User) TableName() string { return "users" }
