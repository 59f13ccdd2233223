package models

import "time"

// User is a customer or administrator. Phone is the login identifier.
type User struct {
	ID        string    `gorm:"primaryKey;size:36"            json:"id"        bson:"_id"`
	Name      string    `gorm:"size:255;not null"             json:"name"      bson:"name"`
	Phone     string    `gorm:"size:20;uniqueIndex;not null"  json:"phone"     bson:"phone"`
	Email     string    `gorm:"size:255"                      json:"email"     bson:"email,omitempty"`
	Password  string    `gorm:"size:255;not null"             json:"-"         bson:"password"`
	IsAdmin   bool      `gorm:"not null;default:false"        json:"isAdmin"   bson:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"                                      bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"                                      bson:"updatedAt"`
}

// UserSummary is the slice of a user embedded in order responses.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Phone: u.Phone}
}
