package model

import "fmt"

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User 用户。Password 只保存 bcrypt 哈希
type User struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Email          string `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Username       string `json:"username" gorm:"type:varchar(255);not null;uniqueIndex"`
	ImageURL       string `json:"image_url" gorm:"type:text"`
	HeaderImageURL string `json:"header_image_url" gorm:"type:text"`
	Bio            string `json:"bio" gorm:"type:text"`
	Location       string `json:"location" gorm:"type:text"`
	Password       string `json:"-" gorm:"type:text;not null"`
}

func (User) TableName() string { return "users" }

// String renders "<User #id: username, email>"; id is "nil" until the row is persisted.
func (u *User) String() string {
	id := "nil"
	if u.ID != 0 {
		id = fmt.Sprint(u.ID)
	}
	return fmt.Sprintf("<User #%s: %s, %s>", id, u.Username, u.Email)
}
