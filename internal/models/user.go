// internal/models/user.go
package models

type User struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Username       string `json:"username" gorm:"uniqueIndex;not null"`
	HashedPassword string `json:"-" gorm:"not null"`
	IsAdmin        bool   `json:"is_admin" gorm:"not null;default:false"`
}

func (User) TableName() string { return "user" }

// UserInput is the admin create/update payload. An empty Password on update keeps the stored hash.
type UserInput struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"omitempty,min=1"`
	IsAdmin  bool   `json:"is_admin"`
}

// TokenResponse is returned by POST /api/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
