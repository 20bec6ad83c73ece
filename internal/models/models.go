package models

import "time"

type User struct {
	ID         int64
	Email      string
	Username   string
	PassHash   []byte // nil for OAuth-only accounts
	IsVerified bool
	CreatedAt  time.Time
}

// View returns the redacted representation exposed in API envelopes.
func (u *User) View() UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Session struct {
	ID        int64
	Token     string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// * IsExpired проверяет, истек ли срок действия сессии
func (s *Session) IsExpired() bool {
	return s.ExpiresAt.Before(time.Now())
}

type OneTimeCode struct {
	Email     string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (c *OneTimeCode) IsExpired() bool {
	return c.ExpiresAt.Before(time.Now())
}

// Message is the payload published to the email queue.
type Message struct {
	Email    string `json:"to"`
	Subject  string `json:"subject"`
	Username string `json:"username"`
	Code     string `json:"code"`
}
