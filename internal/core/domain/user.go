package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrInvalidChatID      = errors.New("invalid telegram chat id (numeric id, not the @username)")
)

var chatIDRegex = regexp.MustCompile(`^-?[0-9]{1,20}$`)

type User struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Username       *string   `json:"username,omitempty" db:"username"`
	TelegramChatID *string   `json:"tg_chat_id,omitempty" db:"tg_chat_id"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser(id, email string) (*User, error) {

	email = strings.TrimSpace(email)

	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     strings.ToLower(email),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) SetPassword(plainPassword string) error {
	if utf8.RuneCountInString(plainPassword) < 8 {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), 12)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (u *User) CheckPassword(plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plainPassword))
}

// SetTelegramChatID stores the chat reminders are delivered to. An empty
// value removes it.
func (u *User) SetTelegramChatID(chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		u.TelegramChatID = nil
		return nil
	}
	if !chatIDRegex.MatchString(chatID) {
		return ErrInvalidChatID
	}
	u.TelegramChatID = &chatID
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ReminderEligible reports whether reminders can reach the user.
func (u *User) ReminderEligible() bool {
	return u.TelegramChatID != nil && *u.TelegramChatID != ""
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
