// Package users persists the people who started the bot. Records are keyed by
// chat id, created once and never updated or removed.
package users

import (
	"strings"
	"time"
)

// User is a registered chat. ID is the storage record id rendered as a string.
type User struct {
	ID        string    `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Name      string    `db:"name"`
	Handle    string    `db:"handle"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName joins first and last name with a space, skipping empty parts.
func DisplayName(first, last string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{first, last} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
