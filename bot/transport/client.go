// Package transport adapts telebot to the funnel: it implements the
// outbound sender and membership oracle, and turns updates into events.
package transport

import (
	"bytes"
	"context"
	"fmt"

	"github.com/m3rciful/funnelbot/bot/assets"

	tele "gopkg.in/telebot.v4"
)

// API is the part of *tele.Bot the client calls.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// Client sends through a telebot instance. Each call is a single attempt.
type Client struct {
	api API
}

// NewClient wraps api, normally a *tele.Bot.
func NewClient(api API) *Client {
	return &Client{api: api}
}

// channelRecipient addresses a chat by numeric id or @username.
type channelRecipient string

func (c channelRecipient) Recipient() string { return string(c) }

// SendText sends a plain text message to chatID.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("send text to %d: %w", chatID, err)
	}
	return nil
}

// SendDocument uploads doc to chatID under doc.Name.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc assets.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(doc.Data)),
		FileName: doc.Name,
	}
	if _, err := c.api.Send(tele.ChatID(chatID), file); err != nil {
		return fmt.Errorf("send document %q to %d: %w", doc.Name, chatID, err)
	}
	return nil
}

// MemberStatus returns the raw status of userID in channelID, such as
// "member" or "left".
func (c *Client) MemberStatus(ctx context.Context, channelID string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := c.api.ChatMemberOf(channelRecipient(channelID), &tele.User{ID: userID})
	if err != nil {
		return "", fmt.Errorf("chat member %d of %s: %w", userID, channelID, err)
	}
	if m == nil {
		return "", fmt.Errorf("chat member %d of %s: empty response", userID, channelID)
	}
	return string(m.Role), nil
}
