package conversation

import "strings"

const (
	// KeywordPlanning asks for the subscription gate instructions.
	KeywordPlanning = "планирование"
	// KeywordDone asks for the subscription check.
	KeywordDone = "готово"
)

// Event is one inbound occurrence handed to the router.
type Event interface {
	kind() string
}

// Start is the /start command.
type Start struct {
	ChatID     int64
	FromName   string
	FromHandle string
}

// Text is any other message carrying a text body.
type Text struct {
	ChatID     int64
	FromID     int64
	FromHandle string
	Body       string
}

// BroadcastCommand asks for Body to be sent to every known user.
type BroadcastCommand struct {
	IssuerChatID int64
	Body         string
}

func (Start) kind() string            { return "start" }
func (Text) kind() string             { return "text" }
func (BroadcastCommand) kind() string { return "broadcast" }

// Normalize folds a message body for keyword comparison.
func Normalize(body string) string {
	return strings.ToLower(strings.TrimSpace(body))
}
