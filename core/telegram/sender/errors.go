package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

const codeUnreachable = "unreachable"

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// unreachableErrs mean the user can no longer receive messages from the bot.
// A broadcast keeps meeting them until the user is removed from the registry.
var unreachableErrs = []error{
	tele.ErrBlockedByUser,
	tele.ErrUserIsDeactivated,
	tele.ErrNotStartedByUser,
	tele.ErrKickedFromGroup,
}

// classifyError maps a failed call to a short err_code for logs.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, target := range unreachableErrs {
		if errors.Is(err, target) {
			return codeUnreachable
		}
	}
	if errors.Is(err, tele.ErrChatNotFound) {
		return "chat_not_found"
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "flood"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		return "tls"
	}

	switch status := apiStatus(err); {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// apiStatus returns the Bot API status code of err. telebot reports unknown
// API errors as "telegram: <description> (<code>)".
func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	msg := strings.TrimSpace(err.Error())
	if !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndexByte(msg, '(')
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}

// redactToken hides bot tokens that net/http puts into request URLs.
func redactToken(msg string) string {
	return tokenRe.ReplaceAllString(msg, "bot<redacted>")
}
