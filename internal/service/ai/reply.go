package ai

import (
	"strings"

	"clinic_chat_server/pkg/constants"
)

// ReplyFunc produces the assistant's answer to the last human message.
// An empty result means no reply.
type ReplyFunc func(lastHumanText string, hasAttachments bool) string

// DefaultReply echoes the first runes of the message.
func DefaultReply(lastHumanText string, hasAttachments bool) string {
	text := strings.TrimSpace(lastHumanText)
	if text == "" && !hasAttachments {
		return ""
	}
	runes := []rune(text)
	if len(runes) > constants.AI_REPLY_MAX_RUNES {
		runes = runes[:constants.AI_REPLY_MAX_RUNES]
	}
	reply := "(AI) " + string(runes)
	if hasAttachments {
		if text == "" {
			reply = "(AI) I received your attachment."
		} else {
			reply += " (attachment received)"
		}
	}
	return reply
}
