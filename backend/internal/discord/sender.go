package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/constants"
)

// Sender delivers plain text to a channel
type Sender interface {
	Send(channelID, content string) error
}

// SessionSender sends through a discordgo session
type SessionSender struct {
	Session *discordgo.Session
}

// Send implements Sender
func (s SessionSender) Send(channelID, content string) error {
	_, err := s.Session.ChannelMessageSend(channelID, content)
	return err
}

// sendLongMessage splits a message into chunks if it exceeds Discord's character limit
func (h *Handler) sendLongMessage(channelID, content string) {
	maxLength := constants.DiscordMaxMessageLength

	if len(content) <= maxLength {
		if err := h.sender.Send(channelID, content); err != nil {
			h.logger.Error("Failed to send message",
				zap.Error(err),
				zap.String("channel_id", channelID),
			)
		}
		return
	}

	// Part indicator "*(Part X/Y)*" needs about 15 characters
	const partIndicatorReserve = 20
	chunks := splitMessage(content, maxLength-partIndicatorReserve)

	for i, chunk := range chunks {
		message := chunk
		if len(chunks) > 1 {
			message = fmt.Sprintf("%s\n*(Part %d/%d)*", chunk, i+1, len(chunks))
		}

		if err := h.sender.Send(channelID, message); err != nil {
			h.logger.Error("Failed to send message chunk",
				zap.Error(err),
				zap.String("channel_id", channelID),
				zap.Int("chunk", i+1),
				zap.Int("total_chunks", len(chunks)),
			)
			break
		}

		if i < len(chunks)-1 {
			time.Sleep(h.chunkDelay)
		}
	}
}

// splitMessage splits content into chunks of at most maxLength bytes at line
// boundaries. A code block cut in two is closed at the end of one chunk and
// reopened with the same fence at the start of the next.
func splitMessage(content string, maxLength int) []string {
	if len(content) <= maxLength {
		return []string{content}
	}

	var (
		chunks  []string
		current strings.Builder
		fence   string // opening fence of the code block we are inside, if any
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunk := current.String()
		if fence != "" {
			chunk += "\n```"
		}
		chunks = append(chunks, chunk)
		current.Reset()
		if fence != "" {
			current.WriteString(fence)
		}
	}

	// Room for a closing fence when a chunk ends inside a code block
	const closeReserve = len("\n```")
	limit := maxLength - closeReserve

	for _, line := range strings.Split(content, "\n") {
		// Lines longer than a chunk are hard-wrapped at a space where possible
		for len(line) > limit-len(fence)-1 {
			room := limit - len(fence) - 1
			cut := strings.LastIndex(line[:room], " ")
			if cut < room*3/4 {
				cut = room
			}
			if current.Len() > 0 && current.String() != fence {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line[:cut])
			flush()
			line = strings.TrimLeft(line[cut:], " ")
		}

		needed := len(line)
		if current.Len() > 0 {
			needed++
		}
		if current.Len()+needed > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "```") {
			if fence == "" {
				fence = "```"
				if lang := strings.TrimPrefix(trimmed, "```"); len(lang) <= 16 && !strings.Contains(lang, " ") {
					fence = trimmed
				}
			} else {
				fence = ""
			}
		}
	}

	if current.Len() > 0 && current.String() != fence {
		chunk := current.String()
		if fence != "" {
			chunk += "\n```"
		}
		chunks = append(chunks, chunk)
	}

	return chunks
}
