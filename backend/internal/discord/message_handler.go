package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"sd-prompt-enhancer/backend/internal/catalog"
	"sd-prompt-enhancer/backend/internal/constants"
	"sd-prompt-enhancer/backend/internal/enhancer"
	"sd-prompt-enhancer/backend/internal/journal"
	"sd-prompt-enhancer/backend/internal/prompt"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
	"sd-prompt-enhancer/backend/pkg/logger"
)

// Options configures a Handler
type Options struct {
	Catalog  *catalog.Catalog
	Enhancer *enhancer.Enhancer
	Sessions *enhancer.Registry
	Journal  *journal.Journal
	Sender   Sender
	Prefix   string
	Logger   *zap.Logger
}

// Handler handles Discord message processing. Each channel gets its own
// enhancement session.
type Handler struct {
	catalog    *catalog.Catalog
	enhancer   *enhancer.Enhancer
	sessions   *enhancer.Registry
	journal    *journal.Journal
	sender     Sender
	prefix     string
	chunkDelay time.Duration
	logger     *zap.Logger
}

// NewHandler creates a new Discord message handler
func NewHandler(opts Options) *Handler {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "!"
	}
	return &Handler{
		catalog:    opts.Catalog,
		enhancer:   opts.Enhancer,
		sessions:   opts.Sessions,
		journal:    opts.Journal,
		sender:     opts.Sender,
		prefix:     prefix,
		chunkDelay: 100 * time.Millisecond,
		logger:     logger.OrDefault(opts.Logger),
	}
}

// HandleMessage processes a Discord message
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || s.State == nil || s.State.User == nil {
		return
	}
	// Ignore messages from the bot itself and other bots
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	text, ok := CommandText(m.Content, h.prefix, s.State.User.ID)
	if !ok {
		return
	}

	h.logger.Info("Processing Discord command",
		zap.String("user_id", m.Author.ID),
		zap.String("channel_id", m.ChannelID),
		zap.Bool("is_dm", m.GuildID == ""),
	)

	h.Respond(context.Background(), m.ChannelID, text)
}

// Respond runs one command for a channel and sends the reply. Enhancement
// blocks until the backend answers, so callers run it off the gateway loop.
func (h *Handler) Respond(ctx context.Context, channelID, text string) {
	cmd, ok := ParseCommand(text)
	if !ok {
		return
	}

	switch cmd.Name {
	case CommandEnhance:
		h.enhance(ctx, channelID, cmd.Args)
	case CommandLoras:
		h.listLoras(channelID)
	case CommandStyles:
		h.listStyles(channelID)
	case CommandSave:
		h.save(channelID)
	case CommandHelp:
		h.sendLongMessage(channelID, Usage(h.prefix))
	default:
		h.logger.Debug("Unknown command", zap.String("command", cmd.Name))
	}
}

func (h *Handler) enhance(ctx context.Context, channelID string, args []string) {
	req, err := ParseEnhanceArgs(args)
	if err != nil {
		h.sendError(channelID, err)
		return
	}
	req.StyleTag = h.resolveStyleTag(req.StyleTag)

	session := h.sessions.ForKey(channelID)
	result, err := session.Enhance(ctx, req)
	if err != nil {
		h.logger.Warn("Enhancement failed",
			zap.String("session_id", session.ID),
			zap.String("error_type", string(apperrors.TypeOf(err))),
			zap.Error(err),
		)
		h.sendError(channelID, err)
		return
	}

	h.sendLongMessage(channelID, FormatResult(result))
}

// resolveStyleTag accepts either a full selector or the name of a loaded
// style entry, matched case-insensitively.
func (h *Handler) resolveStyleTag(tag string) string {
	if tag == "" || strings.Contains(tag, constants.SelectorSeparator) || h.catalog == nil {
		return tag
	}
	for _, entry := range h.catalog.Snapshot().StyleTags {
		if strings.EqualFold(entry.Name, tag) {
			return entry.Selector()
		}
	}
	return tag
}

func (h *Handler) listLoras(channelID string) {
	loras, warnings := h.catalog.RefreshLoras()

	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(apperrors.UserMessage(w))
		b.WriteString("\n")
	}
	if len(loras) == 0 {
		b.WriteString("No LoRAs found.")
		h.sendLongMessage(channelID, b.String())
		return
	}

	fmt.Fprintf(&b, "**LoRAs (%d)**\n", len(loras))
	for _, name := range loras {
		if trigger := h.catalog.Trigger(name); trigger != "" {
			fmt.Fprintf(&b, "`%s` → %s\n", name, trigger)
		} else {
			fmt.Fprintf(&b, "`%s`\n", name)
		}
	}
	h.sendLongMessage(channelID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handler) listStyles(channelID string) {
	var b strings.Builder
	b.WriteString("**Styles**\n")
	for _, name := range h.enhancer.Styles().Names() {
		marker := ""
		if name == constants.DefaultStyle {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "`%s`%s\n", name, marker)
	}

	if tags := h.catalog.Snapshot().StyleTags; len(tags) > 0 {
		fmt.Fprintf(&b, "\n**Style tags (%d)**\n", len(tags))
		for _, entry := range tags {
			fmt.Fprintf(&b, "`%s`\n", entry.Name)
		}
	}
	h.sendLongMessage(channelID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handler) save(channelID string) {
	result, ok := h.sessions.ForKey(channelID).Last()
	if !ok {
		h.sendError(channelID, apperrors.NewInvalidInput("positive", "No enhanced prompt to save"))
		return
	}

	if _, err := h.journal.Append(result.Positive, result.Negative); err != nil {
		h.sendError(channelID, err)
		return
	}
	h.sendLongMessage(channelID, fmt.Sprintf("Saved to `%s`.", h.journal.Path()))
}

func (h *Handler) sendError(channelID string, err error) {
	h.sendLongMessage(channelID, apperrors.UserMessage(err))
}

// FormatResult renders an enhancement as chat markdown
func FormatResult(result prompt.Formatted) string {
	var b strings.Builder
	b.WriteString("**Positive prompt**\n```\n")
	b.WriteString(result.Positive)
	b.WriteString("\n```")
	if result.Negative != "" {
		b.WriteString("\n**Negative prompt**\n```\n")
		b.WriteString(result.Negative)
		b.WriteString("\n```")
	}
	return b.String()
}
