package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"sd-prompt-enhancer/backend/internal/state"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// Command names understood by the bot
const (
	CommandEnhance = "enhance"
	CommandLoras   = "loras"
	CommandStyles  = "styles"
	CommandSave    = "save"
	CommandHelp    = "help"
)

// Command is a parsed chat command
type Command struct {
	Name string
	Args []string
}

// CommandText extracts the command part of a message. Messages addressed to
// the bot either start with the prefix or with a mention of the bot.
func CommandText(content, prefix, botID string) (string, bool) {
	content = strings.TrimSpace(content)

	if botID != "" {
		for _, mention := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
			if strings.HasPrefix(content, mention) {
				rest := strings.TrimSpace(strings.TrimPrefix(content, mention))
				return strings.TrimPrefix(rest, prefix), rest != ""
			}
		}
	}

	if prefix != "" && strings.HasPrefix(content, prefix) {
		rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
		return rest, rest != ""
	}
	return "", false
}

// ParseCommand splits command text with shell quoting rules. Text that is not
// valid shell syntax, such as an unbalanced apostrophe, falls back to plain
// whitespace splitting.
func ParseCommand(text string) (Command, bool) {
	tokens, err := shellquote.Split(text)
	if err != nil {
		tokens = strings.Fields(text)
	}
	if len(tokens) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(tokens[0]), Args: tokens[1:]}, true
}

// ParseEnhanceArgs builds a request from "!enhance" arguments. Words that are
// not options form the base prompt; options may appear anywhere, as
// "--name value" or "--name=value".
func ParseEnhanceArgs(args []string) (state.EnhancementRequest, error) {
	var (
		req   state.EnhancementRequest
		words []string
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") || len(arg) == 2 {
			words = append(words, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		name = strings.ToLower(name)

		if name == "nsfw" {
			req.NSFW = true
			if hasValue {
				b, err := strconv.ParseBool(value)
				if err != nil {
					return req, apperrors.NewInvalidInput("nsfw", fmt.Sprintf("--nsfw expects true or false, got %q", value))
				}
				req.NSFW = b
			}
			continue
		}

		if !hasValue {
			if i+1 >= len(args) {
				return req, apperrors.NewInvalidInput(name, fmt.Sprintf("--%s needs a value", name))
			}
			i++
			value = args[i]
		}

		switch name {
		case "style":
			req.Style = value
		case "concise", "conciseness":
			level, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return req, apperrors.NewInvalidInput("conciseness", fmt.Sprintf("--%s expects a number, got %q", name, value))
			}
			req.Conciseness = &level
		case "checkpoint":
			req.Checkpoint = value
		case "lora":
			req.Lora = value
		case "tag":
			req.StyleTag = value
		default:
			return req, apperrors.NewInvalidInput("option", fmt.Sprintf("unknown option --%s", name))
		}
	}

	req.BasePrompt = strings.Join(words, " ")
	return req, nil
}

// Usage is the help text for the bot's commands
func Usage(prefix string) string {
	var b strings.Builder
	b.WriteString("**Commands**\n")
	fmt.Fprintf(&b, "`%senhance <prompt> [--style S] [--concise 0-100] [--nsfw] [--checkpoint C] [--lora L] [--tag T]`\n", prefix)
	fmt.Fprintf(&b, "`%sloras` refresh and list LoRAs\n", prefix)
	fmt.Fprintf(&b, "`%sstyles` list styles and style tags\n", prefix)
	fmt.Fprintf(&b, "`%ssave` append this channel's last result to the prompt log\n", prefix)
	return b.String()
}
