package webhook

import "strings"

var formatters = map[Platform]Formatter{
	PlatformGeneric: GenericFormatter{},
	PlatformSlack:   SlackFormatter{},
	PlatformDiscord: DiscordFormatter{},
}

// Detect picks the platform for url. A known override wins; otherwise the URL
// host pattern decides, falling back to PlatformGeneric.
func Detect(url, override string) Platform {
	if p := Platform(strings.ToLower(override)); p != "" {
		if _, ok := formatters[p]; ok {
			return p
		}
	}

	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, "hooks.slack.com"):
		return PlatformSlack
	case strings.Contains(u, "discord.com/api/webhooks"):
		return PlatformDiscord
	default:
		return PlatformGeneric
	}
}

// FormatterFor returns the formatter for p, or the generic one.
func FormatterFor(p Platform) Formatter {
	if f, ok := formatters[p]; ok {
		return f
	}
	return formatters[PlatformGeneric]
}
