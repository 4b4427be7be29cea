package bot

import (
	"regexp"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	userMentionPattern    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern    = regexp.MustCompile(`<@&(\d+)>`)
	channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)

	massMentionReplacer = strings.NewReplacer(
		"@everyone", "@\u200beveryone",
		"@here", "@\u200bhere",
	)
)

// nameLookup resolves role and channel names for mention rendering.
type nameLookup interface {
	RoleName(guildID, roleID snowflake.ID) (string, bool)
	ChannelName(channelID snowflake.ID) (string, bool)
}

// sanitizeContent renders mentions as plain names and defuses mass mentions so
// stored text is readable by the model and safe to echo back.
func sanitizeContent(msg discord.Message, lookup nameLookup) string {
	users := make(map[string]string, len(msg.Mentions))
	for _, user := range msg.Mentions {
		users[user.ID.String()] = user.EffectiveName()
	}

	content := replaceMentions(msg.Content, userMentionPattern, func(id string) string {
		if name, ok := users[id]; ok {
			return "@" + name
		}
		return "@invalid-user"
	})

	content = replaceMentions(content, roleMentionPattern, func(id string) string {
		if msg.GuildID != nil && lookup != nil {
			if roleID, err := snowflake.Parse(id); err == nil {
				if name, ok := lookup.RoleName(*msg.GuildID, roleID); ok {
					return "@" + name
				}
			}
		}
		return "@deleted-role"
	})

	content = replaceMentions(content, channelMentionPattern, func(id string) string {
		if lookup != nil {
			if channelID, err := snowflake.Parse(id); err == nil {
				if name, ok := lookup.ChannelName(channelID); ok {
					return "#" + name
				}
			}
		}
		return "#deleted-channel"
	})

	return norm.NFC.String(massMentionReplacer.Replace(content))
}

// replaceMentions replaces every match of pattern with the result of render
// applied to the captured id.
func replaceMentions(content string, pattern *regexp.Regexp, render func(id string) string) string {
	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := pattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		return render(groups[1])
	})
}
