// Package arg classifies whitespace-delimited command tokens. Discord embeds
// structured references in plain text using a bracket grammar
// (https://discord.com/developers/docs/reference#message-formatting); anything
// that does not match a known form is plain text.
package arg

import (
	"strconv"
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
)

type Kind int

const (
	Text Kind = iota
	User
	Role
	Channel
	CustomEmoji
)

// Ref is the classification of a single token. For Text, Token holds the
// original input unchanged; for the reference kinds, ID holds the parsed
// snowflake.
type Ref struct {
	Kind  Kind
	ID    discord.Snowflake
	Token string
}

func (r Ref) UserID() discord.UserID       { return discord.UserID(r.ID) }
func (r Ref) RoleID() discord.RoleID       { return discord.RoleID(r.ID) }
func (r Ref) ChannelID() discord.ChannelID { return discord.ChannelID(r.ID) }
func (r Ref) EmojiID() discord.EmojiID     { return discord.EmojiID(r.ID) }

// Classify never fails: any token that is not a well-formed reference comes
// back as Text with the token untouched.
func Classify(token string) Ref {
	text := Ref{Kind: Text, Token: token}

	if !strings.HasSuffix(token, ">") {
		return text
	}

	switch {
	case strings.HasPrefix(token, "<@!"):
		if id, ok := parseSnowflake(token[3 : len(token)-1]); ok {
			return Ref{Kind: User, ID: id, Token: token}
		}
	case strings.HasPrefix(token, "<@&"):
		if id, ok := parseSnowflake(token[3 : len(token)-1]); ok {
			return Ref{Kind: Role, ID: id, Token: token}
		}
	case strings.HasPrefix(token, "<@"):
		if id, ok := parseSnowflake(token[2 : len(token)-1]); ok {
			return Ref{Kind: User, ID: id, Token: token}
		}
	case strings.HasPrefix(token, "<#"):
		if id, ok := parseSnowflake(token[2 : len(token)-1]); ok {
			return Ref{Kind: Channel, ID: id, Token: token}
		}
	case strings.HasPrefix(token, "<:"):
		// <:name:id>: the name must be at least one character, so the
		// second colon is searched for starting after it.
		body := token[2 : len(token)-1]
		if sep := strings.IndexByte(body, ':'); sep >= 1 {
			if id, ok := parseSnowflake(body[sep+1:]); ok {
				return Ref{Kind: CustomEmoji, ID: id, Token: token}
			}
		}
	}

	return text
}

func parseSnowflake(s string) (discord.Snowflake, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return discord.Snowflake(n), true
}
