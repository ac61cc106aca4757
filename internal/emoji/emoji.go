// Package emoji defines the emoji model shared by the roster cache, the usage
// recorder and the ranking engine. An emoji is either a server-scoped custom
// emoji identified by its snowflake, or a Unicode emoji identified by its
// glyph sequence.
package emoji

import (
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
)

// Emoji is a closed sum: the only implementations are Custom and Unicode.
// Key is the stable identity used in storage rows; Pattern is the literal
// text counted in message bodies.
type Emoji interface {
	Key() string
	Pattern() string

	isEmoji()
}

// Custom is a server emoji. Identity is the snowflake; the name may change
// over the emoji's lifetime without creating a new entity.
type Custom struct {
	GuildID  discord.GuildID
	ID       discord.EmojiID
	Name     string
	Animated bool
	Active   bool
}

func (c Custom) Key() string { return c.ID.String() }

// Pattern renders the bracket form Discord embeds in message bodies,
// <:name:id> or <a:name:id> for animated emoji.
func (c Custom) Pattern() string {
	if c.Animated {
		return fmt.Sprintf("<a:%s:%s>", c.Name, c.ID)
	}
	return fmt.Sprintf("<:%s:%s>", c.Name, c.ID)
}

func (Custom) isEmoji() {}

// Unicode is a platform emoji. Some glyphs span multiple codepoints; the
// whole sequence is the identity.
type Unicode string

func (u Unicode) Key() string     { return string(u) }
func (u Unicode) Pattern() string { return string(u) }

func (Unicode) isEmoji() {}
