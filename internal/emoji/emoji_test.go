package emoji

import (
	"testing"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
)

func TestCustomPattern(t *testing.T) {
	e := Custom{GuildID: 1, ID: 10, Name: "fire"}
	assert.Equal(t, "<:fire:10>", e.Pattern())
	assert.Equal(t, "10", e.Key())

	e.Animated = true
	assert.Equal(t, "<a:fire:10>", e.Pattern())
	assert.Equal(t, "10", e.Key(), "animation does not change identity")
}

func TestCustomRenamedKeepsKey(t *testing.T) {
	before := Custom{GuildID: 1, ID: discord.EmojiID(42), Name: "old"}
	after := Custom{GuildID: 1, ID: discord.EmojiID(42), Name: "new"}
	assert.Equal(t, before.Key(), after.Key())
	assert.NotEqual(t, before.Pattern(), after.Pattern())
}

func TestUnicodeIdentity(t *testing.T) {
	u := Unicode("🎉")
	assert.Equal(t, "🎉", u.Key())
	assert.Equal(t, "🎉", u.Pattern())

	// Multi-codepoint sequences stay intact.
	v := Unicode("✌️")
	assert.Equal(t, string(v), v.Key())
}

func TestBuiltinHasNoDuplicates(t *testing.T) {
	seen := make(map[Unicode]bool, len(Builtin))
	for _, u := range Builtin {
		assert.Falsef(t, seen[u], "duplicate builtin emoji %q", u)
		seen[u] = true
	}
}
