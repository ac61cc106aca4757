package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojistats/emojistats/internal/emoji"
)

func seedMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()

	require.NoError(t, m.UpsertChannel(Channel{ID: 100, GuildID: 1, Name: "general"}))
	require.NoError(t, m.UpsertChannel(Channel{ID: 101, GuildID: 1, Name: "random"}))
	require.NoError(t, m.UpsertChannel(Channel{ID: 200, GuildID: 2, Name: "other"}))

	require.NoError(t, m.UpsertEmoji(emoji.Custom{GuildID: 1, ID: 10, Name: "fire"}))
	require.NoError(t, m.UpsertEmoji(emoji.Custom{GuildID: 1, ID: 11, Name: "party"}))
	require.NoError(t, m.UpsertEmoji(emoji.Unicode("🎉")))
	require.NoError(t, m.UpsertEmoji(emoji.Unicode("🔥")))

	return m
}

func TestMemoryUsageIncrements(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddUsage(100, 7, "10", 2))
	require.NoError(t, m.AddUsage(100, 7, "10", 1))

	counts, err := m.UsageByEmoji([]string{"10", "11"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["10"])
	_, present := counts["11"]
	assert.False(t, present, "never-used emoji are absent")
}

func TestMemoryTopEmojiOrderAndScope(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddUsage(100, 7, "🎉", 7))
	require.NoError(t, m.AddUsage(100, 7, "🔥", 3))
	require.NoError(t, m.AddUsage(200, 8, "🔥", 50)) // other guild

	top, err := m.TopEmoji(Filter{ChannelID: 100}, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, emoji.Unicode("🎉"), top[0].Emoji)
	assert.Equal(t, int64(7), top[0].Count)
	assert.Equal(t, emoji.Unicode("🔥"), top[1].Emoji)
	assert.Equal(t, int64(3), top[1].Count)

	// Guild scope resolves through the channel table.
	top, err = m.TopEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(7), top[0].Count)

	total, err := m.TotalUses(Filter{GuildID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
}

func TestMemoryTopEmojiDeterministicTies(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddUsage(100, 7, "10", 4))
	require.NoError(t, m.AddUsage(100, 7, "11", 4))

	first, err := m.TopEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	second, err := m.TopEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Tie broken by key ascending.
	assert.Equal(t, "10", first[0].Emoji.Key())
	assert.Equal(t, "11", first[1].Emoji.Key())
}

func TestMemoryCustomUnicodeFilters(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddUsage(100, 7, "10", 1))
	require.NoError(t, m.AddUsage(100, 7, "🎉", 9))

	top, err := m.TopEmoji(Filter{CustomOnly: true}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "10", top[0].Emoji.Key())

	top, err = m.TopEmoji(Filter{UnicodeOnly: true}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, emoji.Unicode("🎉"), top[0].Emoji)
}

func TestMemoryReactionsArePresenceOnly(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddReaction(100, 500, 7, "🎉"))
	require.NoError(t, m.AddReaction(100, 500, 7, "🎉")) // duplicate
	require.NoError(t, m.AddReaction(100, 500, 8, "🎉"))

	total, err := m.TotalReactions(Filter{ChannelID: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	top, err := m.TopReactionEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(2), top[0].Count)
}

func TestMemoryMessageIdempotenceMarker(t *testing.T) {
	m := seedMemory(t)

	seen, err := m.MessageSeen(500)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, m.RecordMessage(MessageStat{ID: 500, ChannelID: 100, UserID: 7, EmojiCount: 3}))
	seen, err = m.MessageSeen(500)
	require.NoError(t, err)
	assert.True(t, seen)

	// A second record for the same id does not overwrite the first.
	require.NoError(t, m.RecordMessage(MessageStat{ID: 500, ChannelID: 100, UserID: 7, EmojiCount: 99}))
	users, err := m.TopUsers(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(3), users[0].Uses)
}

func TestMemoryTopUsersExcludesZero(t *testing.T) {
	m := seedMemory(t)
	require.NoError(t, m.UpsertUser(User{ID: 7, Name: "ana"}))

	require.NoError(t, m.RecordMessage(MessageStat{ID: 1, ChannelID: 100, UserID: 7, EmojiCount: 2}))
	require.NoError(t, m.RecordMessage(MessageStat{ID: 2, ChannelID: 100, UserID: 7, EmojiCount: 1}))
	require.NoError(t, m.RecordMessage(MessageStat{ID: 3, ChannelID: 100, UserID: 8, EmojiCount: 0}))

	users, err := m.TopUsers(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana", users[0].Name)
	assert.Equal(t, int64(3), users[0].Uses)
	assert.Equal(t, int64(2), users[0].Messages)
}

func TestMemoryDeactivateKeepsRow(t *testing.T) {
	m := seedMemory(t)

	require.NoError(t, m.AddUsage(100, 7, "10", 5))
	require.NoError(t, m.DeactivateEmoji("10"))

	// Historical usage stays joinable after deactivation.
	top, err := m.TopEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "10", top[0].Emoji.Key())
}
