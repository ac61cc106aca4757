package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emojistats/emojistats/internal/emoji"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestSQLite(t)

	require.NoError(t, s.UpsertChannel(Channel{ID: 100, GuildID: 1, Name: "general"}))
	require.NoError(t, s.UpsertUser(User{ID: 7, Name: "ana", Discriminator: "0001"}))
	require.NoError(t, s.UpsertEmoji(emoji.Custom{GuildID: 1, ID: 10, Name: "fire"}))
	require.NoError(t, s.UpsertEmoji(emoji.Unicode("🎉")))

	require.NoError(t, s.AddUsage(100, 7, "10", 2))
	require.NoError(t, s.AddUsage(100, 7, "10", 1))
	require.NoError(t, s.AddUsage(100, 7, "🎉", 1))
	require.NoError(t, s.RecordMessage(MessageStat{ID: 500, ChannelID: 100, UserID: 7, EmojiCount: 4}))

	seen, err := s.MessageSeen(500)
	require.NoError(t, err)
	assert.True(t, seen)

	top, err := s.TopEmoji(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(3), top[0].Count)
	assert.Equal(t, emoji.Custom{GuildID: 1, ID: 10, Name: "fire"}, top[0].Emoji)
	assert.Equal(t, emoji.Unicode("🎉"), top[1].Emoji)

	total, err := s.TotalUses(Filter{ChannelID: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	users, err := s.TopUsers(Filter{GuildID: 1}, 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana", users[0].Name)
	assert.Equal(t, int64(4), users[0].Uses)
}

func TestSQLiteEmojiReconcileSemantics(t *testing.T) {
	s := newTestSQLite(t)

	require.NoError(t, s.UpsertEmoji(emoji.Custom{GuildID: 1, ID: 10, Name: "old"}))
	require.NoError(t, s.AddUsage(100, 7, "10", 5))
	require.NoError(t, s.DeactivateEmoji("10"))

	// Deactivation preserves the row and its usage.
	counts, err := s.UsageByEmoji([]string{"10"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts["10"])

	// Re-upserting with a new name reactivates and renames in place.
	require.NoError(t, s.UpsertEmoji(emoji.Custom{GuildID: 1, ID: 10, Name: "new", Animated: true}))
	top, err := s.TopEmoji(Filter{}, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, emoji.Custom{GuildID: 1, ID: 10, Name: "new", Animated: true}, top[0].Emoji)
}

func TestSQLiteReactionDedup(t *testing.T) {
	s := newTestSQLite(t)

	require.NoError(t, s.UpsertChannel(Channel{ID: 100, GuildID: 1, Name: "general"}))
	require.NoError(t, s.UpsertEmoji(emoji.Unicode("🎉")))
	require.NoError(t, s.AddReaction(100, 500, 7, "🎉"))
	require.NoError(t, s.AddReaction(100, 500, 7, "🎉"))

	total, err := s.TotalReactions(Filter{GuildID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
