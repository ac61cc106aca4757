package ranking

import (
	"testing"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emojistats/emojistats/internal/emoji"
	"github.com/emojistats/emojistats/internal/roster"
	"github.com/emojistats/emojistats/internal/store"
)

type emptyDirectory struct{}

func (emptyDirectory) Guilds() ([]discord.Guild, error)                    { return nil, nil }
func (emptyDirectory) Channels(discord.GuildID) ([]discord.Channel, error) { return nil, nil }
func (emptyDirectory) Emojis(discord.GuildID) ([]discord.Emoji, error)     { return nil, nil }

func newFixture(t *testing.T) (*Engine, store.Store, *roster.Cache) {
	t.Helper()

	st := store.NewMemory()
	ro := roster.New(st, emptyDirectory{}, zap.NewNop())
	ro.ServerSeen(discord.Guild{
		ID:   1,
		Name: "test",
		Emojis: []discord.Emoji{
			{ID: 10, Name: "fire"},
			{ID: 11, Name: "party"},
		},
	}, []discord.Channel{
		{ID: 100, GuildID: 1, Name: "general", Type: discord.GuildText},
	})

	require.NoError(t, st.UpsertEmoji(emoji.Unicode("🎉")))
	require.NoError(t, st.UpsertEmoji(emoji.Unicode("🔥")))

	return New(st, ro), st, ro
}

func TestTopEmojiOrdering(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "🎉", 7))
	require.NoError(t, st.AddUsage(100, 7, "🔥", 3))

	top, err := e.TopEmoji(Global{}, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, emoji.Unicode("🎉"), top[0].Emoji)
	assert.Equal(t, int64(7), top[0].Count)
	assert.Equal(t, emoji.Unicode("🔥"), top[1].Emoji)
	assert.Equal(t, int64(3), top[1].Count)
}

func TestTopEmojiDeterministicTies(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "11", 2))
	require.NoError(t, st.AddUsage(100, 7, "10", 2))

	for i := 0; i < 5; i++ {
		top, err := e.TopEmoji(Server{ID: 1}, 0)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "10", top[0].Emoji.Key())
		assert.Equal(t, "11", top[1].Emoji.Key())
	}
}

func TestGlobalUnicodeOnly(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "10", 9))
	require.NoError(t, st.AddUsage(100, 7, "🎉", 1))

	top, err := e.TopEmoji(Global{UnicodeOnly: true}, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, emoji.Unicode("🎉"), top[0].Emoji)

	total, err := e.TotalUses(Global{UnicodeOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestUserScopeNarrowedToServer(t *testing.T) {
	e, st, _ := newFixture(t)

	// Channel 200 belongs to no known server, so a server-scoped query
	// must not see its rows.
	require.NoError(t, st.AddUsage(100, 7, "🎉", 2))
	require.NoError(t, st.AddUsage(200, 7, "🎉", 5))

	total, err := e.TotalUses(User{ID: 7, Guild: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = e.TotalUses(User{ID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
}

func TestLeastUsedCustomEmojiZeroFills(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "10", 4))

	least, err := e.LeastUsedCustomEmoji(1, 0)
	require.NoError(t, err)
	require.Len(t, least, 2)
	assert.Equal(t, "11", least[0].Emoji.Key())
	assert.Equal(t, int64(0), least[0].Count)
	assert.Equal(t, "10", least[1].Emoji.Key())
	assert.Equal(t, int64(4), least[1].Count)
}

func TestLeastUsedExcludesDeactivated(t *testing.T) {
	e, st, ro := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "10", 4))
	ro.ReconcileEmoji(1, []discord.Emoji{{ID: 11, Name: "party"}})

	least, err := e.LeastUsedCustomEmoji(1, 0)
	require.NoError(t, err)
	require.Len(t, least, 1)
	assert.Equal(t, "11", least[0].Emoji.Key())
}

func TestUsesSingleEmoji(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.AddUsage(100, 7, "🎉", 3))
	require.NoError(t, st.AddUsage(100, 8, "🎉", 2))

	n, err := e.Uses("🎉")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = e.Uses("🔥")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTopUsers(t *testing.T) {
	e, st, _ := newFixture(t)

	require.NoError(t, st.UpsertUser(store.User{ID: 7, Name: "alice"}))
	require.NoError(t, st.UpsertUser(store.User{ID: 8, Name: "bob"}))
	require.NoError(t, st.RecordMessage(store.MessageStat{ID: 1, ChannelID: 100, UserID: 7, EmojiCount: 5}))
	require.NoError(t, st.RecordMessage(store.MessageStat{ID: 2, ChannelID: 100, UserID: 8, EmojiCount: 2}))
	require.NoError(t, st.RecordMessage(store.MessageStat{ID: 3, ChannelID: 100, UserID: 8, EmojiCount: 1}))

	users, err := e.TopUsers(Server{ID: 1}, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, int64(5), users[0].Uses)
	assert.Equal(t, "bob", users[1].Name)
	assert.Equal(t, int64(3), users[1].Uses)
	assert.Equal(t, int64(2), users[1].Messages)
}
