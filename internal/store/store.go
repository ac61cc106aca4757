// Package store persists channels, users, emoji, usage counters and
// per-message statistics, and answers the scoped aggregate queries behind the
// ranking commands. Two implementations exist: SQLite for production and
// Memory for tests.
package store

import (
	"github.com/diamondburned/arikawa/v3/discord"

	"github.com/emojistats/emojistats/internal/emoji"
)

// Channel is a known public text channel. GuildID is zero for channels whose
// server affiliation is unknown.
type Channel struct {
	ID      discord.ChannelID
	GuildID discord.GuildID
	Name    string
}

// User carries the display fields needed to render top-user lines.
type User struct {
	ID            discord.UserID
	Name          string
	Discriminator string
}

// MessageStat is the per-message record whose existence doubles as the
// idempotence marker: a message with a stat row is never recorded again.
type MessageStat struct {
	ID         discord.MessageID
	ChannelID  discord.ChannelID
	UserID     discord.UserID
	EmojiCount int
}

// EmojiUsage pairs an emoji with its aggregated use count.
type EmojiUsage struct {
	Emoji emoji.Emoji
	Count int64
}

// UserUsage aggregates a user's message statistics. Uses is the total emoji
// used across messages, Messages the number of messages recorded.
type UserUsage struct {
	ID       discord.UserID
	Name     string
	Uses     int64
	Messages int64
}

// Filter scopes an aggregate query. Zero fields mean "any". GuildID is
// resolved through the channel table, so only usage in channels the store
// knows to belong to the guild is counted.
type Filter struct {
	GuildID     discord.GuildID
	ChannelID   discord.ChannelID
	UserID      discord.UserID
	CustomOnly  bool
	UnicodeOnly bool
}

// Store is the narrow row-store interface the rest of the bot is written
// against. Writes are commutative upserts or increments; aggregate reads
// reflect every write that completed before the call.
type Store interface {
	UpsertChannel(ch Channel) error
	UpsertUser(u User) error

	// UpsertEmoji inserts the emoji or refreshes its name/animation flag,
	// marking it active. DeactivateEmoji flips the active flag without
	// deleting the row, so historical usage stays joinable.
	UpsertEmoji(e emoji.Emoji) error
	DeactivateEmoji(key string) error

	MessageSeen(id discord.MessageID) (bool, error)
	RecordMessage(stat MessageStat) error
	AddUsage(channelID discord.ChannelID, userID discord.UserID, emojiKey string, count int) error
	AddReaction(channelID discord.ChannelID, messageID discord.MessageID, userID discord.UserID, emojiKey string) error

	// TopEmoji and TopReactionEmoji return strictly descending counts,
	// ties broken by emoji key ascending.
	TopEmoji(f Filter, limit int) ([]EmojiUsage, error)
	TopReactionEmoji(f Filter, limit int) ([]EmojiUsage, error)
	TotalUses(f Filter) (int64, error)
	TotalReactions(f Filter) (int64, error)
	TopUsers(f Filter, limit int) ([]UserUsage, error)

	// UsageByEmoji returns total use counts for the given keys; keys that
	// were never used are absent from the result.
	UsageByEmoji(keys []string) (map[string]int64, error)

	Close() error
}
