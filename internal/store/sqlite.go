package store

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/diamondburned/arikawa/v3/discord"
	_ "github.com/mattn/go-sqlite3"

	"github.com/emojistats/emojistats/internal/emoji"
)

// Database schema
const schema = `
CREATE TABLE IF NOT EXISTS emoji (
	key TEXT NOT NULL,
	name TEXT NOT NULL,
	guild_id BIGINT,
	is_custom BOOL NOT NULL,
	is_animated BOOL NOT NULL DEFAULT FALSE,
	is_active BOOL NOT NULL DEFAULT TRUE,
	PRIMARY KEY (key)
);

CREATE TABLE IF NOT EXISTS channel (
	id BIGINT NOT NULL,
	guild_id BIGINT,
	name TEXT NOT NULL,
	PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS app_user (
	id BIGINT NOT NULL,
	name TEXT NOT NULL,
	discriminator TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS message (
	id BIGINT NOT NULL,
	channel_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	emoji_count INTEGER NOT NULL,
	PRIMARY KEY (id)
);

CREATE TABLE IF NOT EXISTS emoji_usage (
	channel_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	emoji_key TEXT NOT NULL,
	use_count INTEGER NOT NULL,
	PRIMARY KEY (channel_id, user_id, emoji_key)
);

CREATE TABLE IF NOT EXISTS reaction (
	channel_id BIGINT NOT NULL,
	message_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	emoji_key TEXT NOT NULL,
	PRIMARY KEY (channel_id, message_id, user_id, emoji_key)
);

CREATE INDEX IF NOT EXISTS idx_emoji_usage_emoji_key ON emoji_usage(emoji_key);
CREATE INDEX IF NOT EXISTS idx_channel_guild_id ON channel(guild_id);
CREATE INDEX IF NOT EXISTS idx_message_channel_id ON message(channel_id);
CREATE INDEX IF NOT EXISTS idx_reaction_channel_id ON reaction(channel_id);
`

// SQLite is the production Store backed by mattn/go-sqlite3.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) UpsertChannel(ch Channel) error {
	query := `
		INSERT INTO channel (id, guild_id, name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			guild_id = excluded.guild_id,
			name = excluded.name
	`
	_, err := s.db.Exec(query, int64(ch.ID), nullableID(int64(ch.GuildID)), ch.Name)
	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertUser(u User) error {
	query := `
		INSERT INTO app_user (id, name, discriminator)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			discriminator = excluded.discriminator
	`
	_, err := s.db.Exec(query, int64(u.ID), u.Name, u.Discriminator)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertEmoji(e emoji.Emoji) error {
	query := `
		INSERT INTO emoji (key, name, guild_id, is_custom, is_animated, is_active)
		VALUES (?, ?, ?, ?, ?, TRUE)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			guild_id = excluded.guild_id,
			is_animated = excluded.is_animated,
			is_active = TRUE
	`

	var err error
	switch e := e.(type) {
	case emoji.Custom:
		_, err = s.db.Exec(query, e.Key(), e.Name, nullableID(int64(e.GuildID)), true, e.Animated)
	case emoji.Unicode:
		_, err = s.db.Exec(query, e.Key(), string(e), nil, false, false)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert emoji: %w", err)
	}
	return nil
}

func (s *SQLite) DeactivateEmoji(key string) error {
	_, err := s.db.Exec(`UPDATE emoji SET is_active = FALSE WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to deactivate emoji: %w", err)
	}
	return nil
}

func (s *SQLite) MessageSeen(id discord.MessageID) (bool, error) {
	var seen bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM message WHERE id = ?)`, int64(id)).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to check message: %w", err)
	}
	return seen, nil
}

func (s *SQLite) RecordMessage(stat MessageStat) error {
	query := `
		INSERT INTO message (id, channel_id, user_id, emoji_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	_, err := s.db.Exec(query, int64(stat.ID), int64(stat.ChannelID), int64(stat.UserID), stat.EmojiCount)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}

func (s *SQLite) AddUsage(channelID discord.ChannelID, userID discord.UserID, emojiKey string, count int) error {
	query := `
		INSERT INTO emoji_usage (channel_id, user_id, emoji_key, use_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id, user_id, emoji_key) DO UPDATE SET
			use_count = use_count + excluded.use_count
	`
	_, err := s.db.Exec(query, int64(channelID), int64(userID), emojiKey, count)
	if err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

func (s *SQLite) AddReaction(channelID discord.ChannelID, messageID discord.MessageID, userID discord.UserID, emojiKey string) error {
	query := `
		INSERT INTO reaction (channel_id, message_id, user_id, emoji_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_id, message_id, user_id, emoji_key) DO NOTHING
	`
	_, err := s.db.Exec(query, int64(channelID), int64(messageID), int64(userID), emojiKey)
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

func (s *SQLite) TopEmoji(f Filter, limit int) ([]EmojiUsage, error) {
	q := sq.Select(
		"e.key", "e.name", "e.guild_id", "e.is_custom", "e.is_animated",
		"SUM(u.use_count) AS uses",
	).
		From("emoji_usage u").
		Join("emoji e ON e.key = u.emoji_key").
		GroupBy("e.key", "e.name", "e.guild_id", "e.is_custom", "e.is_animated").
		OrderBy("uses DESC", "e.key ASC").
		Limit(uint64(limit))
	q = filterUsage(q, f, "u")

	rows, err := q.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query top emoji: %w", err)
	}
	defer rows.Close()

	return scanEmojiUsage(rows)
}

func (s *SQLite) TopReactionEmoji(f Filter, limit int) ([]EmojiUsage, error) {
	q := sq.Select(
		"e.key", "e.name", "e.guild_id", "e.is_custom", "e.is_animated",
		"COUNT(*) AS uses",
	).
		From("reaction r").
		Join("emoji e ON e.key = r.emoji_key").
		GroupBy("e.key", "e.name", "e.guild_id", "e.is_custom", "e.is_animated").
		OrderBy("uses DESC", "e.key ASC").
		Limit(uint64(limit))
	q = filterUsage(q, f, "r")

	rows, err := q.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query top reaction emoji: %w", err)
	}
	defer rows.Close()

	return scanEmojiUsage(rows)
}

func (s *SQLite) TotalUses(f Filter) (int64, error) {
	q := sq.Select("COALESCE(SUM(u.use_count), 0)").
		From("emoji_usage u").
		Join("emoji e ON e.key = u.emoji_key")
	q = filterUsage(q, f, "u")

	var total int64
	if err := q.RunWith(s.db).QueryRow().Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query total uses: %w", err)
	}
	return total, nil
}

func (s *SQLite) TotalReactions(f Filter) (int64, error) {
	q := sq.Select("COUNT(*)").
		From("reaction r").
		Join("emoji e ON e.key = r.emoji_key")
	q = filterUsage(q, f, "r")

	var total int64
	if err := q.RunWith(s.db).QueryRow().Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query total reactions: %w", err)
	}
	return total, nil
}

func (s *SQLite) TopUsers(f Filter, limit int) ([]UserUsage, error) {
	q := sq.Select(
		"m.user_id", "COALESCE(au.name, '')",
		"SUM(m.emoji_count) AS uses", "COUNT(*) AS messages",
	).
		From("message m").
		LeftJoin("app_user au ON au.id = m.user_id").
		GroupBy("m.user_id", "au.name").
		Having("SUM(m.emoji_count) > 0").
		OrderBy("uses DESC", "m.user_id ASC").
		Limit(uint64(limit))

	if f.ChannelID.IsValid() {
		q = q.Where(sq.Eq{"m.channel_id": int64(f.ChannelID)})
	}
	if f.GuildID.IsValid() {
		q = q.Join("channel c ON c.id = m.channel_id").
			Where(sq.Eq{"c.guild_id": int64(f.GuildID)})
	}
	if f.UserID.IsValid() {
		q = q.Where(sq.Eq{"m.user_id": int64(f.UserID)})
	}

	rows, err := q.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	defer rows.Close()

	var out []UserUsage
	for rows.Next() {
		var u UserUsage
		var id int64
		if err := rows.Scan(&id, &u.Name, &u.Uses, &u.Messages); err != nil {
			return nil, fmt.Errorf("failed to scan top user row: %w", err)
		}
		u.ID = discord.UserID(id)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *SQLite) UsageByEmoji(keys []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}

	q := sq.Select("emoji_key", "SUM(use_count)").
		From("emoji_usage").
		Where(sq.Eq{"emoji_key": keys}).
		GroupBy("emoji_key")

	rows, err := q.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query usage by emoji: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// filterUsage applies the common scope conditions to a query whose usage or
// reaction table is aliased tbl and whose emoji table is aliased e.
func filterUsage(q sq.SelectBuilder, f Filter, tbl string) sq.SelectBuilder {
	if f.ChannelID.IsValid() {
		q = q.Where(sq.Eq{tbl + ".channel_id": int64(f.ChannelID)})
	}
	if f.GuildID.IsValid() {
		q = q.Join("channel c ON c.id = " + tbl + ".channel_id").
			Where(sq.Eq{"c.guild_id": int64(f.GuildID)})
	}
	if f.UserID.IsValid() {
		q = q.Where(sq.Eq{tbl + ".user_id": int64(f.UserID)})
	}
	if f.CustomOnly {
		q = q.Where(sq.Eq{"e.is_custom": true})
	}
	if f.UnicodeOnly {
		q = q.Where(sq.Eq{"e.is_custom": false})
	}
	return q
}

func scanEmojiUsage(rows *sql.Rows) ([]EmojiUsage, error) {
	var out []EmojiUsage
	for rows.Next() {
		var (
			key, name string
			guildID   sql.NullInt64
			isCustom  bool
			animated  bool
			count     int64
		)
		if err := rows.Scan(&key, &name, &guildID, &isCustom, &animated, &count); err != nil {
			return nil, fmt.Errorf("failed to scan emoji usage row: %w", err)
		}
		out = append(out, EmojiUsage{Emoji: rowEmoji(key, name, guildID, isCustom, animated), Count: count})
	}
	return out, rows.Err()
}

func rowEmoji(key, name string, guildID sql.NullInt64, isCustom, animated bool) emoji.Emoji {
	if !isCustom {
		return emoji.Unicode(key)
	}
	id, err := discord.ParseSnowflake(key)
	if err != nil {
		// A custom emoji row always carries a snowflake key; treat a
		// malformed one as unicode rather than dropping the row.
		return emoji.Unicode(key)
	}
	return emoji.Custom{
		GuildID:  discord.GuildID(guildID.Int64),
		ID:       discord.EmojiID(id),
		Name:     name,
		Animated: animated,
	}
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}
