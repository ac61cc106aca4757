// Package recorder turns gateway message and reaction events into persisted
// usage rows. Each message is recorded at most once; emoji occurrences are
// counted by substring matching against the server's known emoji patterns.
package recorder

import (
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	"github.com/emojistats/emojistats/internal/emoji"
	"github.com/emojistats/emojistats/internal/roster"
	"github.com/emojistats/emojistats/internal/store"
	"github.com/emojistats/emojistats/internal/telemetry"
)

// Message is the slice of a gateway message the recorder cares about.
type Message struct {
	ID        discord.MessageID
	ChannelID discord.ChannelID
	AuthorID  discord.UserID
	Author    string
	Content   string
}

// Reaction is one reaction-add event.
type Reaction struct {
	MessageID discord.MessageID
	ChannelID discord.ChannelID
	UserID    discord.UserID
	EmojiID   discord.EmojiID // zero for unicode emoji
	EmojiName string
}

type Recorder struct {
	log     *zap.Logger
	store   store.Store
	roster  *roster.Cache
	unicode []emoji.Unicode
}

func New(st store.Store, ro *roster.Cache, unicode []emoji.Unicode, log *zap.Logger) *Recorder {
	return &Recorder{
		log:     log,
		store:   st,
		roster:  ro,
		unicode: unicode,
	}
}

// Record counts every tracked emoji occurrence in msg and persists the
// counts. A message already seen is skipped entirely, so redelivered events
// never double-count. Messages from channels the roster cannot place are
// dropped.
func (r *Recorder) Record(msg Message) error {
	guildID, ok := r.roster.GuildForChannel(msg.ChannelID)
	if !ok {
		if !r.roster.EnsureChannel(msg.ChannelID) {
			return nil
		}
		guildID, ok = r.roster.GuildForChannel(msg.ChannelID)
		if !ok {
			// Resolved to a private channel; nothing to count there.
			return nil
		}
	}

	seen, err := r.store.MessageSeen(msg.ID)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	counts := r.count(guildID, msg.Content)

	if err := r.store.UpsertUser(store.User{ID: msg.AuthorID, Name: msg.Author}); err != nil {
		return err
	}

	total := 0
	for key, n := range counts {
		if err := r.store.AddUsage(msg.ChannelID, msg.AuthorID, key, n); err != nil {
			return err
		}
		telemetry.EmojiUses.Add(float64(n))
		total += n
	}

	// The stat row is written last and doubles as the seen marker, so even
	// a message without emoji gets one.
	stat := store.MessageStat{
		ID:         msg.ID,
		ChannelID:  msg.ChannelID,
		UserID:     msg.AuthorID,
		EmojiCount: total,
	}
	if err := r.store.RecordMessage(stat); err != nil {
		return err
	}

	if total > 0 {
		r.log.Debug("recorded message",
			zap.Uint64("message_id", uint64(msg.ID)),
			zap.Int("emoji", total))
	}
	return nil
}

// RecordReaction stores one presence row per (message, user, emoji). Custom
// emoji unknown to the roster are ignored; reactions carry no count, so a
// repeated event is a no-op.
func (r *Recorder) RecordReaction(re Reaction) error {
	var key string
	if re.EmojiID.IsValid() {
		e, known := r.roster.ActiveEmojiByID(re.EmojiID)
		if !known {
			r.log.Debug("ignoring reaction with unknown custom emoji",
				zap.Uint64("emoji_id", uint64(re.EmojiID)))
			return nil
		}
		key = e.Key()
	} else {
		if re.EmojiName == "" {
			return nil
		}
		u := emoji.Unicode(re.EmojiName)
		// Reaction aggregates join the emoji table, so the glyph needs a
		// row even when it is not in the tracked message set.
		if err := r.store.UpsertEmoji(u); err != nil {
			return err
		}
		key = u.Key()
	}

	if err := r.store.AddReaction(re.ChannelID, re.MessageID, re.UserID, key); err != nil {
		return err
	}
	telemetry.Reactions.Inc()
	return nil
}

// count tallies occurrences of every tracked emoji pattern in content.
// Patterns are distinct literals (custom mention syntax vs. unicode glyphs),
// so per-pattern substring counts cannot overlap.
func (r *Recorder) count(guildID discord.GuildID, content string) map[string]int {
	counts := make(map[string]int)
	for _, e := range r.roster.ActiveEmoji(guildID) {
		if n := strings.Count(content, e.Pattern()); n > 0 {
			counts[e.Key()] += n
		}
	}
	for _, u := range r.unicode {
		if n := strings.Count(content, u.Pattern()); n > 0 {
			counts[u.Key()] += n
		}
	}
	return counts
}
