package store

import (
	"sort"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"

	"github.com/emojistats/emojistats/internal/emoji"
)

type usageKey struct {
	channelID discord.ChannelID
	userID    discord.UserID
	emojiKey  string
}

type reactionKey struct {
	channelID discord.ChannelID
	messageID discord.MessageID
	userID    discord.UserID
	emojiKey  string
}

type emojiRow struct {
	emoji  emoji.Emoji
	active bool
}

// Memory is an in-process Store with the same semantics as SQLite. It backs
// the test suites and small deployments that do not want a database file.
type Memory struct {
	mu        sync.RWMutex
	channels  map[discord.ChannelID]Channel
	users     map[discord.UserID]User
	emojis    map[string]emojiRow
	messages  map[discord.MessageID]MessageStat
	usage     map[usageKey]int64
	reactions map[reactionKey]struct{}
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		channels:  make(map[discord.ChannelID]Channel),
		users:     make(map[discord.UserID]User),
		emojis:    make(map[string]emojiRow),
		messages:  make(map[discord.MessageID]MessageStat),
		usage:     make(map[usageKey]int64),
		reactions: make(map[reactionKey]struct{}),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) UpsertChannel(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.ID] = ch
	return nil
}

func (m *Memory) UpsertUser(u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) UpsertEmoji(e emoji.Emoji) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emojis[e.Key()] = emojiRow{emoji: e, active: true}
	return nil
}

func (m *Memory) DeactivateEmoji(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.emojis[key]; ok {
		row.active = false
		m.emojis[key] = row
	}
	return nil
}

func (m *Memory) MessageSeen(id discord.MessageID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, seen := m.messages[id]
	return seen, nil
}

func (m *Memory) RecordMessage(stat MessageStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.messages[stat.ID]; exists {
		return nil
	}
	m.messages[stat.ID] = stat
	return nil
}

func (m *Memory) AddUsage(channelID discord.ChannelID, userID discord.UserID, emojiKey string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[usageKey{channelID, userID, emojiKey}] += int64(count)
	return nil
}

func (m *Memory) AddReaction(channelID discord.ChannelID, messageID discord.MessageID, userID discord.UserID, emojiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions[reactionKey{channelID, messageID, userID, emojiKey}] = struct{}{}
	return nil
}

func (m *Memory) TopEmoji(f Filter, limit int) ([]EmojiUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int64)
	for k, count := range m.usage {
		if m.usageMatches(k.channelID, k.userID, k.emojiKey, f) {
			totals[k.emojiKey] += count
		}
	}
	return m.rankEmoji(totals, limit), nil
}

func (m *Memory) TopReactionEmoji(f Filter, limit int) ([]EmojiUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int64)
	for k := range m.reactions {
		if m.usageMatches(k.channelID, k.userID, k.emojiKey, f) {
			totals[k.emojiKey]++
		}
	}
	return m.rankEmoji(totals, limit), nil
}

func (m *Memory) TotalUses(f Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for k, count := range m.usage {
		if m.usageMatches(k.channelID, k.userID, k.emojiKey, f) {
			total += count
		}
	}
	return total, nil
}

func (m *Memory) TotalReactions(f Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for k := range m.reactions {
		if m.usageMatches(k.channelID, k.userID, k.emojiKey, f) {
			total++
		}
	}
	return total, nil
}

func (m *Memory) TopUsers(f Filter, limit int) ([]UserUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byUser := make(map[discord.UserID]*UserUsage)
	for _, stat := range m.messages {
		if f.ChannelID.IsValid() && stat.ChannelID != f.ChannelID {
			continue
		}
		if f.GuildID.IsValid() && m.channels[stat.ChannelID].GuildID != f.GuildID {
			continue
		}
		if f.UserID.IsValid() && stat.UserID != f.UserID {
			continue
		}
		u := byUser[stat.UserID]
		if u == nil {
			u = &UserUsage{ID: stat.UserID, Name: m.users[stat.UserID].Name}
			byUser[stat.UserID] = u
		}
		u.Uses += int64(stat.EmojiCount)
		u.Messages++
	}

	out := make([]UserUsage, 0, len(byUser))
	for _, u := range byUser {
		if u.Uses > 0 {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Uses != out[j].Uses {
			return out[i].Uses > out[j].Uses
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UsageByEmoji(keys []string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	counts := make(map[string]int64, len(keys))
	for k, count := range m.usage {
		if wanted[k.emojiKey] {
			counts[k.emojiKey] += count
		}
	}
	return counts, nil
}

// usageMatches mirrors the SQLite joins: guild scope resolves through the
// channel table, custom/unicode scope through the emoji table. Callers hold
// the read lock.
func (m *Memory) usageMatches(channelID discord.ChannelID, userID discord.UserID, emojiKey string, f Filter) bool {
	if f.ChannelID.IsValid() && channelID != f.ChannelID {
		return false
	}
	if f.GuildID.IsValid() {
		ch, ok := m.channels[channelID]
		if !ok || ch.GuildID != f.GuildID {
			return false
		}
	}
	if f.UserID.IsValid() && userID != f.UserID {
		return false
	}
	if f.CustomOnly || f.UnicodeOnly {
		row, ok := m.emojis[emojiKey]
		if !ok {
			return false
		}
		_, isCustom := row.emoji.(emoji.Custom)
		if f.CustomOnly && !isCustom {
			return false
		}
		if f.UnicodeOnly && isCustom {
			return false
		}
	}
	return true
}

func (m *Memory) rankEmoji(totals map[string]int64, limit int) []EmojiUsage {
	out := make([]EmojiUsage, 0, len(totals))
	for key, count := range totals {
		row, ok := m.emojis[key]
		if !ok {
			continue
		}
		out = append(out, EmojiUsage{Emoji: row.emoji, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emoji.Key() < out[j].Emoji.Key()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
