// Package ranking answers the statistics questions behind every command:
// most-used emoji, totals, top users, reaction leaders, and the least-used
// custom emoji of a server.
package ranking

import (
	"sort"

	"github.com/diamondburned/arikawa/v3/discord"

	"github.com/emojistats/emojistats/internal/roster"
	"github.com/emojistats/emojistats/internal/store"
)

// DefaultLimit is how many rows a ranking returns when the caller does not
// say otherwise.
const DefaultLimit = 5

// Scope selects which usage rows a query aggregates over.
type Scope interface {
	filter() store.Filter
}

// Global covers every server. UnicodeOnly drops custom emoji, which belong
// to single servers and mean nothing globally.
type Global struct {
	UnicodeOnly bool
}

// Server covers one server's public channels. CustomOnly narrows it to the
// server's own custom emoji.
type Server struct {
	ID         discord.GuildID
	CustomOnly bool
}

// Channel covers one public text channel.
type Channel struct {
	ID discord.ChannelID
}

// User covers one user's usage, optionally narrowed to one server or to
// unicode emoji only.
type User struct {
	ID          discord.UserID
	Guild       discord.GuildID
	UnicodeOnly bool
}

func (g Global) filter() store.Filter { return store.Filter{UnicodeOnly: g.UnicodeOnly} }
func (s Server) filter() store.Filter {
	return store.Filter{GuildID: s.ID, CustomOnly: s.CustomOnly}
}
func (c Channel) filter() store.Filter { return store.Filter{ChannelID: c.ID} }
func (u User) filter() store.Filter {
	return store.Filter{UserID: u.ID, GuildID: u.Guild, UnicodeOnly: u.UnicodeOnly}
}

type Engine struct {
	store  store.Store
	roster *roster.Cache
}

func New(st store.Store, ro *roster.Cache) *Engine {
	return &Engine{store: st, roster: ro}
}

// TopEmoji ranks emoji by use count, descending, ties broken by emoji key so
// the same data always produces the same list.
func (e *Engine) TopEmoji(s Scope, limit int) ([]store.EmojiUsage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return e.store.TopEmoji(s.filter(), limit)
}

func (e *Engine) TotalUses(s Scope) (int64, error) {
	return e.store.TotalUses(s.filter())
}

func (e *Engine) TopUsers(s Scope, limit int) ([]store.UserUsage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return e.store.TopUsers(s.filter(), limit)
}

func (e *Engine) TopReactionEmoji(s Scope, limit int) ([]store.EmojiUsage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return e.store.TopReactionEmoji(s.filter(), limit)
}

func (e *Engine) TotalReactions(s Scope) (int64, error) {
	return e.store.TotalReactions(s.filter())
}

// Uses reports the total use count of a single emoji key across all scopes.
func (e *Engine) Uses(key string) (int64, error) {
	usage, err := e.store.UsageByEmoji([]string{key})
	if err != nil {
		return 0, err
	}
	return usage[key], nil
}

// LeastUsedCustomEmoji ranks a server's currently active custom emoji from
// fewest uses up. Emoji with no usage rows at all rank first with a count of
// zero, which is the whole point of asking.
func (e *Engine) LeastUsedCustomEmoji(guildID discord.GuildID, limit int) ([]store.EmojiUsage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	active := e.roster.ActiveEmoji(guildID)
	if len(active) == 0 {
		return nil, nil
	}

	keys := make([]string, len(active))
	for i, em := range active {
		keys[i] = em.Key()
	}
	counts, err := e.store.UsageByEmoji(keys)
	if err != nil {
		return nil, err
	}

	out := make([]store.EmojiUsage, len(active))
	for i, em := range active {
		out[i] = store.EmojiUsage{Emoji: em, Count: counts[em.Key()]}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count < out[j].Count
		}
		return out[i].Emoji.Key() < out[j].Emoji.Key()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
