// Package roster tracks what the bot currently believes exists: servers,
// their public text channels, private channels, and each server's active
// custom emoji. It is fed by gateway events and keeps the store's emoji table
// reconciled as rosters change.
package roster

import (
	"sort"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	"github.com/emojistats/emojistats/internal/emoji"
	"github.com/emojistats/emojistats/internal/store"
)

// Directory is the lookup surface used to resolve channels the gateway never
// told us about. *state.State satisfies it.
type Directory interface {
	Guilds() ([]discord.Guild, error)
	Channels(guildID discord.GuildID) ([]discord.Channel, error)
	Emojis(guildID discord.GuildID) ([]discord.Emoji, error)
}

// Server is the subset of guild data the bot keeps.
type Server struct {
	ID   discord.GuildID
	Name string
	Icon string
}

// Cache is the roster cache. All mutation happens on the event loop; the
// mutex lets read-side queries (commands) run against a consistent snapshot.
type Cache struct {
	log   *zap.Logger
	store store.Store
	dir   Directory

	mu       sync.RWMutex
	servers map[discord.GuildID]Server
	text    map[discord.ChannelID]store.Channel
	private map[discord.ChannelID]struct{}
	active  map[discord.GuildID]map[discord.EmojiID]emoji.Custom
	unknown map[discord.ChannelID]struct{}
}

func New(st store.Store, dir Directory, log *zap.Logger) *Cache {
	return &Cache{
		log:     log,
		store:   st,
		dir:     dir,
		servers: make(map[discord.GuildID]Server),
		text:    make(map[discord.ChannelID]store.Channel),
		private: make(map[discord.ChannelID]struct{}),
		active:  make(map[discord.GuildID]map[discord.EmojiID]emoji.Custom),
		unknown: make(map[discord.ChannelID]struct{}),
	}
}

// ServerSeen upserts a server from a startup snapshot or a "guild created"
// event, registers its text channels, and reconciles its emoji roster. A nil
// emoji list means the roster was not reported, not that it is empty; the
// cached set stays as it is.
func (c *Cache) ServerSeen(g discord.Guild, channels []discord.Channel) {
	c.mu.Lock()
	if _, known := c.servers[g.ID]; !known {
		c.log.Debug("adding server", zap.String("name", g.Name), zap.Uint64("id", uint64(g.ID)))
	}
	c.servers[g.ID] = Server{ID: g.ID, Name: g.Name, Icon: string(g.Icon)}
	c.mu.Unlock()

	for _, ch := range channels {
		c.ChannelUpserted(ch)
	}

	if g.Emojis != nil {
		c.ReconcileEmoji(g.ID, g.Emojis)
	}
}

// ServerUpdated refreshes name/icon and, when the payload carries an emoji
// list, reconciles it.
func (c *Cache) ServerUpdated(g discord.Guild) {
	c.mu.Lock()
	if s, ok := c.servers[g.ID]; ok {
		s.Name = g.Name
		s.Icon = string(g.Icon)
		c.servers[g.ID] = s
	} else {
		c.servers[g.ID] = Server{ID: g.ID, Name: g.Name, Icon: string(g.Icon)}
	}
	c.mu.Unlock()

	if g.Emojis != nil {
		c.ReconcileEmoji(g.ID, g.Emojis)
	}
}

// ServerRemoved drops the server and cascades to its channels. Usage rows and
// the persisted emoji table are left alone.
func (c *Cache) ServerRemoved(id discord.GuildID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, known := c.servers[id]; !known {
		return
	}
	c.log.Debug("removing server and its channels", zap.Uint64("id", uint64(id)))

	delete(c.servers, id)
	delete(c.active, id)
	for chID, ch := range c.text {
		if ch.GuildID == id {
			delete(c.text, chID)
		}
	}
}

// ChannelUpserted tracks public text channels and private (direct-message)
// channels; every other kind is ignored.
func (c *Cache) ChannelUpserted(ch discord.Channel) {
	switch ch.Type {
	case discord.GuildText:
		row := store.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name}
		if err := c.store.UpsertChannel(row); err != nil {
			c.log.Warn("failed to persist channel", zap.Error(err), zap.Uint64("id", uint64(ch.ID)))
		}
		c.mu.Lock()
		c.text[ch.ID] = row
		delete(c.unknown, ch.ID)
		c.mu.Unlock()
	case discord.DirectMessage:
		c.mu.Lock()
		c.private[ch.ID] = struct{}{}
		delete(c.unknown, ch.ID)
		c.mu.Unlock()
	}
}

func (c *Cache) ChannelRemoved(ch discord.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.text, ch.ID)
	delete(c.private, ch.ID)
}

// ReconcileEmoji brings the cached and persisted emoji set for a server in
// line with a freshly reported roster. Emoji missing from the report are
// marked inactive, never deleted; reported emoji are upserted as active.
// Calling it twice with the same report is a no-op the second time.
func (c *Cache) ReconcileEmoji(guildID discord.GuildID, reported []discord.Emoji) {
	next := make(map[discord.EmojiID]emoji.Custom, len(reported))
	for _, e := range reported {
		next[e.ID] = emoji.Custom{
			GuildID:  guildID,
			ID:       e.ID,
			Name:     e.Name,
			Animated: e.Animated,
			Active:   true,
		}
	}

	c.mu.Lock()
	prev := c.active[guildID]
	c.active[guildID] = next
	c.mu.Unlock()

	for id, e := range prev {
		if _, still := next[id]; still {
			continue
		}
		if err := c.store.DeactivateEmoji(e.Key()); err != nil {
			c.log.Warn("failed to deactivate emoji", zap.Error(err), zap.String("key", e.Key()))
		}
	}
	for _, e := range next {
		if err := c.store.UpsertEmoji(e); err != nil {
			c.log.Warn("failed to upsert emoji", zap.Error(err), zap.String("key", e.Key()))
		}
	}
}

// ActiveEmoji returns the server's active custom emoji sorted by key, so
// iteration order is stable for counting and ranking.
func (c *Cache) ActiveEmoji(guildID discord.GuildID) []emoji.Custom {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]emoji.Custom, 0, len(c.active[guildID]))
	for _, e := range c.active[guildID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ActiveEmojiByID looks an active custom emoji up across all servers.
func (c *Cache) ActiveEmojiByID(id discord.EmojiID) (emoji.Custom, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, emojis := range c.active {
		if e, ok := emojis[id]; ok {
			return e, true
		}
	}
	return emoji.Custom{}, false
}

func (c *Cache) Server(id discord.GuildID) (Server, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.servers[id]
	return s, ok
}

// GuildForChannel reports the server owning a known public text channel.
func (c *Cache) GuildForChannel(id discord.ChannelID) (discord.GuildID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.text[id]
	if !ok {
		return 0, false
	}
	return ch.GuildID, true
}

func (c *Cache) IsPrivate(id discord.ChannelID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.private[id]
	return ok
}

func (c *Cache) ChannelName(id discord.ChannelID) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.text[id]
	if !ok {
		return "", false
	}
	return ch.Name, true
}

// Counts reports the number of known servers and public text channels.
func (c *Cache) Counts() (servers, channels int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers), len(c.text)
}

// EnsureChannel makes a single attempt to resolve a channel that neither
// channel map knows about: it refreshes the server list, adding servers the
// cache has not seen, and only re-fetches already-known servers if the
// channel is still unresolved. Channels that stay unknown go into a negative
// cache so later messages from them cost nothing.
func (c *Cache) EnsureChannel(id discord.ChannelID) bool {
	c.mu.RLock()
	_, isText := c.text[id]
	_, isPrivate := c.private[id]
	_, isUnknown := c.unknown[id]
	c.mu.RUnlock()

	if isText || isPrivate {
		return true
	}
	if isUnknown {
		return false
	}

	c.refreshServers(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.text[id]; ok {
		return true
	}
	if _, ok := c.private[id]; ok {
		return true
	}
	c.log.Warn("channel remains unknown after refresh", zap.Uint64("channel_id", uint64(id)))
	c.unknown[id] = struct{}{}
	return false
}

func (c *Cache) refreshServers(want discord.ChannelID) {
	guilds, err := c.dir.Guilds()
	if err != nil {
		c.log.Warn("failed to list servers during refresh", zap.Error(err))
		return
	}

	fresh := make(map[discord.GuildID]struct{})
	for _, g := range guilds {
		c.mu.RLock()
		_, known := c.servers[g.ID]
		c.mu.RUnlock()
		if !known {
			fresh[g.ID] = struct{}{}
			c.fetchServer(g)
		}
	}

	c.mu.RLock()
	_, resolved := c.text[want]
	c.mu.RUnlock()
	if resolved {
		return
	}

	// Still unresolved: refresh the servers we already knew about.
	for _, g := range guilds {
		if _, justAdded := fresh[g.ID]; !justAdded {
			c.fetchServer(g)
		}
	}
}

func (c *Cache) fetchServer(g discord.Guild) {
	channels, err := c.dir.Channels(g.ID)
	if err != nil {
		c.log.Warn("failed to list channels", zap.Error(err), zap.Uint64("guild_id", uint64(g.ID)))
		channels = nil
	}

	// A failed emoji lookup leaves g.Emojis nil so ServerSeen keeps the
	// cached emoji set instead of reconciling against an empty roster.
	if g.Emojis == nil {
		emojis, err := c.dir.Emojis(g.ID)
		if err != nil {
			c.log.Warn("failed to list emojis", zap.Error(err), zap.Uint64("guild_id", uint64(g.ID)))
			emojis = nil
		}
		g.Emojis = emojis
	}

	c.ServerSeen(g, channels)
}
