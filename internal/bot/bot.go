// Package bot wires the Discord gateway to the roster, recorder, and ranking
// engine, and answers commands addressed to the bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/zap"

	"github.com/emojistats/emojistats/internal/arg"
	"github.com/emojistats/emojistats/internal/emoji"
	"github.com/emojistats/emojistats/internal/ranking"
	"github.com/emojistats/emojistats/internal/recorder"
	"github.com/emojistats/emojistats/internal/roster"
	"github.com/emojistats/emojistats/internal/store"
	"github.com/emojistats/emojistats/internal/telemetry"
)

// Version is reported by the botinfo command.
const Version = "1.0.0"

const (
	respStatsErr         = "Sorry! An error occurred while retrieving the statistics. :frowning:"
	respUsePublicChannel = "Please use this command in a public channel. :shrug:"
	respAuthRequired     = "Please authenticate first. :lock:"
)

const defaultHelpText = "Commands: `help`, `about`, `global` (`g`), `server` (`s`), " +
	"`channel` (`c`), `me` (`m`), `custom` (`u`), `least-used` (`l`), `feedback <text>` " +
	"\u2014 or mention me with an emoji, a #channel, or a @user to get its statistics."

// Disposition tells the supervisor what to do after Run returns.
type Disposition int

const (
	DispositionQuit Disposition = iota
	DispositionRestart
)

// Options carries the command-surface configuration.
type Options struct {
	AdminPassword string
	HelpText      string
	AboutText     string
	FeedbackFile  string
}

type Bot struct {
	log      *zap.Logger
	state    *state.State
	store    store.Store
	roster   *roster.Cache
	recorder *recorder.Recorder
	engine   *ranking.Engine
	opts     Options

	unicode map[string]struct{}

	mu          sync.Mutex
	self        discord.User
	admins      map[discord.UserID]discord.User
	onlineSince time.Time
	disposition Disposition
	stop        context.CancelFunc
}

func New(s *state.State, st store.Store, ro *roster.Cache, rec *recorder.Recorder, eng *ranking.Engine, tracked []emoji.Unicode, opts Options, log *zap.Logger) *Bot {
	if opts.HelpText == "" {
		opts.HelpText = defaultHelpText
	}

	unicode := make(map[string]struct{}, len(tracked))
	for _, u := range tracked {
		unicode[string(u)] = struct{}{}
	}

	b := &Bot{
		log:      log,
		state:    s,
		store:    st,
		roster:   ro,
		recorder: rec,
		engine:   eng,
		opts:     opts,
		unicode:  unicode,
		admins:   make(map[discord.UserID]discord.User),
	}
	b.bindHandlers()
	return b
}

func (b *Bot) bindHandlers() {
	s := b.state

	s.AddHandler(func(e *gateway.ReadyEvent) {
		b.mu.Lock()
		b.self = e.User
		b.onlineSince = time.Now()
		b.mu.Unlock()
		for _, ch := range e.PrivateChannels {
			b.roster.ChannelUpserted(ch)
		}
		b.log.Info("connected", zap.String("user", e.User.Tag()))
	})

	s.AddHandler(func(e *gateway.GuildCreateEvent) {
		telemetry.Events.Inc()
		b.roster.ServerSeen(e.Guild, e.Channels)
	})
	s.AddHandler(func(e *gateway.GuildUpdateEvent) {
		telemetry.Events.Inc()
		b.roster.ServerUpdated(e.Guild)
	})
	s.AddHandler(func(e *gateway.GuildDeleteEvent) {
		telemetry.Events.Inc()
		b.roster.ServerRemoved(e.ID)
	})
	s.AddHandler(func(e *gateway.ChannelCreateEvent) {
		telemetry.Events.Inc()
		b.roster.ChannelUpserted(e.Channel)
	})
	s.AddHandler(func(e *gateway.ChannelUpdateEvent) {
		telemetry.Events.Inc()
		b.roster.ChannelUpserted(e.Channel)
	})
	s.AddHandler(func(e *gateway.ChannelDeleteEvent) {
		telemetry.Events.Inc()
		b.roster.ChannelRemoved(e.Channel)
	})
	s.AddHandler(func(e *gateway.GuildEmojisUpdateEvent) {
		telemetry.Events.Inc()
		b.roster.ReconcileEmoji(e.GuildID, e.Emojis)
	})
	s.AddHandler(b.handleMessage)
	s.AddHandler(b.handleReaction)
}

// Run connects to the gateway and blocks until ctx is cancelled or an admin
// issues quit/restart. The returned Disposition says which.
func (b *Bot) Run(ctx context.Context) (Disposition, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.mu.Lock()
	b.stop = cancel
	b.mu.Unlock()

	b.log.Info("connecting to gateway")
	if err := b.state.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return DispositionQuit, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposition, nil
}

func (b *Bot) handleMessage(m *gateway.MessageCreateEvent) {
	telemetry.Events.Inc()

	if m.Author.Bot || m.Type != discord.DefaultMessage {
		return
	}

	b.mu.Lock()
	selfID := b.self.ID
	b.mu.Unlock()

	// A message opening with a mention of the bot is a command.
	if ref, rest, ok := leadingRef(m.Content); ok && ref.Kind == arg.User && ref.UserID() == selfID {
		b.dispatch(m, rest)
		return
	}

	// Everything said to the bot in private is a command.
	if !m.GuildID.IsValid() {
		b.dispatch(m, m.Content)
		return
	}

	err := b.recorder.Record(recorder.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Author:    m.Author.Username,
		Content:   m.Content,
	})
	if err != nil {
		telemetry.StoreErrors.Inc()
		b.log.Warn("failed to record message",
			zap.Error(err), zap.Uint64("message_id", uint64(m.ID)))
	}
}

func (b *Bot) handleReaction(e *gateway.MessageReactionAddEvent) {
	telemetry.Events.Inc()

	b.mu.Lock()
	selfID := b.self.ID
	b.mu.Unlock()
	if e.UserID == selfID || !e.GuildID.IsValid() {
		return
	}

	if e.Member != nil {
		if err := b.store.UpsertUser(store.User{
			ID:            e.Member.User.ID,
			Name:          e.Member.User.Username,
			Discriminator: e.Member.User.Discriminator,
		}); err != nil {
			telemetry.StoreErrors.Inc()
		}
	}

	err := b.recorder.RecordReaction(recorder.Reaction{
		MessageID: e.MessageID,
		ChannelID: e.ChannelID,
		UserID:    e.UserID,
		EmojiID:   e.Emoji.ID,
		EmojiName: e.Emoji.Name,
	})
	if err != nil {
		telemetry.StoreErrors.Inc()
		b.log.Warn("failed to record reaction",
			zap.Error(err), zap.Uint64("message_id", uint64(e.MessageID)))
	}
}

func (b *Bot) dispatch(m *gateway.MessageCreateEvent, input string) {
	telemetry.Commands.Inc()

	word, args := firstWord(stripNoise(input))
	if word == "" {
		b.reply(m, b.opts.HelpText)
		return
	}

	switch strings.ToLower(word) {
	case "auth":
		b.auth(m, args)
	case "botinfo":
		b.botInfo(m)
	case "quit":
		b.quit(m)
	case "restart":
		b.restart(m)
	case "feedback":
		b.feedback(m, args)
	case "about", "info":
		b.reply(m, b.opts.AboutText)
	case "help", "commands":
		b.reply(m, b.opts.HelpText)
	case "g", "global":
		b.statsGlobal(m)
	case "s", "server":
		b.statsServer(m)
	case "c", "channel":
		b.statsChannel(m, b.channelArg(args, m.ChannelID))
	case "m", "me":
		b.statsUser(m, m.Author.ID)
	case "u", "custom":
		b.statsServerCustom(m)
	case "l", "least-used":
		b.statsLeastUsed(m)
	default:
		b.dispatchRef(m, word)
	}
}

// dispatchRef handles commands that are a reference rather than a word: a
// user or channel mention, a custom emoji, or a tracked unicode glyph.
func (b *Bot) dispatchRef(m *gateway.MessageCreateEvent, word string) {
	ref := arg.Classify(word)
	switch ref.Kind {
	case arg.User:
		b.statsUser(m, ref.UserID())
	case arg.Channel:
		b.statsChannel(m, ref.ChannelID())
	case arg.CustomEmoji:
		if e, ok := b.roster.ActiveEmojiByID(ref.EmojiID()); ok {
			b.statsEmoji(m, e.Key(), e.Pattern())
			return
		}
		b.reply(m, fmt.Sprintf("I've never seen anyone use %s.", word))
	default:
		if _, tracked := b.unicode[word]; tracked {
			u := emoji.Unicode(word)
			b.statsEmoji(m, u.Key(), u.Pattern())
			return
		}
		b.reply(m, b.opts.HelpText)
	}
}

// channelArg picks the channel a stats query targets: an explicit <#ref> in
// the arguments, or the channel the command came from.
func (b *Bot) channelArg(args string, fallback discord.ChannelID) discord.ChannelID {
	if ref, _, ok := leadingRef(args); ok && ref.Kind == arg.Channel {
		return ref.ChannelID()
	}
	return fallback
}

func (b *Bot) auth(m *gateway.MessageCreateEvent, password string) {
	b.mu.Lock()
	_, already := b.admins[m.Author.ID]
	b.mu.Unlock()

	switch {
	case already:
		b.reply(m, "You are already authenticated as a bot administrator. :unlock:")
	case m.GuildID.IsValid():
		b.reply(m, "Please use this command in a private message. :lock:")
	case password == "":
		b.reply(m, "Please enter the bot administration password. :lock:")
	case password == b.opts.AdminPassword && b.opts.AdminPassword != "":
		b.mu.Lock()
		b.admins[m.Author.ID] = m.Author
		b.mu.Unlock()
		b.log.Info("admin authenticated", zap.String("user", m.Author.Username))
		b.reply(m, "Authenticated successfully. :white_check_mark:")
	default:
		b.reply(m, "Unable to authenticate. :x:")
	}
}

func (b *Bot) isAdmin(id discord.UserID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.admins[id]
	return ok
}

func (b *Bot) botInfo(m *gateway.MessageCreateEvent) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m, respAuthRequired)
		return
	}

	b.mu.Lock()
	uptime := time.Since(b.onlineSince).Round(time.Second)
	b.mu.Unlock()
	servers, channels := b.roster.Counts()

	b.reply(m, fmt.Sprintf(
		"**emojistats version %s**\nOnline for %s on %d server%s comprising %d text channel%s. :clock2:",
		Version, uptime,
		servers, plural(int64(servers)),
		channels, plural(int64(channels))))
}

func (b *Bot) quit(m *gateway.MessageCreateEvent) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m, respAuthRequired)
		return
	}
	b.reply(m, "Quitting. :octagonal_sign:")
	b.log.Info("quit command issued", zap.String("user", m.Author.Username))
	b.finish(DispositionQuit)
}

func (b *Bot) restart(m *gateway.MessageCreateEvent) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m, respAuthRequired)
		return
	}
	b.reply(m, "Restarting. :repeat:")
	b.log.Info("restart command issued", zap.String("user", m.Author.Username))
	b.finish(DispositionRestart)
}

func (b *Bot) finish(d Disposition) {
	b.mu.Lock()
	b.disposition = d
	stop := b.stop
	b.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (b *Bot) feedback(m *gateway.MessageCreateEvent, text string) {
	b.reply(m, "Thanks. Your feedback has been logged for review. :smiley:")

	entry := fmt.Sprintf("Feedback from %s#%s: %s\n", m.Author.Username, m.Author.Discriminator, text)
	b.log.Info("feedback received",
		zap.String("user", m.Author.Tag()),
		zap.String("feedback", text))

	if b.opts.FeedbackFile != "" {
		f, err := os.OpenFile(b.opts.FeedbackFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			b.log.Warn("failed to open feedback file", zap.Error(err))
		} else {
			if _, err := f.WriteString(entry); err != nil {
				b.log.Warn("failed to write feedback", zap.Error(err))
			}
			f.Close()
		}
	}

	forward := fmt.Sprintf("Feedback from %s:\n```\n%s\n```", m.Author.Tag(), text)
	b.mu.Lock()
	admins := make([]discord.UserID, 0, len(b.admins))
	for id := range b.admins {
		admins = append(admins, id)
	}
	b.mu.Unlock()

	for _, id := range admins {
		ch, err := b.state.CreatePrivateChannel(id)
		if err != nil {
			b.log.Warn("failed to open admin DM", zap.Error(err), zap.Uint64("user_id", uint64(id)))
			continue
		}
		b.send(ch.ID, forward)
	}
}

var globeEmoji = []string{":earth_africa:", ":earth_americas:", ":earth_asia:"}

func (b *Bot) statsGlobal(m *gateway.MessageCreateEvent) {
	top, err := b.engine.TopEmoji(ranking.Global{}, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	topReactions, err := b.engine.TopReactionEmoji(ranking.Global{}, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}

	if len(top) == 0 && len(topReactions) == 0 {
		b.reply(m, "I've never seen anyone use any emoji. :shrug:")
		return
	}

	title := fmt.Sprintf("Global Statistics %s", globeEmoji[rand.Intn(len(globeEmoji))])
	var fields []discord.EmbedField
	if len(top) > 0 {
		total, err := b.engine.TotalUses(ranking.Global{})
		if err != nil {
			b.statsErr(m, err)
			return
		}
		fields = append(fields, discord.EmbedField{
			Name:   countedHeader("Top Emoji", total),
			Value:  usageLines(top),
			Inline: true,
		})
	}
	if len(topReactions) > 0 {
		total, err := b.engine.TotalReactions(ranking.Global{})
		if err != nil {
			b.statsErr(m, err)
			return
		}
		fields = append(fields, discord.EmbedField{
			Name:   countedHeader("Top Reaction Emoji", total),
			Value:  usageLines(topReactions),
			Inline: true,
		})
	}

	b.replyEmbed(m, discord.Embed{Title: title, Fields: fields})
}

// serverScope resolves the server behind a public-channel command, replying
// with the appropriate notice when there is none.
func (b *Bot) serverScope(m *gateway.MessageCreateEvent) (discord.GuildID, bool) {
	if !m.GuildID.IsValid() {
		b.reply(m, respUsePublicChannel)
		return 0, false
	}
	guildID, ok := b.roster.GuildForChannel(m.ChannelID)
	if !ok {
		b.log.Warn("command from unknown public channel", zap.Uint64("channel_id", uint64(m.ChannelID)))
		b.reply(m, respStatsErr)
		return 0, false
	}
	return guildID, true
}

func (b *Bot) statsServer(m *gateway.MessageCreateEvent) {
	guildID, ok := b.serverScope(m)
	if !ok {
		return
	}
	b.serverReply(m, ranking.Server{ID: guildID},
		"Server Statistics :chart_with_upwards_trend:",
		"I've never seen anyone use any emoji on this server. :shrug:")
}

func (b *Bot) statsServerCustom(m *gateway.MessageCreateEvent) {
	guildID, ok := b.serverScope(m)
	if !ok {
		return
	}
	b.serverReply(m, ranking.Server{ID: guildID, CustomOnly: true},
		"Server Statistics (Custom Emoji) :chart_with_upwards_trend:",
		"I've never seen anyone use any custom emoji on this server. :shrug:")
}

func (b *Bot) serverReply(m *gateway.MessageCreateEvent, scope ranking.Server, title, emptyReply string) {
	top, err := b.engine.TopEmoji(scope, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	topReactions, err := b.engine.TopReactionEmoji(scope, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}

	if len(top) == 0 && len(topReactions) == 0 {
		b.reply(m, emptyReply)
		return
	}

	var fields []discord.EmbedField
	if len(top) > 0 {
		total, err := b.engine.TotalUses(scope)
		if err != nil {
			b.statsErr(m, err)
			return
		}
		fields = append(fields, discord.EmbedField{
			Name:   countedHeader("Top Emoji", total),
			Value:  usageLines(top),
			Inline: true,
		})

		users, err := b.engine.TopUsers(scope, 0)
		if err != nil {
			b.statsErr(m, err)
			return
		}
		if len(users) > 0 {
			fields = append(fields, discord.EmbedField{
				Name:   "Top Emoji Users",
				Value:  userLines(users),
				Inline: true,
			})
		}
	}
	if len(topReactions) > 0 {
		total, err := b.engine.TotalReactions(scope)
		if err != nil {
			b.statsErr(m, err)
			return
		}
		fields = append(fields, discord.EmbedField{
			Name:   countedHeader("Top Reaction Emoji", total),
			Value:  usageLines(topReactions),
			Inline: true,
		})
	}

	b.replyEmbed(m, discord.Embed{Title: title, Fields: fields})
}

func (b *Bot) statsLeastUsed(m *gateway.MessageCreateEvent) {
	guildID, ok := b.serverScope(m)
	if !ok {
		return
	}

	least, err := b.engine.LeastUsedCustomEmoji(guildID, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	if len(least) == 0 {
		b.reply(m, "It looks like there aren't any custom emoji on this server. :shrug:")
		return
	}

	b.replyEmbed(m, discord.Embed{
		Title: "Server Statistics (Least Used Custom Emoji) :chart_with_downwards_trend:",
		Fields: []discord.EmbedField{{
			Name:   "Emoji",
			Value:  usageLines(least),
			Inline: true,
		}},
	})
}

func (b *Bot) statsChannel(m *gateway.MessageCreateEvent, channelID discord.ChannelID) {
	if !m.GuildID.IsValid() {
		b.reply(m, respUsePublicChannel)
		return
	}

	title := "Channel statistics :chart_with_upwards_trend:"
	if name, ok := b.roster.ChannelName(channelID); ok {
		title = fmt.Sprintf("Statistics for #%s :chart_with_upwards_trend:", name)
	}

	scope := ranking.Channel{ID: channelID}
	top, err := b.engine.TopEmoji(scope, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	if len(top) == 0 {
		b.reply(m, "I've never seen anyone use any emoji in that channel. :shrug:")
		return
	}

	total, err := b.engine.TotalUses(scope)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	users, err := b.engine.TopUsers(scope, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}

	fields := []discord.EmbedField{{
		Name:   countedHeader("Top Emoji", total),
		Value:  usageLines(top),
		Inline: true,
	}}
	if len(users) > 0 {
		fields = append(fields, discord.EmbedField{
			Name:   "Top Emoji Users",
			Value:  userLines(users),
			Inline: true,
		})
	}

	b.replyEmbed(m, discord.Embed{Title: title, Fields: fields})
}

func (b *Bot) statsUser(m *gateway.MessageCreateEvent, userID discord.UserID) {
	b.mu.Lock()
	selfID := b.self.ID
	b.mu.Unlock()
	if userID == selfID {
		b.reply(m, "You're so silly! :smile:")
		return
	}

	// Inside a server, the query covers both unicode and that server's
	// custom emoji; in private it covers unicode usage everywhere.
	guildID, _ := b.roster.GuildForChannel(m.ChannelID)
	scope := ranking.User{ID: userID, Guild: guildID, UnicodeOnly: !guildID.IsValid()}

	top, err := b.engine.TopEmoji(scope, 0)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	if len(top) == 0 {
		b.reply(m, fmt.Sprintf("I've never seen <@%d> use any emoji. :shrug:", uint64(userID)))
		return
	}

	total, err := b.engine.TotalUses(scope)
	if err != nil {
		b.statsErr(m, err)
		return
	}

	title := "Your favourite emoji :two_hearts:"
	subject, have := "you", "have"
	if userID != m.Author.ID {
		name := b.userName(userID)
		title = fmt.Sprintf("%s's favourite emoji :two_hearts:", name)
		subject, have = name, "has"
	}
	suffix := ""
	if guildID.IsValid() {
		suffix = " on this server"
	}

	b.replyEmbed(m, discord.Embed{
		Title: title,
		Fields: []discord.EmbedField{{
			Name:  fmt.Sprintf("All in all, %s %s used %d emoji%s:", subject, have, total, suffix),
			Value: usageLines(top),
		}},
	})
}

func (b *Bot) userName(id discord.UserID) string {
	u, err := b.state.User(id)
	if err != nil {
		b.log.Debug("failed to look up user", zap.Error(err), zap.Uint64("user_id", uint64(id)))
		return "(unknown user)"
	}
	return u.Username
}

func (b *Bot) statsEmoji(m *gateway.MessageCreateEvent, key, display string) {
	count, err := b.engine.Uses(key)
	if err != nil {
		b.statsErr(m, err)
		return
	}
	if count == 0 {
		b.reply(m, fmt.Sprintf("I've never seen anyone use %s.", display))
		return
	}
	b.reply(m, fmt.Sprintf("%s has been used %d time%s.", display, count, plural(count)))
}

func (b *Bot) statsErr(m *gateway.MessageCreateEvent, err error) {
	telemetry.StoreErrors.Inc()
	b.log.Warn("failed to retrieve statistics", zap.Error(err))
	b.reply(m, respStatsErr)
}

func (b *Bot) reply(m *gateway.MessageCreateEvent, text string) {
	if text == "" {
		return
	}
	b.send(m.ChannelID, fmt.Sprintf("**%s**: %s", m.Author.Username, text))
}

func (b *Bot) replyEmbed(m *gateway.MessageCreateEvent, embed discord.Embed) {
	b.send(m.ChannelID, fmt.Sprintf("**%s**", m.Author.Username), embed)
}

func (b *Bot) send(chID discord.ChannelID, text string, embeds ...discord.Embed) {
	if _, err := b.state.SendMessage(chID, text, embeds...); err != nil {
		b.log.Warn("failed to send message", zap.Error(err), zap.Uint64("channel_id", uint64(chID)))
	}
}
