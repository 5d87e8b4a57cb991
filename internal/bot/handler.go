package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/knubgod/poro-hunt/internal/game"
	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/ratelimit"
	"github.com/knubgod/poro-hunt/internal/store"
)

// Module is the Discord-facing glue: command registration, interaction
// routing, spawn message rendering and the scheduler tick loop.
type Module struct {
	s          *discordgo.Session
	appId      string
	scopeGuild string
	log        *logrus.Logger

	reg    *poro.Registry
	st     *store.SQLiteStore
	mgr    *game.Manager
	sched  *game.Scheduler
	hunger *game.Hunger
	items  *game.Items
	clk    game.Clock

	menuLim *ratelimit.Limiter
	lbLim   *ratelimit.Limiter

	tick   time.Duration
	guilds sync.Map // guildId int64 -> struct{}
}

func Setup(
	session *discordgo.Session,
	appId, scopeGuild string,
	reg *poro.Registry,
	st *store.SQLiteStore,
	menuLim *ratelimit.Limiter,
	lbLim *ratelimit.Limiter,
	tick time.Duration,
	log *logrus.Logger,
) (*Module, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if tick <= 0 {
		tick = 30 * time.Second
	}

	clk := game.RealClock{}
	m := &Module{
		s:          session,
		appId:      appId,
		scopeGuild: scopeGuild,
		log:        log,
		reg:        reg,
		st:         st,
		sched:      game.NewScheduler(st, clk, nil),
		hunger:     game.NewHunger(st, clk),
		clk:        clk,
		menuLim:    menuLim,
		lbLim:      lbLim,
		tick:       tick,
	}
	m.items = game.NewItems(st, m.hunger, clk, nil)
	m.mgr = game.NewManager(st, reg, poro.NewPicker(reg, nil), game.NewRewards(st, nil), m, clk, nil, log)

	created, err := session.ApplicationCommandBulkOverwrite(appId, scopeGuild, commandDefs())
	if err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}
	for _, c := range created {
		log.WithField("command", c.Name).Info("command active")
	}

	session.AddHandler(m.onInteraction)
	session.AddHandler(m.onGuildCreate)

	return m, nil
}

// Run drives the spawn scheduler and the weekly showcase until ctx ends.
// Triggers are persisted, so a restart picks up mid-day pacing unchanged.
func (m *Module) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.guilds.Range(func(k, _ any) bool {
				guildId := k.(int64)
				m.tickGuild(ctx, guildId)
				m.maybeShowcase(ctx, guildId)
				return true
			})
		}
	}
}

func (m *Module) tickGuild(ctx context.Context, guildId int64) {
	due, err := m.sched.ShouldSpawnNow(ctx, guildId)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("schedule check failed")
		return
	}
	if !due {
		return
	}

	_, err = m.mgr.AttemptSpawn(ctx, guildId)
	switch {
	case err == nil:
		if err := m.sched.MarkSpawnHappened(ctx, guildId); err != nil {
			m.log.WithError(err).WithField("guild_id", guildId).Error("count spawn failed")
		}
	case errors.Is(err, game.ErrAlreadyActive):
		_ = m.sched.Defer(ctx, guildId, game.AlreadyActiveRetry)
	case errors.Is(err, game.ErrNoChannelConfigured):
		_ = m.sched.Defer(ctx, guildId, game.NoChannelRetry)
	default:
		var be game.BlackoutError
		if errors.As(err, &be) {
			_ = m.sched.DeferUntil(ctx, guildId, be.NextAllowed)
			return
		}
		m.log.WithError(err).WithField("guild_id", guildId).Error("spawn attempt failed")
		_ = m.sched.Defer(ctx, guildId, game.AlreadyActiveRetry)
	}
}

// onGuildCreate bootstraps the schedule row and welcomes new guilds.
func (m *Module) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	guildId := toInt64(g.ID)
	_, known := m.guilds.LoadOrStore(guildId, struct{}{})
	if known {
		return
	}

	ctx := context.Background()
	sched, err := m.st.GetOrCreateSchedule(ctx, guildId)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("schedule bootstrap failed")
		return
	}

	// First sight of this guild: say hello where we can.
	if sched.GameChannelId == 0 && sched.DailyDate == "" && g.SystemChannelID != "" {
		_, err := s.ChannelMessageSend(g.SystemChannelID,
			"Poros have been sighted nearby! An admin can run `/porohunt channel` to pick where they appear.")
		if err != nil {
			logREST(m.log, "welcome message failed", err)
		}
	}
}

func (m *Module) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "poro":
			m.handleMenu(s, i)
		case "leaderboard":
			m.handleLeaderboard(s, i)
		case "showcase":
			m.handleShowcase(s, i)
		case "porohunt":
			m.handleAdmin(s, i)
		}
	case discordgo.InteractionMessageComponent:
		m.onComponent(s, i)
	case discordgo.InteractionModalSubmit:
		m.onModal(s, i)
	}
}

func (m *Module) onComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := i.MessageComponentData().CustomID
	switch {
	case id == "poro_catch":
		m.handleCatch(s, i)
	case id == "poro_toss_berry":
		m.handleTossBerry(s, i)
	case id == "admin_reset_confirm":
		m.handleResetConfirm(s, i)
	case strings.HasPrefix(id, "nickname_"):
		m.openNicknameModal(s, i, strings.TrimPrefix(id, "nickname_"))
	case id == "feed_pick":
		m.handleFeedPick(s, i)
	case strings.HasPrefix(id, "menu_") || strings.HasPrefix(id, "shop_"):
		m.handleMenuComponent(s, i, id)
	}
}

func (m *Module) onModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if strings.HasPrefix(data.CustomID, "nickname_modal_") {
		m.handleNicknameSubmit(s, i, strings.TrimPrefix(data.CustomID, "nickname_modal_"))
	}
}

// PostSpawn publishes the public spawn message with its claim buttons and
// returns the message id as the instance identity.
func (m *Module) PostSpawn(_ context.Context, _ int64, channelId int64, p poro.Poro, stats poro.Stats) (int64, error) {
	msg, err := m.s.ChannelMessageSendComplex(strconv.FormatInt(channelId, 10), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{spawnEmbed(m.reg, p, stats, "A wild poro appeared! Quick, catch it before it wanders off.")},
		Components: spawnButtons(false),
	})
	if err != nil {
		return 0, err
	}
	return toInt64(msg.ID), nil
}

// SpawnEnded rewrites the public message for a timer-driven end so stale
// buttons stop inviting clicks.
func (m *Module) SpawnEnded(_ context.Context, sp store.Spawn, reason game.EndReason) {
	p, ok := m.reg.GetById(sp.PoroId)
	if !ok {
		return
	}

	note := "The poro wandered off..."
	if reason == game.EndedFled {
		note = "The poro got spooked and fled!"
	}

	channelId := strconv.FormatInt(sp.ChannelId, 10)
	messageId := strconv.FormatInt(sp.MessageId, 10)
	embed := spawnEmbed(m.reg, p, sp.Stats, note)
	disabled := spawnButtons(true)
	if _, err := m.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelId,
		ID:         messageId,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &disabled,
	}); err != nil {
		logREST(m.log, "spawn end edit failed", err)
	}
}

func (m *Module) handleCatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		return
	}
	messageId := toInt64(i.Message.ID)
	ctx := context.Background()

	res, err := m.mgr.AttemptCatch(ctx, guildId, messageId, userId)
	if err != nil {
		m.respondCatchError(s, i, err)
		return
	}

	if !res.Success {
		respondEphemeral(s, i, fmt.Sprintf(
			"The snowball sailed wide! **%s** shrugs it off.\n+%d XP",
			res.Poro.Name, res.Outcome.XPGained))
		return
	}

	// Winner: rewrite the public message and announce.
	embed := spawnEmbed(m.reg, res.Poro, res.Stats, fmt.Sprintf("Caught by <@%d>!", userId))
	disabled := spawnButtons(true)
	if _, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    i.ChannelID,
		ID:         i.Message.ID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &disabled,
	}); err != nil {
		logREST(m.log, "caught edit failed", err)
	}

	lines := []string{fmt.Sprintf("You caught **%s**! +%d XP, +%d gold", res.Poro.Name, res.Outcome.XPGained, res.Outcome.GoldEarned)}
	if res.Outcome.LeveledUp {
		lines = append(lines, fmt.Sprintf("Level up! You are now level %d: **%s**", res.Outcome.Level, res.Outcome.Title))
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: strings.Join(lines, "\n"),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Name it",
						Style:    discordgo.SecondaryButton,
						CustomID: fmt.Sprintf("nickname_%d", res.Outcome.CatchId),
					},
				}},
			},
		},
	})
	if err != nil {
		logREST(m.log, "catch response failed", err)
	}
}

func (m *Module) respondCatchError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateAttempt):
		respondEphemeral(s, i, "You already had your shot at this poro!")
	case errors.Is(err, game.ErrNoActiveSpawn), errors.Is(err, game.ErrStaleSpawn):
		respondEphemeral(s, i, "Too late - this poro is already gone.")
	case errors.Is(err, game.ErrInsufficientResource):
		respondEphemeral(s, i, "You don't have any berries. Buy one in the `/poro` shop.")
	default:
		m.log.WithError(err).Error("catch failed")
		respondEphemeral(s, i, "Something went wrong, try again in a moment.")
	}
}

func (m *Module) handleTossBerry(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		return
	}
	messageId := toInt64(i.Message.ID)

	err := m.mgr.TossBerry(context.Background(), guildId, messageId, userId)
	if err != nil {
		if errors.Is(err, game.ErrBoostAlreadyPlaced) {
			respondEphemeral(s, i, "You already tossed a berry at this poro.")
			return
		}
		m.respondCatchError(s, i, err)
		return
	}
	respondEphemeral(s, i, "You toss a berry. The poro sniffs the air... your next throw gets +15%.")
}

func (m *Module) openNicknameModal(s *discordgo.Session, i *discordgo.InteractionCreate, catchId string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: "nickname_modal_" + catchId,
			Title:    "Name your poro",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "nickname_value",
						Label:     "Nickname",
						Style:     discordgo.TextInputShort,
						MinLength: 1,
						MaxLength: 24,
						Required:  true,
					},
				}},
			},
		},
	})
	if err != nil {
		logREST(m.log, "nickname modal failed", err)
	}
}

func (m *Module) handleNicknameSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, catchIdStr string) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		return
	}
	catchId := toInt64(catchIdStr)

	name := ""
	for _, row := range i.ModalSubmitData().Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == "nickname_value" {
				name = strings.TrimSpace(in.Value)
			}
		}
	}
	if name == "" {
		respondEphemeral(s, i, "That name was empty, try again.")
		return
	}

	updated, err := m.st.SetNickname(context.Background(), catchId, guildId, userId, name)
	if err != nil {
		m.log.WithError(err).Error("nickname update failed")
		respondEphemeral(s, i, "Couldn't save the name, try again.")
		return
	}
	if !updated {
		respondEphemeral(s, i, "That poro isn't in your collection.")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("**%s** it is!", name))
}

func (m *Module) handleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	guildId := toInt64(i.GuildID)
	ctx := context.Background()

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	switch sub.Name {
	case "channel":
		ch := sub.Options[0].ChannelValue(s)
		if err := m.st.SetGameChannel(ctx, guildId, toInt64(ch.ID)); err != nil {
			m.log.WithError(err).Error("set channel failed")
			respondEphemeral(s, i, "Couldn't save the channel.")
			return
		}
		respondEphemeral(s, i, fmt.Sprintf("Poros will now appear in <#%s>.", ch.ID))

	case "showcase-channel":
		ch := sub.Options[0].ChannelValue(s)
		if err := m.st.SetShowcaseChannel(ctx, guildId, toInt64(ch.ID)); err != nil {
			m.log.WithError(err).Error("set showcase channel failed")
			respondEphemeral(s, i, "Couldn't save the channel.")
			return
		}
		respondEphemeral(s, i, fmt.Sprintf("Weekly showcase will post in <#%s>.", ch.ID))

	case "spawns-per-day":
		count := int(sub.Options[0].IntValue())
		if count < game.MinDailyTarget || count > game.MaxDailyTarget {
			respondEphemeral(s, i, fmt.Sprintf("Pick a number between %d and %d.", game.MinDailyTarget, game.MaxDailyTarget))
			return
		}
		if err := m.st.SetDailyTarget(ctx, guildId, count); err != nil {
			m.log.WithError(err).Error("set daily target failed")
			respondEphemeral(s, i, "Couldn't save the setting.")
			return
		}
		respondEphemeral(s, i, fmt.Sprintf("Up to %d poros will appear per day.", count))

	case "spawn":
		_, err := m.mgr.AttemptSpawn(ctx, guildId)
		switch {
		case err == nil:
			if err := m.sched.MarkSpawnHappened(ctx, guildId); err != nil {
				m.log.WithError(err).Error("count forced spawn failed")
			}
			respondEphemeral(s, i, "A poro appears!")
		case errors.Is(err, game.ErrAlreadyActive):
			respondEphemeral(s, i, "There is already a poro out there.")
		case errors.Is(err, game.ErrNoChannelConfigured):
			respondEphemeral(s, i, "Set a spawn channel first with `/porohunt channel`.")
		default:
			var be game.BlackoutError
			if errors.As(err, &be) {
				respondEphemeral(s, i, fmt.Sprintf("Poros are asleep. They wake around <t:%d:t>.", be.NextAllowed.Unix()))
				return
			}
			m.log.WithError(err).Error("forced spawn failed")
			respondEphemeral(s, i, "Spawn failed, check the logs.")
		}

	case "clear":
		if err := m.mgr.ClearSpawn(ctx, guildId); err != nil {
			m.log.WithError(err).Error("clear spawn failed")
			respondEphemeral(s, i, "Couldn't clear the spawn.")
			return
		}
		respondEphemeral(s, i, "Active spawn cleared.")

	case "reset":
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "This wipes **all** poro hunt data for this server: collections, levels, gold, everything. There is no undo.",
				Flags:   discordgo.MessageFlagsEphemeral,
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Yes, wipe it all",
							Style:    discordgo.DangerButton,
							CustomID: "admin_reset_confirm",
						},
					}},
				},
			},
		})
		if err != nil {
			logREST(m.log, "reset prompt failed", err)
		}
	}
}

func (m *Module) handleResetConfirm(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId := toInt64(i.GuildID)
	if guildId == 0 {
		return
	}
	if err := m.st.ResetGuild(context.Background(), guildId); err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("guild reset failed")
		respondUpdate(s, i, "Reset failed, check the logs.")
		return
	}
	m.log.WithField("guild_id", guildId).Info("guild reset")
	respondUpdate(s, i, "All poro hunt data for this server has been wiped.")
}

func interactionIds(i *discordgo.InteractionCreate) (guildId, userId int64, ok bool) {
	if i.GuildID == "" {
		return 0, 0, false
	}
	userIdStr := ""
	if i.Member != nil && i.Member.User != nil {
		userIdStr = i.Member.User.ID
	} else if i.User != nil {
		userIdStr = i.User.ID
	}
	if userIdStr == "" {
		return 0, 0, false
	}
	return toInt64(i.GuildID), toInt64(userIdStr), true
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logrus.WithError(err).Debug("ephemeral response failed")
	}
}

// respondUpdate replaces the component message the user clicked.
func respondUpdate(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    msg,
			Components: []discordgo.MessageComponent{},
		},
	})
}

func pretty(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	secs := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", mins, secs)
}

func logREST(log *logrus.Logger, msg string, err error) {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Message != nil {
		log.WithFields(logrus.Fields{"code": rerr.Message.Code, "msg": rerr.Message.Message}).Error(msg)
		return
	}
	log.WithError(err).Error(msg)
}

func toInt64(snowflake string) int64 {
	n, _ := strconv.ParseInt(snowflake, 10, 64)
	return n
}
