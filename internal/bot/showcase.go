package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/knubgod/poro-hunt/internal/poro"
)

const (
	showcaseWeekday = time.Sunday
	showcaseHour    = 18
	// The cooldown is shorter than a full week so a tick landing a bit
	// late never skips a Sunday.
	showcaseCooldown = 6 * 24 * time.Hour
)

func (m *Module) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	guildId := toInt64(i.GuildID)

	if ok, rem := m.lbLim.Try(guildId, 0, "leaderboard"); !ok {
		respondEphemeral(s, i, fmt.Sprintf("Leaderboard refreshing... try again in %s.", pretty(rem)))
		return
	}

	rows, err := m.st.TopCatchers(context.Background(), guildId, 10)
	if err != nil {
		m.log.WithError(err).Error("leaderboard failed")
		respondEphemeral(s, i, "Error loading the leaderboard.")
		return
	}
	if len(rows) == 0 {
		respondEphemeral(s, i, "No poros caught yet - keep an eye on the spawn channel!")
		return
	}

	desc := strings.Builder{}
	for idx, r := range rows {
		fmt.Fprintf(&desc, "**#%d** <@%d> — **%d** poros — level %d\n",
			idx+1, r.UserId, r.PorosCaught, r.Level)
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Top Poro Catchers",
				Description: desc.String(),
				Color:       0xf1c40f,
			}},
		},
	})
	if err != nil {
		logREST(m.log, "leaderboard response failed", err)
	}
}

func (m *Module) handleShowcase(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId, callerId, ok := interactionIds(i)
	if !ok {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	ctx := context.Background()

	targetId := callerId
	targetMention := fmt.Sprintf("<@%d>", callerId)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			u := opt.UserValue(s)
			targetId = toInt64(u.ID)
			targetMention = u.Mention()
		}
	}

	user, err := m.st.GetOrCreateUser(ctx, guildId, targetId)
	if err != nil {
		m.log.WithError(err).Error("showcase failed")
		respondEphemeral(s, i, "Error loading that collection.")
		return
	}
	counts, err := m.st.CountByPoro(ctx, guildId, targetId)
	if err != nil {
		m.log.WithError(err).Error("showcase failed")
		respondEphemeral(s, i, "Error loading that collection.")
		return
	}
	unique, err := m.st.UniquePoroCount(ctx, guildId, targetId)
	if err != nil {
		m.log.WithError(err).Error("showcase failed")
		respondEphemeral(s, i, "Error loading that collection.")
		return
	}

	desc := strings.Builder{}
	fmt.Fprintf(&desc, "%s — level **%d**, **%s**\n", targetMention, user.Level, user.Title)
	fmt.Fprintf(&desc, "**%d** poros caught, **%d / %d** species\n\n", user.PorosCaught, unique, m.reg.Count())

	byTier := map[poro.Tier][]string{}
	for _, pc := range counts {
		p, ok := m.reg.GetById(pc.PoroId)
		if !ok {
			continue
		}
		line := fmt.Sprintf("%s ×%d", p.Name, pc.Count)
		if names, err := m.st.RecentNicknames(ctx, guildId, targetId, pc.PoroId, 3); err == nil && len(names) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(names, ", "))
		}
		byTier[p.Tier] = append(byTier[p.Tier], line)
	}
	for _, tier := range []poro.Tier{poro.TierUltraRare, poro.TierRare, poro.TierCommon} {
		lines := byTier[tier]
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&desc, "**%s**\n%s\n", tier.String(), strings.Join(lines, "\n"))
	}
	if len(counts) == 0 {
		desc.WriteString("No poros yet!")
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "Poro Showcase",
				Description: desc.String(),
				Color:       0x99ccff,
			}},
		},
	})
	if err != nil {
		logREST(m.log, "showcase response failed", err)
	}
}

// maybeShowcase posts the weekly guild showcase on Sunday evenings. The
// persisted cooldown keeps a restarting process from posting twice.
func (m *Module) maybeShowcase(ctx context.Context, guildId int64) {
	now := m.clk.Now()
	if now.Weekday() != showcaseWeekday || now.Hour() < showcaseHour {
		return
	}

	sched, err := m.st.GetOrCreateSchedule(ctx, guildId)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("showcase schedule load failed")
		return
	}
	if sched.ShowcaseChannelId == 0 {
		return
	}
	if !sched.LastShowcaseTs.IsZero() && now.Sub(sched.LastShowcaseTs) < showcaseCooldown {
		return
	}

	counts, err := m.st.GuildPoroCounts(ctx, guildId)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("showcase counts failed")
		return
	}
	top, err := m.st.TopCatchers(ctx, guildId, 5)
	if err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("showcase leaderboard failed")
		return
	}

	totals := map[poro.Tier]int{}
	grand := 0
	for _, pc := range counts {
		p, ok := m.reg.GetById(pc.PoroId)
		if !ok {
			continue
		}
		totals[p.Tier] += pc.Count
		grand += pc.Count
	}

	desc := strings.Builder{}
	fmt.Fprintf(&desc, "The herd stands at **%d** poros caught this server's lifetime.\n\n", grand)
	for _, tier := range []poro.Tier{poro.TierCommon, poro.TierRare, poro.TierUltraRare} {
		fmt.Fprintf(&desc, "%s: **%d**\n", tier.String(), totals[tier])
	}
	if len(top) > 0 {
		desc.WriteString("\n**Top catchers**\n")
		for idx, r := range top {
			fmt.Fprintf(&desc, "**#%d** <@%d> — %d poros\n", idx+1, r.UserId, r.PorosCaught)
		}
	}

	_, err = m.s.ChannelMessageSendComplex(strconv.FormatInt(sched.ShowcaseChannelId, 10), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Weekly Poro Showcase",
			Description: desc.String(),
			Color:       0xf1c40f,
		}},
	})
	if err != nil {
		logREST(m.log, "showcase post failed", err)
		return
	}

	if err := m.st.SetLastShowcase(ctx, guildId, now); err != nil {
		m.log.WithError(err).WithField("guild_id", guildId).Error("showcase timestamp update failed")
	}
	m.log.WithField("guild_id", guildId).Info("weekly showcase posted")
}
