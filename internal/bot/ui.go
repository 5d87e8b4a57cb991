package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/knubgod/poro-hunt/internal/game"
	"github.com/knubgod/poro-hunt/internal/poro"
)

func spawnEmbed(reg *poro.Registry, p poro.Poro, stats poro.Stats, note string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("A wild %s appeared!", p.Name),
		Description: fmt.Sprintf(
			"Rarity: **%s**\nSize **%d** · Weight **%d** · Fluffiness **%d**\n\n%s",
			p.Tier.String(), stats.Size, stats.Weight, stats.Fluffiness, note),
		Color:     poro.ColorForTier(p.Tier),
		Thumbnail: reg.EmbedThumb(p.Id),
	}
}

func spawnButtons(disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Catch!",
				Style:    discordgo.PrimaryButton,
				CustomID: "poro_catch",
				Disabled: disabled,
			},
			discordgo.Button{
				Label:    "Toss a berry",
				Style:    discordgo.SecondaryButton,
				CustomID: "poro_toss_berry",
				Disabled: disabled,
			},
		}},
	}
}

func menuNav() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Home", Style: discordgo.SecondaryButton, CustomID: "menu_home"},
			discordgo.Button{Label: "Collection", Style: discordgo.SecondaryButton, CustomID: "menu_collection"},
			discordgo.Button{Label: "Inventory", Style: discordgo.SecondaryButton, CustomID: "menu_inventory"},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Feed", Style: discordgo.SecondaryButton, CustomID: "menu_feed"},
			discordgo.Button{Label: "Shop", Style: discordgo.SecondaryButton, CustomID: "menu_shop"},
			discordgo.Button{Label: "Titles", Style: discordgo.SecondaryButton, CustomID: "menu_titles"},
		}},
	}
}

// handleMenu opens the private menu for /poro.
func (m *Module) handleMenu(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		respondEphemeral(s, i, "Use this command in a server!")
		return
	}
	if ok, rem := m.menuLim.Try(guildId, userId, "menu"); !ok {
		respondEphemeral(s, i, fmt.Sprintf("Catch your breath... try again in %s.", pretty(rem)))
		return
	}

	embed, err := m.homeEmbed(context.Background(), guildId, userId)
	if err != nil {
		m.log.WithError(err).Error("menu failed")
		respondEphemeral(s, i, "Couldn't open the menu, try again.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Flags:      discordgo.MessageFlagsEphemeral,
			Components: menuNav(),
		},
	})
	if err != nil {
		logREST(m.log, "menu response failed", err)
	}
}

// handleMenuComponent swaps the private menu between its views in place.
func (m *Module) handleMenuComponent(s *discordgo.Session, i *discordgo.InteractionCreate, id string) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		return
	}
	ctx := context.Background()

	var (
		embed      *discordgo.MessageEmbed
		components []discordgo.MessageComponent
		err        error
	)
	components = menuNav()

	switch id {
	case "menu_home":
		embed, err = m.homeEmbed(ctx, guildId, userId)
	case "menu_collection":
		embed, err = m.collectionEmbed(ctx, guildId, userId)
	case "menu_inventory":
		embed, err = m.inventoryEmbed(ctx, guildId, userId)
	case "menu_titles":
		embed, err = m.titlesEmbed(ctx, guildId, userId)
	case "menu_feed":
		embed, components, err = m.feedView(ctx, guildId, userId)
	case "menu_shop":
		embed, components, err = m.shopView(ctx, guildId, userId)
	case "shop_trap", "shop_berry", "shop_food", "shop_free_food", "shop_arm_trap":
		embed, components, err = m.shopAction(ctx, guildId, userId, id)
	default:
		return
	}
	if err != nil {
		m.log.WithError(err).WithField("view", id).Error("menu view failed")
		respondEphemeral(s, i, "Couldn't load that view, try again.")
		return
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func (m *Module) homeEmbed(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, error) {
	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, err
	}
	unique, err := m.st.UniquePoroCount(ctx, guildId, userId)
	if err != nil {
		return nil, err
	}
	stashed, err := m.st.CountStash(ctx, guildId, userId)
	if err != nil {
		return nil, err
	}

	desc := strings.Builder{}
	fmt.Fprintf(&desc, "Level **%d** — **%s**\n", user.Level, user.Title)
	fmt.Fprintf(&desc, "XP toward next level: **%d / %d**\n\n", user.XP, game.XPNeededForLevel(user.Level))
	fmt.Fprintf(&desc, "Poros caught: **%d** (%d of %d species)\n", user.PorosCaught, unique, m.reg.Count())
	fmt.Fprintf(&desc, "Gold: **%d**\n", user.Gold)
	if stashed > 0 {
		fmt.Fprintf(&desc, "\nYour traps have snared **%d** poro(s) while you were away!\n", stashed)
	}

	return &discordgo.MessageEmbed{
		Title:       "Your Poro Hunt",
		Description: desc.String(),
		Color:       0x99ccff,
	}, nil
}

func (m *Module) collectionEmbed(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, error) {
	catches, err := m.st.ListCatches(ctx, guildId, userId, 15)
	if err != nil {
		return nil, err
	}
	if err := m.hunger.RefreshAll(ctx, catches); err != nil {
		return nil, err
	}

	if len(catches) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Collection",
			Description: "No poros yet. Keep an eye on the spawn channel!",
			Color:       0x99ccff,
		}, nil
	}

	desc := strings.Builder{}
	for _, c := range catches {
		name := m.reg.NameById(c.PoroId)
		if c.Nickname != "" {
			name = fmt.Sprintf("%s (%s)", c.Nickname, name)
		}
		fmt.Fprintf(&desc, "**%s** — size %d, fluff %d — %s\n",
			name, c.Stats.Size, c.Stats.Fluffiness, hungerLabel(c.Stats.Hunger))
	}

	return &discordgo.MessageEmbed{
		Title:       "Collection (most recent)",
		Description: desc.String(),
		Color:       0x99ccff,
	}, nil
}

func (m *Module) inventoryEmbed(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, error) {
	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, err
	}
	return &discordgo.MessageEmbed{
		Title: "Inventory",
		Description: fmt.Sprintf(
			"Gold: **%d**\nBerries: **%d**\nTraps: **%d** (armed: %d)\nFood: **%d**",
			user.Gold, user.Berries, user.Traps, user.TrapsArmed, user.Food),
		Color: 0x99ccff,
	}, nil
}

func (m *Module) titlesEmbed(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, error) {
	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, err
	}

	desc := strings.Builder{}
	for _, t := range game.Titles {
		marker := " "
		if t.Title == user.Title {
			marker = "→"
		}
		fmt.Fprintf(&desc, "%s Level %d: **%s**\n", marker, t.Level, t.Title)
	}

	return &discordgo.MessageEmbed{
		Title:       "Titles",
		Description: desc.String(),
		Color:       0x99ccff,
	}, nil
}

func (m *Module) feedView(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	catches, err := m.st.ListHungriest(ctx, guildId, userId, 25)
	if err != nil {
		return nil, nil, err
	}
	if err := m.hunger.RefreshAll(ctx, catches); err != nil {
		return nil, nil, err
	}

	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title: "Feed a poro",
		Description: fmt.Sprintf(
			"Food uses left: **%d**\nPoros get hungrier over time; pick one to feed.",
			user.Food),
		Color: 0x99ccff,
	}

	if len(catches) == 0 {
		embed.Description = "No poros to feed yet."
		return embed, menuNav(), nil
	}

	options := make([]discordgo.SelectMenuOption, 0, len(catches))
	for _, c := range catches {
		name := m.reg.NameById(c.PoroId)
		if c.Nickname != "" {
			name = c.Nickname
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       name,
			Description: hungerLabel(c.Stats.Hunger),
			Value:       fmt.Sprintf("%d", c.Id),
		})
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    "feed_pick",
				Placeholder: "Pick a poro to feed",
				Options:     options,
			},
		}},
	}
	components = append(components, menuNav()...)
	return embed, components, nil
}

func (m *Module) handleFeedPick(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildId, userId, ok := interactionIds(i)
	if !ok {
		return
	}
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		return
	}
	ctx := context.Background()
	catchId := toInt64(values[0])

	c, amount, err := m.items.FeedCatch(ctx, guildId, userId, catchId)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrInsufficientResource):
			respondEphemeral(s, i, "You're out of food. Grab a bag in the shop, or claim your free one.")
		case errors.Is(err, game.ErrCatchNotFound):
			respondEphemeral(s, i, "That poro isn't in your collection.")
		default:
			m.log.WithError(err).Error("feed failed")
			respondEphemeral(s, i, "Feeding failed, try again.")
		}
		return
	}

	name := m.reg.NameById(c.PoroId)
	if c.Nickname != "" {
		name = c.Nickname
	}

	embed, components, err := m.feedView(ctx, guildId, userId)
	if err != nil {
		m.log.WithError(err).Error("feed view refresh failed")
		respondEphemeral(s, i, fmt.Sprintf("**%s** munches happily (+%d). %s", name, amount, hungerLabel(c.Stats.Hunger)))
		return
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%s munches happily (+%d). Now: %s", name, amount, hungerLabel(c.Stats.Hunger)),
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

func (m *Module) shopView(ctx context.Context, guildId, userId int64) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	user, err := m.st.GetOrCreateUser(ctx, guildId, userId)
	if err != nil {
		return nil, nil, err
	}

	embed := &discordgo.MessageEmbed{
		Title: "Shop",
		Description: fmt.Sprintf(
			"You have **%d** gold.\n\n"+
				"**Berry** — %dg. +15%% on your next throw at a spawn.\n"+
				"**Trap** — %dg. Arm it to snare the next poro even while you're away.\n"+
				"**Food bag** — %dg. %d feedings for your poros.\n\n"+
				"A free food bag is available every 12 hours.",
			user.Gold, game.BerryCost, game.TrapCost, game.FoodBagCost, game.FoodBagUses),
		Color: 0x99ccff,
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: fmt.Sprintf("Berry (%dg)", game.BerryCost), Style: discordgo.PrimaryButton, CustomID: "shop_berry"},
			discordgo.Button{Label: fmt.Sprintf("Trap (%dg)", game.TrapCost), Style: discordgo.PrimaryButton, CustomID: "shop_trap"},
			discordgo.Button{Label: fmt.Sprintf("Food bag (%dg)", game.FoodBagCost), Style: discordgo.PrimaryButton, CustomID: "shop_food"},
		}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Arm a trap", Style: discordgo.SecondaryButton, CustomID: "shop_arm_trap"},
			discordgo.Button{Label: "Claim free food", Style: discordgo.SuccessButton, CustomID: "shop_free_food"},
		}},
	}
	components = append(components, menuNav()...)
	return embed, components, nil
}

func (m *Module) shopAction(ctx context.Context, guildId, userId int64, id string) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	var (
		note string
		err  error
	)
	switch id {
	case "shop_berry":
		err = m.items.BuyBerry(ctx, guildId, userId)
		note = "Bought a berry."
	case "shop_trap":
		err = m.items.BuyTrap(ctx, guildId, userId)
		note = "Bought a trap."
	case "shop_food":
		err = m.items.BuyFoodBag(ctx, guildId, userId)
		note = fmt.Sprintf("Bought a food bag (+%d feedings).", game.FoodBagUses)
	case "shop_arm_trap":
		err = m.items.ArmTrap(ctx, guildId, userId)
		note = "Trap armed. It will snare the next poro that appears."
	case "shop_free_food":
		err = m.items.ClaimFreeFood(ctx, guildId, userId)
		note = fmt.Sprintf("Free food bag claimed (+%d feedings).", game.FoodBagUses)
	}

	switch {
	case err == nil:
	case errors.Is(err, game.ErrInsufficientResource):
		if id == "shop_arm_trap" {
			note = "You have no traps to arm."
		} else {
			note = "Not enough gold."
		}
	default:
		var ce game.CooldownError
		if errors.As(err, &ce) {
			note = fmt.Sprintf("Free food recharges in %s.", pretty(ce.Remaining))
		} else {
			return nil, nil, err
		}
	}

	embed, components, err := m.shopView(ctx, guildId, userId)
	if err != nil {
		return nil, nil, err
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: note}
	return embed, components, nil
}

func hungerLabel(hunger int) string {
	switch {
	case hunger >= 9:
		return "starving!"
	case hunger >= 6:
		return "very hungry"
	case hunger >= 3:
		return "peckish"
	default:
		return "well fed"
	}
}
