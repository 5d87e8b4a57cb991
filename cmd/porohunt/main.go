package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/knubgod/poro-hunt/internal/bot"
	"github.com/knubgod/poro-hunt/internal/poro"
	"github.com/knubgod/poro-hunt/internal/ratelimit"
	"github.com/knubgod/poro-hunt/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	config, err := LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	reg, err := poro.LoadRegistryFromJSON(config.PorosJson)
	if err != nil {
		log.WithError(err).Fatal("failed to load poro catalog")
	}

	st, err := store.OpenSQLite(config.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		log.WithError(err).Fatal("failed to create session")
	}

	session.ShardCount = config.ShardCount
	session.ShardID = config.ShardId
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	if err := session.Open(); err != nil {
		log.WithError(err).Fatal("failed to open session connection")
	}
	defer session.Close()

	appId := session.State.User.ID

	menuLim := ratelimit.NewLimiter(
		time.Duration(config.CooldownMenuMin)*time.Second,
		time.Duration(config.CooldownMenuMax)*time.Second,
		nil,
	)
	lbLim := ratelimit.NewLimiter(
		time.Duration(config.CooldownLeaderboardMin)*time.Second,
		time.Duration(config.CooldownLeaderboardMax)*time.Second,
		nil,
	)

	module, err := bot.Setup(
		session, appId, config.DevGuild,
		reg, st, menuLim, lbLim,
		time.Duration(config.SpawnTickSeconds)*time.Second,
		log,
	)
	if err != nil {
		log.WithError(err).Fatal("failed to setup bot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go module.Run(ctx)

	log.Info("poro hunt is running")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
