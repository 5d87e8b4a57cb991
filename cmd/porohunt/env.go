package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	PorosJson              string
	DiscordToken           string
	DevGuild               string
	DBPath                 string
	ShardCount             int
	ShardId                int
	SpawnTickSeconds       int
	CooldownMenuMin        int
	CooldownMenuMax        int
	CooldownLeaderboardMin int
	CooldownLeaderboardMax int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	porosJson := os.Getenv("POROS_JSON")
	if porosJson == "" {
		return nil, fmt.Errorf("No POROS_JSON in environment")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("No DISCORD_TOKEN in environment")
	}

	// Empty means global command registration; a guild id scopes commands
	// there for instant availability during development.
	devGuild := os.Getenv("DEV_GUILD_ID")

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("No DB_PATH in environment")
	}

	shardCount, err := loadInt("SHARD_COUNT", 1)
	if err != nil {
		return nil, err
	}
	shardId, err := loadInt("SHARD_ID", 0)
	if err != nil {
		return nil, err
	}
	spawnTickSeconds, err := loadInt("SPAWN_TICK_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cooldownMenuMin, err := loadInt("COOLDOWN_MENU_MIN", 5)
	if err != nil {
		return nil, err
	}
	cooldownMenuMax, err := loadInt("COOLDOWN_MENU_MAX", 10)
	if err != nil {
		return nil, err
	}
	cooldownLeaderboardMin, err := loadInt("COOLDOWN_LEADERBOARD_MIN", 30)
	if err != nil {
		return nil, err
	}
	cooldownLeaderboardMax, err := loadInt("COOLDOWN_LEADERBOARD_MAX", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		PorosJson:              porosJson,
		DiscordToken:           token,
		DevGuild:               devGuild,
		DBPath:                 dbPath,
		ShardCount:             shardCount,
		ShardId:                shardId,
		SpawnTickSeconds:       spawnTickSeconds,
		CooldownMenuMin:        cooldownMenuMin,
		CooldownMenuMax:        cooldownMenuMax,
		CooldownLeaderboardMin: cooldownLeaderboardMin,
		CooldownLeaderboardMax: cooldownLeaderboardMax,
	}, nil
}

func loadInt(key string, defValue int) (int, error) {
	value := os.Getenv(key)
	if value != "" {
		return strconv.Atoi(value)
	}

	return defValue, nil
}
