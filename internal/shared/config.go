package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration, loaded from a TOML file
// with environment variable overrides applied on top.
type Config struct {
	Discord  DiscordConfig  `toml:"discord"`
	Patreon  PatreonConfig  `toml:"patreon"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
}

// DiscordConfig contains the Discord application credentials and the target
// guild/role pair granted to qualifying patrons.
type DiscordConfig struct {
	ClientID     string `toml:"client_id" env:"DISCORD_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"DISCORD_CLIENT_SECRET"`
	BotToken     string `toml:"bot_token" env:"DISCORD_TOKEN"`
	GuildID      string `toml:"guild_id" env:"DISCORD_GUILD_ID"`
	RoleID       string `toml:"role_id" env:"DISCORD_ROLE_ID"`
}

// PatreonConfig contains the Patreon client credentials, the creator access
// token used for privileged member lookups, and the free tier identifier.
type PatreonConfig struct {
	ClientID           string `toml:"client_id" env:"PATREON_CLIENT_ID"`
	ClientSecret       string `toml:"client_secret" env:"PATREON_CLIENT_SECRET"`
	CreatorAccessToken string `toml:"creator_access_token" env:"PATREON_CREATOR_ACCESS_TOKEN"`
	FreeTierID         string `toml:"free_tier_id" env:"PATREON_FREE_TIER_ID"`
	AccountURL         string `toml:"account_url" env:"PATREON_ACCOUNT"`
}

// ServerConfig contains HTTP server settings. BaseURL, when set, overrides the
// redirect URIs otherwise derived from the incoming request's Host header.
type ServerConfig struct {
	Host    string `toml:"host" env:"SERVER_HOST"`
	Port    int    `toml:"port" env:"SERVER_PORT"`
	BaseURL string `toml:"base_url" env:"SERVER_BASE_URL"`
}

// DatabaseConfig contains settings for the optional link-attempt audit log.
// An empty path disables the audit log entirely.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `toml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// FromEnv applies environment variable overrides to the given config in place.
//
// Precedence is env > file > embedded defaults; callers chain [DefaultConfig]
// or [LoadConfig] with FromEnv.
func FromEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: failed to parse environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports the first missing credential required to run the linking
// service. The database path is optional and not checked.
func (c *Config) Validate() error {
	required := []struct {
		value string
		name  string
	}{
		{c.Discord.ClientID, "discord client_id"},
		{c.Discord.ClientSecret, "discord client_secret"},
		{c.Discord.BotToken, "discord bot_token"},
		{c.Discord.GuildID, "discord guild_id"},
		{c.Discord.RoleID, "discord role_id"},
		{c.Patreon.ClientID, "patreon client_id"},
		{c.Patreon.ClientSecret, "patreon client_secret"},
		{c.Patreon.CreatorAccessToken, "patreon creator_access_token"},
		{c.Patreon.FreeTierID, "patreon free_tier_id"},
		{c.Patreon.AccountURL, "patreon account_url"},
	}

	for _, field := range required {
		if field.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingCredentials, field.name)
		}
	}

	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
