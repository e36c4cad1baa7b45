// Discord OAuth2 + REST client.
//
// Response types based on https://discord.com/developers/docs (API v10).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aikosys/patronlink/internal/shared"
	"golang.org/x/oauth2"
)

const (
	discordAuthURL   = "https://discord.com/oauth2/authorize"
	discordTokenURL  = "https://discord.com/api/v10/oauth2/token"
	discordRevokeURL = "https://discord.com/api/v10/oauth2/token/revoke"
	discordAPIBase   = "https://discord.com/api/v10"

	// Audit-log reason attached to guild mutations performed by the bot.
	auditLogReason = "Patreon: free membership granted"
)

// DiscordUser represents the authenticated Discord user (GET /users/@me).
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Avatar        string `json:"avatar"`
}

// DiscordGuild represents a guild entry from GET /users/@me/guilds.
type DiscordGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// AddStatus classifies the result of a guild-member add call.
type AddStatus string

const (
	AddStatusUnknown       AddStatus = "unknown"
	AddStatusAlreadyMember AddStatus = "already_member"
	AddStatusAdded         AddStatus = "added"
	AddStatusFailed        AddStatus = "failed"
)

// DiscordService is the OAuth2 and REST client for Discord.
//
// User-scoped calls (identity, guild list, token exchange) authenticate with
// the user's bearer token; guild mutations authenticate with the bot token,
// which is a separate elevated credential.
type DiscordService struct {
	config     *oauth2.Config
	botToken   string
	httpClient *http.Client

	// Endpoint overrides for tests.
	authURL   string
	tokenURL  string
	revokeURL string
	apiBase   string
}

// NewDiscordService creates a Discord client from the given credentials.
func NewDiscordService(cfg shared.DiscordConfig) (*DiscordService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: discord client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: discord client_secret", shared.ErrMissingCredentials)
	}
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%w: discord bot_token", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"identify", "guilds", "guilds.join"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  discordAuthURL,
			TokenURL: discordTokenURL,
			// Discord expects client credentials via Basic auth.
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &DiscordService{
		config:     config,
		botToken:   cfg.BotToken,
		httpClient: http.DefaultClient,
		authURL:    discordAuthURL,
		tokenURL:   discordTokenURL,
		revokeURL:  discordRevokeURL,
		apiBase:    discordAPIBase,
	}, nil
}

// Name returns the service name.
func (s *DiscordService) Name() string { return "Discord" }

// AuthCodeURL builds the Discord authorization URL for the given state and
// redirect URI. prompt=none skips the consent screen for returning users.
func (s *DiscordService) AuthCodeURL(state, redirectURI string) string {
	config := s.configFor(redirectURI)
	return config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

// Exchange swaps an authorization code for an access token. The redirect URI
// must exactly match the one the code was issued against.
func (s *DiscordService) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	config := s.configFor(redirectURI)
	token, err := config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: discord: %v", shared.ErrExchangeFailed, err)
	}
	return token, nil
}

// Revoke invalidates a user access token. Best effort; callers decide whether
// a failure matters.
func (s *DiscordService) Revoke(ctx context.Context, token string) error {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// CurrentUser fetches the authenticated user's identity.
func (s *DiscordService) CurrentUser(ctx context.Context, accessToken string) (*DiscordUser, error) {
	var user DiscordUser
	if err := s.getJSON(ctx, "/users/@me", accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUserGuilds fetches the guilds the authenticated user belongs to.
func (s *DiscordService) CurrentUserGuilds(ctx context.Context, accessToken string) ([]DiscordGuild, error) {
	var guilds []DiscordGuild
	if err := s.getJSON(ctx, "/users/@me/guilds", accessToken, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

// AddGuildMember adds a user to a guild with the given role preset, using the
// user's own access token (guilds.join scope) and the bot token for the
// privileged PUT.
//
// A 204 means the user was already a member, a 201 means they were added,
// anything else counts as failed. Only transport errors are returned as
// errors.
func (s *DiscordService) AddGuildMember(ctx context.Context, guildID, userID, accessToken, roleID string) (AddStatus, error) {
	payload, err := json.Marshal(map[string]any{
		"access_token": accessToken,
		"roles":        []string{roleID},
	})
	if err != nil {
		return AddStatusFailed, fmt.Errorf("failed to encode member payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", s.apiBase, guildID, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return AddStatusFailed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Log-Reason", auditLogReason)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return AddStatusFailed, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent:
		return AddStatusAlreadyMember, nil
	case http.StatusCreated:
		return AddStatusAdded, nil
	default:
		return AddStatusFailed, nil
	}
}

// AddGuildMemberRole grants a role to a guild member using the bot token.
// Idempotent on the Discord side. Returns the response status; only transport
// errors are returned as errors.
func (s *DiscordService) AddGuildMemberRole(ctx context.Context, guildID, userID, roleID string) (int, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s/roles/%s", s.apiBase, guildID, userID, roleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+s.botToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Log-Reason", auditLogReason)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer drainClose(resp.Body)

	return resp.StatusCode, nil
}

// configFor clones the oauth config with the per-request redirect URI and any
// test endpoint overrides applied.
func (s *DiscordService) configFor(redirectURI string) *oauth2.Config {
	config := *s.config
	config.RedirectURL = redirectURI
	config.Endpoint.AuthURL = s.authURL
	config.Endpoint.TokenURL = s.tokenURL
	return &config
}

// clientContext threads the service's http client into oauth2 exchanges.
func (s *DiscordService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// getJSON performs a bearer-authenticated GET against the Discord API and
// decodes the JSON response into out.
func (s *DiscordService) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
