// package testing contains shared testing utilities
package testing

import (
	"context"
	"fmt"

	"github.com/aikosys/patronlink/internal/models"
	"github.com/aikosys/patronlink/internal/services"
	"golang.org/x/oauth2"
)

// FakeDiscord is a configurable test double for the Discord client. Every
// call is recorded so tests can assert which provider operations fired.
type FakeDiscord struct {
	ExchangeToken *oauth2.Token
	ExchangeErr   error
	User          *services.DiscordUser
	UserErr       error
	Guilds        []services.DiscordGuild
	GuildsErr     error
	AddStatus     services.AddStatus
	AddErr        error
	RoleStatus    int
	RoleErr       error
	RevokeErr     error

	ExchangedCodes []string
	RevokedTokens  []string
	AddCalls       int
	RoleCalls      int
	UserCalls      int
	GuildCalls     int
}

func (f *FakeDiscord) AuthCodeURL(state, redirectURI string) string {
	return fmt.Sprintf("https://discord.test/authorize?state=%s&redirect_uri=%s", state, redirectURI)
}

func (f *FakeDiscord) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	f.ExchangedCodes = append(f.ExchangedCodes, code)
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	if f.ExchangeToken != nil {
		return f.ExchangeToken, nil
	}
	return &oauth2.Token{AccessToken: "discord_access_" + code}, nil
}

func (f *FakeDiscord) Revoke(ctx context.Context, token string) error {
	f.RevokedTokens = append(f.RevokedTokens, token)
	return f.RevokeErr
}

func (f *FakeDiscord) CurrentUser(ctx context.Context, accessToken string) (*services.DiscordUser, error) {
	f.UserCalls++
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	if f.User != nil {
		return f.User, nil
	}
	return &services.DiscordUser{ID: "100", Username: "tester"}, nil
}

func (f *FakeDiscord) CurrentUserGuilds(ctx context.Context, accessToken string) ([]services.DiscordGuild, error) {
	f.GuildCalls++
	if f.GuildsErr != nil {
		return nil, f.GuildsErr
	}
	return f.Guilds, nil
}

func (f *FakeDiscord) AddGuildMember(ctx context.Context, guildID, userID, accessToken, roleID string) (services.AddStatus, error) {
	f.AddCalls++
	if f.AddErr != nil {
		return services.AddStatusFailed, f.AddErr
	}
	if f.AddStatus == "" {
		return services.AddStatusAdded, nil
	}
	return f.AddStatus, nil
}

func (f *FakeDiscord) AddGuildMemberRole(ctx context.Context, guildID, userID, roleID string) (int, error) {
	f.RoleCalls++
	if f.RoleErr != nil {
		return 0, f.RoleErr
	}
	if f.RoleStatus == 0 {
		return 204, nil
	}
	return f.RoleStatus, nil
}

// FakePatreon is a configurable test double for the Patreon client.
type FakePatreon struct {
	ExchangeToken *oauth2.Token
	ExchangeErr   error
	IdentityData  *services.PatreonIdentity
	IdentityErr   error
	HasFree       bool
	HasFreeErr    error
	RevokeErr     error

	ExchangedCodes []string
	RevokedTokens  []string
	IdentityCalls  int
	HasFreeCalls   int
}

func (f *FakePatreon) AuthCodeURL(state, redirectURI string) string {
	return fmt.Sprintf("https://patreon.test/authorize?state=%s&redirect_uri=%s", state, redirectURI)
}

func (f *FakePatreon) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	f.ExchangedCodes = append(f.ExchangedCodes, code)
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	if f.ExchangeToken != nil {
		return f.ExchangeToken, nil
	}
	return &oauth2.Token{AccessToken: "patreon_access_" + code}, nil
}

func (f *FakePatreon) Revoke(ctx context.Context, token string) error {
	f.RevokedTokens = append(f.RevokedTokens, token)
	return f.RevokeErr
}

func (f *FakePatreon) Identity(ctx context.Context, accessToken string) (*services.PatreonIdentity, error) {
	f.IdentityCalls++
	if f.IdentityErr != nil {
		return nil, f.IdentityErr
	}
	if f.IdentityData != nil {
		return f.IdentityData, nil
	}
	return &services.PatreonIdentity{}, nil
}

func (f *FakePatreon) HasFreeMembership(ctx context.Context, identity *services.PatreonIdentity) (bool, error) {
	f.HasFreeCalls++
	if f.HasFreeErr != nil {
		return false, f.HasFreeErr
	}
	return f.HasFree, nil
}

// RecordingAttempts captures audit-log writes in memory.
type RecordingAttempts struct {
	Created []*models.LinkAttempt
	Err     error
}

func (r *RecordingAttempts) Create(attempt *models.LinkAttempt) error {
	if r.Err != nil {
		return r.Err
	}
	r.Created = append(r.Created, attempt)
	return nil
}
