package linker

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// pipelineResult carries the terminal state of one finishing run plus the
// identities resolved along the way (empty when the run failed before the
// corresponding lookup).
type pipelineResult struct {
	State         OperationState
	DiscordUserID string
	PatreonUserID string
}

// runPipeline executes the finishing sequence: exchange both codes, resolve
// both identities, decide eligibility, reconcile guild membership, classify.
//
// No step is retried. Both access tokens are revoked on every exit path once
// obtained; revocation failures are logged and swallowed. Any error escalates
// to the catastrophic state rather than out of this function.
func (h *Handlers) runPipeline(ctx context.Context, r *http.Request, discordCode, patreonCode string) (result pipelineResult) {
	var discordToken, patreonToken *oauth2.Token
	defer func() {
		h.revokeTokens(ctx, discordToken, patreonToken)
	}()

	fail := func(step string, err error) pipelineResult {
		h.logger.Error("error finishing auth", "step", step, "error", err)
		result.State = StateCatastrophic
		return result
	}

	discordToken, err := h.discord.Exchange(ctx, discordCode, h.redirectURI(r, "/auth/discord/callback"))
	if err != nil {
		return fail("discord exchange", err)
	}

	patreonToken, err = h.patreon.Exchange(ctx, patreonCode, h.redirectURI(r, "/auth/patreon/callback"))
	if err != nil {
		return fail("patreon exchange", err)
	}

	discordUser, err := h.discord.CurrentUser(ctx, discordToken.AccessToken)
	if err != nil {
		return fail("discord identity", err)
	}
	result.DiscordUserID = discordUser.ID

	guilds, err := h.discord.CurrentUserGuilds(ctx, discordToken.AccessToken)
	if err != nil {
		return fail("discord guilds", err)
	}

	inTargetGuild := false
	for _, guild := range guilds {
		if guild.ID == h.guildID {
			inTargetGuild = true
			break
		}
	}

	identity, err := h.patreon.Identity(ctx, patreonToken.AccessToken)
	if err != nil {
		return fail("patreon identity", err)
	}
	result.PatreonUserID = identity.Data.ID

	hasFreeMembership, err := h.patreon.HasFreeMembership(ctx, identity)
	if err != nil {
		return fail("patreon membership", err)
	}

	addStatus, err := h.reconcile(ctx, reconcileInput{
		InTargetGuild:     inTargetGuild,
		HasFreeMembership: hasFreeMembership,
		UserID:            discordUser.ID,
		AccessToken:       discordToken.AccessToken,
	})
	if err != nil {
		return fail("guild reconcile", err)
	}

	result.State = Classify(inTargetGuild, hasFreeMembership, addStatus)
	return result
}

// revokeTokens attempts to revoke every token that was obtained. Best effort:
// failures are logged at warning level and never escalate.
func (h *Handlers) revokeTokens(ctx context.Context, discordToken, patreonToken *oauth2.Token) {
	if discordToken != nil && discordToken.AccessToken != "" {
		if err := h.discord.Revoke(ctx, discordToken.AccessToken); err != nil {
			h.logger.Warn("failed to revoke discord token", "error", err)
		}
	}
	if patreonToken != nil && patreonToken.AccessToken != "" {
		if err := h.patreon.Revoke(ctx, patreonToken.AccessToken); err != nil {
			h.logger.Warn("failed to revoke patreon token", "error", err)
		}
	}
}
