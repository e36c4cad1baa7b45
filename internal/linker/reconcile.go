package linker

import (
	"context"
	"net/http"

	"github.com/aikosys/patronlink/internal/services"
)

// reconcileInput is everything the guild membership decision needs.
type reconcileInput struct {
	InTargetGuild     bool
	HasFreeMembership bool
	UserID            string
	AccessToken       string
}

// reconcile decides and performs the guild mutations for one finished run.
//
// A user with a qualifying membership who is not yet in the guild gets added
// with the role preset. The separate role grant fires when the user was
// already in the guild, or when the add call reported them as an existing
// member (the preset roles are ignored for existing members). Without a
// qualifying membership no mutation of any kind happens and the status stays
// unknown.
func (h *Handlers) reconcile(ctx context.Context, in reconcileInput) (services.AddStatus, error) {
	status := services.AddStatusUnknown

	if !in.InTargetGuild && in.HasFreeMembership {
		var err error
		status, err = h.discord.AddGuildMember(ctx, h.guildID, in.UserID, in.AccessToken, h.roleID)
		if err != nil {
			return status, err
		}
	}

	if in.HasFreeMembership && (status == services.AddStatusAlreadyMember || in.InTargetGuild) {
		code, err := h.discord.AddGuildMemberRole(ctx, h.guildID, in.UserID, h.roleID)
		if err != nil {
			return status, err
		}
		if code != http.StatusNoContent {
			h.logger.Warn("role grant returned unexpected status", "status", code, "user", in.UserID)
		}
	}

	return status, nil
}
