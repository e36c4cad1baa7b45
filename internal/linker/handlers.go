// Package linker implements the stateless two-provider OAuth linking
// protocol: a chain of redirect handlers that carries correlation state
// through URL query parameters alone, and the finishing pipeline that turns
// two authorization codes into a guild membership decision.
package linker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aikosys/patronlink/internal/models"
	"github.com/aikosys/patronlink/internal/services"
	"github.com/aikosys/patronlink/internal/shared"
	"github.com/aikosys/patronlink/internal/web"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// DiscordAPI is the slice of the Discord client the linker consumes.
// Satisfied by [services.DiscordService]; tests substitute fakes.
type DiscordAPI interface {
	AuthCodeURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, accessToken string) (*services.DiscordUser, error)
	CurrentUserGuilds(ctx context.Context, accessToken string) ([]services.DiscordGuild, error)
	AddGuildMember(ctx context.Context, guildID, userID, accessToken, roleID string) (services.AddStatus, error)
	AddGuildMemberRole(ctx context.Context, guildID, userID, roleID string) (int, error)
}

// PatreonAPI is the slice of the Patreon client the linker consumes.
// Satisfied by [services.PatreonService]; tests substitute fakes.
type PatreonAPI interface {
	AuthCodeURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	Revoke(ctx context.Context, token string) error
	Identity(ctx context.Context, accessToken string) (*services.PatreonIdentity, error)
	HasFreeMembership(ctx context.Context, identity *services.PatreonIdentity) (bool, error)
}

// AttemptRecorder persists completed link attempts for the audit log.
// Satisfied by [repositories.LinkAttemptRepository]; nil disables recording.
type AttemptRecorder interface {
	Create(attempt *models.LinkAttempt) error
}

// Handlers owns the five HTTP entry points of the linking protocol. Each hop
// is a pure function of its query parameters; no server-side session exists
// between hops.
type Handlers struct {
	discord DiscordAPI
	patreon PatreonAPI

	guildID    string
	roleID     string
	accountURL string
	baseURL    string

	pages    *web.Pages
	attempts AttemptRecorder
	logger   *log.Logger
}

// HandlerOpts contains dependencies for creating Handlers.
type HandlerOpts struct {
	Config   *shared.Config
	Discord  DiscordAPI
	Patreon  PatreonAPI
	Pages    *web.Pages
	Attempts AttemptRecorder
	Logger   *log.Logger
}

// NewHandlers creates the linking handler set.
func NewHandlers(opts HandlerOpts) *Handlers {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Handlers{
		discord:    opts.Discord,
		patreon:    opts.Patreon,
		guildID:    opts.Config.Discord.GuildID,
		roleID:     opts.Config.Discord.RoleID,
		accountURL: opts.Config.Patreon.AccountURL,
		baseURL:    opts.Config.Server.BaseURL,
		pages:      opts.Pages,
		attempts:   opts.Attempts,
		logger:     opts.Logger,
	}
}

// Routes returns the HTTP routes this handler serves. The root pattern also
// makes this handler the 404 page for unmatched paths.
func (h *Handlers) Routes() []string {
	return []string{
		"/",
		"/auth",
		"/auth/discord/init",
		"/auth/discord/callback",
		"/auth/patreon/handover",
		"/auth/patreon/callback",
		"/auth/finish",
	}
}

// ServeHTTP dispatches to the hop matching the request path.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/", "/auth":
		http.Redirect(w, r, "/auth/discord/init", http.StatusFound)
	case "/auth/discord/init":
		h.discordInit(w, r)
	case "/auth/discord/callback":
		h.discordCallback(w, r)
	case "/auth/patreon/handover":
		h.patreonHandover(w, r)
	case "/auth/patreon/callback":
		h.patreonCallback(w, r)
	case "/auth/finish":
		h.finish(w, r)
	default:
		h.renderPage(w, h.notFoundPage())
	}
}

// discordInit starts a linking run: a fresh correlation token plus a redirect
// into Discord's authorization page.
func (h *Handlers) discordInit(w http.ResponseWriter, r *http.Request) {
	correlation := shared.GenerateID()
	authURL := h.discord.AuthCodeURL(correlation, h.redirectURI(r, "/auth/discord/callback"))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// discordCallback receives Discord's code and forwards both the correlation
// token and the code to the Patreon handover as one combined state value.
func (h *Handlers) discordCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := checkCallbackParams(query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	combined := CompositeState{Correlation: query.Get("state"), DiscordCode: query.Get("code")}
	location := "/auth/patreon/handover?state=" + url.QueryEscape(combined.Encode())
	http.Redirect(w, r, location, http.StatusFound)
}

// patreonHandover forwards the combined state into Patreon's authorization
// page, using it verbatim as Patreon's own state parameter.
func (h *Handlers) patreonHandover(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("state") {
		http.Error(w, shared.ErrMissingState.Error(), http.StatusBadRequest)
		return
	}

	authURL := h.patreon.AuthCodeURL(query.Get("state"), h.redirectURI(r, "/auth/patreon/callback"))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// patreonCallback splits the combined state back apart and hands all three
// correlation values to the finish endpoint as separate query parameters.
func (h *Handlers) patreonCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := checkCallbackParams(query); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	combined, err := ParseCompositeState(query.Get("state"))
	if err != nil {
		http.Error(w, shared.ErrMalformedState.Error(), http.StatusBadRequest)
		return
	}

	location := fmt.Sprintf("/auth/finish?state=%s&discord=%s&patreon=%s",
		url.QueryEscape(combined.Correlation),
		url.QueryEscape(combined.DiscordCode),
		url.QueryEscape(query.Get("code")),
	)
	http.Redirect(w, r, location, http.StatusFound)
}

// finish validates the three correlation values and runs the finishing
// pipeline. Missing parameters short-circuit to the not-started page without
// any network call.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("state") || !query.Has("discord") || !query.Has("patreon") {
		h.renderOutcome(w, r, StateNotStarted)
		return
	}

	result := h.runPipeline(r.Context(), r, query.Get("discord"), query.Get("patreon"))
	h.recordAttempt(result)
	h.renderOutcome(w, r, result.State)
}

// checkCallbackParams validates a provider callback's query parameters:
// a provider-reported error wins, then code and state must both be present.
func checkCallbackParams(query url.Values) error {
	if query.Has("error") {
		return fmt.Errorf("%w: %s - %s", shared.ErrProviderDenied, query.Get("error"), query.Get("error_description"))
	}
	if !query.Has("code") {
		return shared.ErrMissingCode
	}
	if !query.Has("state") {
		return shared.ErrMissingState
	}
	return nil
}

// redirectURI computes an absolute callback URI for this deployment. A
// configured base URL wins; otherwise the incoming request's host decides,
// with X-Forwarded-Proto trusted and localhost falling back to plain http.
func (h *Handlers) redirectURI(r *http.Request, path string) string {
	if h.baseURL != "" {
		return strings.TrimRight(h.baseURL, "/") + path
	}

	host := r.Host
	protocol := r.Header.Get("X-Forwarded-Proto")
	if protocol == "" {
		if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
			protocol = "http"
		} else {
			protocol = "https"
		}
	}
	return fmt.Sprintf("%s://%s%s", protocol, host, path)
}

// recordAttempt writes one audit-log row for a completed run. Failures are
// logged and never affect the response.
func (h *Handlers) recordAttempt(result pipelineResult) {
	if h.attempts == nil {
		return
	}

	attempt := models.NewLinkAttempt(0, result.DiscordUserID, result.PatreonUserID, string(result.State))
	if err := h.attempts.Create(attempt); err != nil {
		h.logger.Warn("failed to record link attempt", "error", err)
	}
}
