// Patreon OAuth2 + API v2 client.
//
// Response types follow the JSON:API shapes documented at
// https://docs.patreon.com/#apiv2-resources
package services

import (
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
	patreonAuthURL   = "https://www.patreon.com/oauth2/authorize"
	patreonTokenURL  = "https://www.patreon.com/api/oauth2/token"
	patreonRevokeURL = "https://www.patreon.com/api/oauth2/token/revoke"
	patreonAPIBase   = "https://www.patreon.com/api/oauth2/v2"

	identityQuery = "include=memberships&fields%5Bmember%5D=is_free_trial,currently_entitled_amount_cents,patron_status,pledge_cadence"
	memberQuery   = "fields%5Bmember%5D=is_follower,last_charge_date&include=user,currently_entitled_tiers"
)

// PatreonResource is a JSON:API resource reference (id + type).
type PatreonResource struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// PatreonIdentity represents the identity response for the authenticated
// patron, with their memberships included as resource references.
type PatreonIdentity struct {
	Data struct {
		ID            string `json:"id"`
		Type          string `json:"type"`
		Relationships struct {
			Memberships struct {
				Data []PatreonResource `json:"data"`
			} `json:"memberships"`
		} `json:"relationships"`
	} `json:"data"`
}

// PatreonMember represents a single membership with its currently entitled
// tiers, fetched with the creator access token.
type PatreonMember struct {
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			IsFollower     bool    `json:"is_follower"`
			LastChargeDate *string `json:"last_charge_date"`
		} `json:"attributes"`
		Relationships struct {
			CurrentlyEntitledTiers struct {
				Data []PatreonResource `json:"data"`
			} `json:"currently_entitled_tiers"`
			User struct {
				Data PatreonResource `json:"data"`
			} `json:"user"`
		} `json:"relationships"`
	} `json:"data"`
}

// PatreonService is the OAuth2 and API v2 client for Patreon.
//
// Identity lookups use the patron's own token; membership detail lookups use
// the long-lived creator access token, a privileged credential that can read
// any member of the campaign.
type PatreonService struct {
	config       *oauth2.Config
	creatorToken string
	freeTierID   string
	httpClient   *http.Client

	// Endpoint overrides for tests.
	authURL   string
	tokenURL  string
	revokeURL string
	apiBase   string
}

// NewPatreonService creates a Patreon client from the given credentials.
func NewPatreonService(cfg shared.PatreonConfig) (*PatreonService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: patreon client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: patreon client_secret", shared.ErrMissingCredentials)
	}
	if cfg.CreatorAccessToken == "" {
		return nil, fmt.Errorf("%w: patreon creator_access_token", shared.ErrMissingCredentials)
	}
	if cfg.FreeTierID == "" {
		return nil, fmt.Errorf("%w: patreon free_tier_id", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"identity"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  patreonAuthURL,
			TokenURL: patreonTokenURL,
			// Patreon expects client credentials in the form body.
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &PatreonService{
		config:       config,
		creatorToken: cfg.CreatorAccessToken,
		freeTierID:   cfg.FreeTierID,
		httpClient:   http.DefaultClient,
		authURL:      patreonAuthURL,
		tokenURL:     patreonTokenURL,
		revokeURL:    patreonRevokeURL,
		apiBase:      patreonAPIBase,
	}, nil
}

// Name returns the service name.
func (s *PatreonService) Name() string { return "Patreon" }

// AuthCodeURL builds the Patreon authorization URL for the given state and
// redirect URI.
func (s *PatreonService) AuthCodeURL(state, redirectURI string) string {
	config := s.configFor(redirectURI)
	return config.AuthCodeURL(state)
}

// Exchange swaps an authorization code for an access token. The redirect URI
// must exactly match the one the code was issued against.
func (s *PatreonService) Exchange(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	config := s.configFor(redirectURI)
	token, err := config.Exchange(context.WithValue(ctx, oauth2.HTTPClient, s.httpClient), code)
	if err != nil {
		return nil, fmt.Errorf("%w: patreon: %v", shared.ErrExchangeFailed, err)
	}
	return token, nil
}

// Revoke invalidates a patron access token. Best effort; callers decide
// whether a failure matters.
func (s *PatreonService) Revoke(ctx context.Context, token string) error {
	form := url.Values{
		"client_id":       {s.config.ClientID},
		"client_secret":   {s.config.ClientSecret},
		"token":           {token},
		"token_type_hint": {"access_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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

// Identity fetches the authenticated patron's identity with memberships
// included.
func (s *PatreonService) Identity(ctx context.Context, accessToken string) (*PatreonIdentity, error) {
	var identity PatreonIdentity
	if err := s.getJSON(ctx, "/identity?"+identityQuery, accessToken, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Member fetches one membership's details using the creator access token.
func (s *PatreonService) Member(ctx context.Context, membershipID string) (*PatreonMember, error) {
	var member PatreonMember
	path := fmt.Sprintf("/members/%s?%s", membershipID, memberQuery)
	if err := s.getJSON(ctx, path, s.creatorToken, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// HasFreeMembership reports whether the patron holds a qualifying free
// membership: at least one membership whose first entry is entitled to exactly
// one tier matching the configured free tier id.
func (s *PatreonService) HasFreeMembership(ctx context.Context, identity *PatreonIdentity) (bool, error) {
	memberships := identity.Data.Relationships.Memberships.Data
	if len(memberships) == 0 {
		return false, nil
	}

	member, err := s.Member(ctx, memberships[0].ID)
	if err != nil {
		return false, err
	}

	tiers := member.Data.Relationships.CurrentlyEntitledTiers.Data
	if len(tiers) != 1 {
		return false, nil
	}
	return tiers[0].ID == s.freeTierID, nil
}

// configFor clones the oauth config with the per-request redirect URI and any
// test endpoint overrides applied.
func (s *PatreonService) configFor(redirectURI string) *oauth2.Config {
	config := *s.config
	config.RedirectURL = redirectURI
	config.Endpoint.AuthURL = s.authURL
	config.Endpoint.TokenURL = s.tokenURL
	return &config
}

// getJSON performs a bearer-authenticated GET against the Patreon API and
// decodes the JSON response into out.
func (s *PatreonService) getJSON(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

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
