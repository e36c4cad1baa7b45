package linker

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ttest "github.com/aikosys/patronlink/internal/testing"

	"github.com/aikosys/patronlink/internal/services"
)

func TestFinish(t *testing.T) {
	const target = "/auth/finish?state=tok&discord=dc&patreon=pc"

	t.Run("Missing Params Renders Not Started", func(t *testing.T) {
		tests := []struct {
			name   string
			target string
		}{
			{"no params", "/auth/finish"},
			{"missing state", "/auth/finish?discord=dc&patreon=pc"},
			{"missing discord", "/auth/finish?state=tok&patreon=pc"},
			{"missing patreon", "/auth/finish?state=tok&discord=dc"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				discord := &ttest.FakeDiscord{}
				patreon := &ttest.FakePatreon{}
				h := newTestHandlers(t, discord, patreon, nil)

				rec := get(h, tc.target)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("expected 400, got %d", rec.Code)
				}
				if !strings.Contains(rec.Body.String(), "Authentication Not Started") {
					t.Error("expected not-started page")
				}
				if len(discord.ExchangedCodes) != 0 || len(patreon.ExchangedCodes) != 0 {
					t.Error("expected no provider calls for missing params")
				}
				if discord.UserCalls != 0 || patreon.IdentityCalls != 0 {
					t.Error("expected no identity lookups for missing params")
				}
			})
		}
	})

	t.Run("Role Patch For Existing Member", func(t *testing.T) {
		discord := &ttest.FakeDiscord{
			Guilds: []services.DiscordGuild{{ID: "guild1", Name: "Target"}},
		}
		patreon := &ttest.FakePatreon{HasFree: true}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "updated your roles") {
			t.Error("expected role-patch page copy")
		}
		if discord.AddCalls != 0 {
			t.Error("expected no add call for existing member")
		}
		if discord.RoleCalls != 1 {
			t.Errorf("expected exactly one role grant, got %d", discord.RoleCalls)
		}
	})

	t.Run("Guild Add For New Member", func(t *testing.T) {
		discord := &ttest.FakeDiscord{AddStatus: services.AddStatusAdded}
		patreon := &ttest.FakePatreon{HasFree: true}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "successfully added") {
			t.Error("expected guild-add page copy")
		}
		if discord.AddCalls != 1 {
			t.Errorf("expected one add call, got %d", discord.AddCalls)
		}
	})

	t.Run("Failure Without Membership", func(t *testing.T) {
		discord := &ttest.FakeDiscord{}
		patreon := &ttest.FakePatreon{HasFree: false}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authentication Failed") {
			t.Error("expected failure page")
		}
		if discord.AddCalls != 0 || discord.RoleCalls != 0 {
			t.Error("expected no guild mutations without membership")
		}
	})

	t.Run("Failure Page Escapes Host Header", func(t *testing.T) {
		discord := &ttest.FakeDiscord{}
		patreon := &ttest.FakePatreon{HasFree: false}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Host = `example.test"><script>alert(1)</script>`
		h.ServeHTTP(rec, req)

		body := rec.Body.String()
		if strings.Contains(body, "<script>") {
			t.Error("host header reflected without escaping")
		}
		if !strings.Contains(body, "&lt;script&gt;") {
			t.Error("expected escaped host in restart link")
		}
	})

	t.Run("Catastrophic On Exchange Error", func(t *testing.T) {
		discord := &ttest.FakeDiscord{ExchangeErr: errors.New("boom")}
		patreon := &ttest.FakePatreon{}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Unknown Error") {
			t.Error("expected catastrophic page")
		}
		if strings.Contains(rec.Body.String(), "boom") {
			t.Error("raw error must not leak to the page")
		}
	})

	t.Run("Revocation Fires After Mid Pipeline Error", func(t *testing.T) {
		discord := &ttest.FakeDiscord{}
		patreon := &ttest.FakePatreon{HasFreeErr: errors.New("membership lookup exploded")}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if len(discord.RevokedTokens) != 1 {
			t.Errorf("expected discord token revoked, got %v", discord.RevokedTokens)
		}
		if len(patreon.RevokedTokens) != 1 {
			t.Errorf("expected patreon token revoked, got %v", patreon.RevokedTokens)
		}
	})

	t.Run("Revocation Skipped For Unobtained Tokens", func(t *testing.T) {
		discord := &ttest.FakeDiscord{ExchangeErr: errors.New("no token issued")}
		patreon := &ttest.FakePatreon{}
		h := newTestHandlers(t, discord, patreon, nil)

		get(h, target)
		if len(discord.RevokedTokens) != 0 {
			t.Errorf("expected no discord revocation, got %v", discord.RevokedTokens)
		}
		if len(patreon.RevokedTokens) != 0 {
			t.Errorf("expected no patreon revocation, got %v", patreon.RevokedTokens)
		}
	})

	t.Run("Revocation Failure Does Not Change Outcome", func(t *testing.T) {
		discord := &ttest.FakeDiscord{
			Guilds:    []services.DiscordGuild{{ID: "guild1"}},
			RevokeErr: errors.New("revoke rejected"),
		}
		patreon := &ttest.FakePatreon{HasFree: true}
		h := newTestHandlers(t, discord, patreon, nil)

		rec := get(h, target)
		if rec.Code != http.StatusOK {
			t.Errorf("expected success despite revoke failure, got %d", rec.Code)
		}
	})

	t.Run("Records Attempt", func(t *testing.T) {
		attempts := &ttest.RecordingAttempts{}
		discord := &ttest.FakeDiscord{Guilds: []services.DiscordGuild{{ID: "guild1"}}}
		patreon := &ttest.FakePatreon{HasFree: true}
		h := newTestHandlers(t, discord, patreon, attempts)

		get(h, target)
		if len(attempts.Created) != 1 {
			t.Fatalf("expected one recorded attempt, got %d", len(attempts.Created))
		}
		if attempts.Created[0].Outcome() != string(StateRolePatch) {
			t.Errorf("expected role_patch outcome, got %s", attempts.Created[0].Outcome())
		}
		if attempts.Created[0].DiscordUserID() != "100" {
			t.Errorf("expected resolved discord user id, got %s", attempts.Created[0].DiscordUserID())
		}
	})

	t.Run("Attempt Write Failure Does Not Change Outcome", func(t *testing.T) {
		attempts := &ttest.RecordingAttempts{Err: errors.New("disk full")}
		discord := &ttest.FakeDiscord{Guilds: []services.DiscordGuild{{ID: "guild1"}}}
		patreon := &ttest.FakePatreon{HasFree: true}
		h := newTestHandlers(t, discord, patreon, attempts)

		rec := get(h, target)
		if rec.Code != http.StatusOK {
			t.Errorf("expected success despite audit failure, got %d", rec.Code)
		}
	})
}
