package linker

import (
	"context"
	"errors"
	"testing"

	ttest "github.com/aikosys/patronlink/internal/testing"

	"github.com/aikosys/patronlink/internal/services"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name       string
		inGuild    bool
		hasFree    bool
		addStatus  services.AddStatus
		wantStatus services.AddStatus
		wantAdds   int
		wantRoles  int
	}{
		{
			name:       "new member with free tier gets added",
			hasFree:    true,
			addStatus:  services.AddStatusAdded,
			wantStatus: services.AddStatusAdded,
			wantAdds:   1,
		},
		{
			name:       "existing guild member with free tier gets role only",
			inGuild:    true,
			hasFree:    true,
			wantStatus: services.AddStatusUnknown,
			wantRoles:  1,
		},
		{
			name:       "add reports already member so role is granted",
			hasFree:    true,
			addStatus:  services.AddStatusAlreadyMember,
			wantStatus: services.AddStatusAlreadyMember,
			wantAdds:   1,
			wantRoles:  1,
		},
		{
			name:       "no free tier never mutates",
			inGuild:    false,
			hasFree:    false,
			wantStatus: services.AddStatusUnknown,
		},
		{
			name:       "in guild without free tier never mutates",
			inGuild:    true,
			hasFree:    false,
			wantStatus: services.AddStatusUnknown,
		},
		{
			name:       "failed add skips the role grant",
			hasFree:    true,
			addStatus:  services.AddStatusFailed,
			wantStatus: services.AddStatusFailed,
			wantAdds:   1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			discord := &ttest.FakeDiscord{AddStatus: tc.addStatus}
			h := newTestHandlers(t, discord, &ttest.FakePatreon{}, nil)

			status, err := h.reconcile(context.Background(), reconcileInput{
				InTargetGuild:     tc.inGuild,
				HasFreeMembership: tc.hasFree,
				UserID:            "100",
				AccessToken:       "tok",
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tc.wantStatus {
				t.Errorf("expected status %s, got %s", tc.wantStatus, status)
			}
			if discord.AddCalls != tc.wantAdds {
				t.Errorf("expected %d add calls, got %d", tc.wantAdds, discord.AddCalls)
			}
			if discord.RoleCalls != tc.wantRoles {
				t.Errorf("expected %d role calls, got %d", tc.wantRoles, discord.RoleCalls)
			}
		})
	}

	t.Run("Transport Error Surfaces", func(t *testing.T) {
		discord := &ttest.FakeDiscord{AddErr: errors.New("connection refused")}
		h := newTestHandlers(t, discord, &ttest.FakePatreon{}, nil)

		_, err := h.reconcile(context.Background(), reconcileInput{HasFreeMembership: true, UserID: "100"})
		if err == nil {
			t.Fatal("expected transport error")
		}
	})

	t.Run("Non 204 Role Grant Is Not An Error", func(t *testing.T) {
		discord := &ttest.FakeDiscord{RoleStatus: 403}
		h := newTestHandlers(t, discord, &ttest.FakePatreon{}, nil)

		_, err := h.reconcile(context.Background(), reconcileInput{
			InTargetGuild:     true,
			HasFreeMembership: true,
			UserID:            "100",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
