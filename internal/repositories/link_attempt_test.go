package repositories

import (
	"database/sql"
	"testing"

	"github.com/aikosys/patronlink/internal/models"
	"github.com/aikosys/patronlink/internal/shared"
)

func newTestRepository(t *testing.T) (*LinkAttemptRepository, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewLinkAttemptRepository(db), db
}

func TestLinkAttemptRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(0, "discord-1", "patreon-1", "role_patch")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		if attempt.ID() == "" {
			t.Error("expected generated id")
		}
		if attempt.Sequence() != 1 {
			t.Errorf("expected first sequence 1, got %d", attempt.Sequence())
		}
	})

	t.Run("Create Rejects Missing Outcome", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(0, "discord-1", "patreon-1", "")
		if err := repo.Create(attempt); err == nil {
			t.Error("expected validation error for empty outcome")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(0, "discord-1", "patreon-1", "guild_add")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		found, err := repo.Get(attempt.ID())
		if err != nil {
			t.Fatalf("failed to get attempt: %v", err)
		}
		if found.DiscordUserID() != "discord-1" || found.Outcome() != "guild_add" {
			t.Errorf("unexpected attempt %s/%s", found.DiscordUserID(), found.Outcome())
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		if _, err := repo.Get("nope"); err == nil {
			t.Error("expected error for unknown id")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(0, "discord-1", "patreon-1", "catastrophic")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		attempt.SetOutcome("guild_add")
		if err := repo.Update(attempt); err != nil {
			t.Fatalf("failed to update attempt: %v", err)
		}

		found, err := repo.Get(attempt.ID())
		if err != nil {
			t.Fatalf("failed to reload attempt: %v", err)
		}
		if found.Outcome() != "guild_add" {
			t.Errorf("expected updated outcome, got %s", found.Outcome())
		}
	})

	t.Run("Update Missing", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(1, "discord-1", "patreon-1", "failure")
		attempt.SetID("missing")
		if err := repo.Update(attempt); err == nil {
			t.Error("expected error updating unknown attempt")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		attempt := models.NewLinkAttempt(0, "discord-1", "patreon-1", "failure")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		if err := repo.Delete(attempt.ID()); err != nil {
			t.Fatalf("failed to delete attempt: %v", err)
		}
		if _, err := repo.Get(attempt.ID()); err == nil {
			t.Error("expected attempt gone after delete")
		}
		if err := repo.Delete(attempt.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		seed := []struct {
			discordUserID string
			outcome       string
		}{
			{"discord-1", "role_patch"},
			{"discord-2", "guild_add"},
			{"discord-1", "failure"},
		}
		for _, s := range seed {
			if err := repo.Create(models.NewLinkAttempt(0, s.discordUserID, "patreon-1", s.outcome)); err != nil {
				t.Fatalf("failed to seed attempt: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(all))
		}
		if all[0].Outcome() != "failure" {
			t.Errorf("expected newest first, got %s", all[0].Outcome())
		}

		byUser, err := repo.List(map[string]any{"discord_user_id": "discord-1"})
		if err != nil {
			t.Fatalf("failed to filter attempts: %v", err)
		}
		if len(byUser) != 2 {
			t.Errorf("expected 2 attempts for discord-1, got %d", len(byUser))
		}

		byBoth, err := repo.List(map[string]any{"discord_user_id": "discord-1", "outcome": "role_patch"})
		if err != nil {
			t.Fatalf("failed to filter attempts: %v", err)
		}
		if len(byBoth) != 1 {
			t.Errorf("expected 1 attempt for combined filter, got %d", len(byBoth))
		}
	})

	t.Run("Sequence Increments", func(t *testing.T) {
		repo, _ := newTestRepository(t)

		first := models.NewLinkAttempt(0, "a", "b", "failure")
		second := models.NewLinkAttempt(0, "c", "d", "failure")
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create first: %v", err)
		}
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second: %v", err)
		}

		if second.Sequence() != first.Sequence()+1 {
			t.Errorf("expected sequence to increment, got %d then %d", first.Sequence(), second.Sequence())
		}
	})
}
