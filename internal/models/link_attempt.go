package models

import (
	"fmt"
	"time"
)

// LinkAttempt records the outcome of one completed (or failed) linking run.
//
// The linking protocol itself is stateless; attempts are written after the
// finish step purely for operator visibility. User ids may be empty when the
// run failed before the corresponding identity was resolved.
type LinkAttempt struct {
	id            string
	sequence      int
	discordUserID string
	patreonUserID string
	outcome       string
	createdAt     time.Time
	updatedAt     time.Time
}

// NewLinkAttempt creates a link attempt with the given sequence and resolved
// identities. The ID is assigned by the repository on Create.
func NewLinkAttempt(sequence int, discordUserID, patreonUserID, outcome string) *LinkAttempt {
	now := time.Now()
	return &LinkAttempt{
		sequence:      sequence,
		discordUserID: discordUserID,
		patreonUserID: patreonUserID,
		outcome:       outcome,
		createdAt:     now,
		updatedAt:     now,
	}
}

func (a *LinkAttempt) ID() string            { return a.id }
func (a *LinkAttempt) Sequence() int         { return a.sequence }
func (a *LinkAttempt) DiscordUserID() string { return a.discordUserID }
func (a *LinkAttempt) PatreonUserID() string { return a.patreonUserID }
func (a *LinkAttempt) Outcome() string       { return a.outcome }
func (a *LinkAttempt) CreatedAt() time.Time  { return a.createdAt }
func (a *LinkAttempt) UpdatedAt() time.Time  { return a.updatedAt }

func (a *LinkAttempt) SetID(id string)           { a.id = id }
func (a *LinkAttempt) SetSequence(seq int)       { a.sequence = seq }
func (a *LinkAttempt) SetCreatedAt(t time.Time)  { a.createdAt = t }
func (a *LinkAttempt) SetUpdatedAt(t time.Time)  { a.updatedAt = t }
func (a *LinkAttempt) SetOutcome(outcome string) { a.outcome = outcome }

// Validate checks that the attempt has an id and an outcome classification.
func (a *LinkAttempt) Validate() error {
	if a.id == "" {
		return fmt.Errorf("link attempt missing id")
	}
	if a.outcome == "" {
		return fmt.Errorf("link attempt missing outcome")
	}
	return nil
}
