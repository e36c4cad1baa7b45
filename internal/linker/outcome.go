package linker

import "github.com/aikosys/patronlink/internal/services"

// OperationState classifies the terminal result of one linking run.
type OperationState string

const (
	// StateNotStarted means the finish endpoint was hit without the full
	// parameter set, so the pipeline never ran.
	StateNotStarted OperationState = "not_started"
	// StateRolePatch means the user was already in the guild and their role
	// was refreshed.
	StateRolePatch OperationState = "role_patch"
	// StateGuildAdd means the user was added to the guild (or the add call
	// found them already there).
	StateGuildAdd OperationState = "guild_add"
	// StateFailure means the run completed but the user did not qualify or a
	// provider call was rejected.
	StateFailure OperationState = "failure"
	// StateCatastrophic means an unexpected error aborted the pipeline.
	StateCatastrophic OperationState = "catastrophic"
)

// Classify maps the resolved facts of a finished run to its terminal state.
//
// Role patch wins when the user was already in the guild with a qualifying
// membership; guild add covers the add path (including the races where the
// add call reports the user beat us into the guild); everything else is a
// failure.
func Classify(inTargetGuild, hasFreeMembership bool, addStatus services.AddStatus) OperationState {
	switch {
	case inTargetGuild && hasFreeMembership:
		return StateRolePatch
	case hasFreeMembership && (addStatus == services.AddStatusAdded || addStatus == services.AddStatusAlreadyMember):
		return StateGuildAdd
	default:
		return StateFailure
	}
}
