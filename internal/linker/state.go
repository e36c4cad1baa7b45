package linker

import (
	"fmt"
	"strings"

	"github.com/aikosys/patronlink/internal/shared"
)

// compositeStateDelimiter separates the correlation token from the Discord
// authorization code inside the Patreon leg's state parameter.
//
// Discord authorization codes are URL-safe strings without spaces; that is an
// upstream convention rather than a documented guarantee, so parsing only
// requires the delimiter to be present, it does not validate either side's
// alphabet.
const compositeStateDelimiter = " "

// CompositeState carries the correlation token and the Discord authorization
// code through the Patreon authorization leg, which offers no channel for a
// second value besides its own state parameter.
type CompositeState struct {
	Correlation string
	DiscordCode string
}

// Encode joins the two values with the delimiter for use as Patreon's state
// parameter.
func (s CompositeState) Encode() string {
	return s.Correlation + compositeStateDelimiter + s.DiscordCode
}

// ParseCompositeState splits a combined state value on the first delimiter.
// Fails when the delimiter is absent; both sides may be empty strings, which
// the provider callbacks reject separately.
func ParseCompositeState(raw string) (CompositeState, error) {
	correlation, code, found := strings.Cut(raw, compositeStateDelimiter)
	if !found {
		return CompositeState{}, fmt.Errorf("%w: missing delimiter", shared.ErrMalformedState)
	}
	return CompositeState{Correlation: correlation, DiscordCode: code}, nil
}
