package tts

import (
	"fmt"
	"regexp"
)

// Prosody patterns follow the Microsoft speech service documentation: rate and
// volume are a signed integer percentage, pitch a signed integer in Hz.
var (
	ratePattern   = regexp.MustCompile(`^[+-]\d+%$`)
	volumePattern = regexp.MustCompile(`^[+-]\d+%$`)
	pitchPattern  = regexp.MustCompile(`^[+-]\d+Hz$`)
)

// ProsodyError reports a prosody parameter that does not match the required
// syntax.
type ProsodyError struct {
	Param   string
	Value   string
	Example string
}

func (e *ProsodyError) Error() string {
	return fmt.Sprintf("invalid %s %q: expected form like %s", e.Param, e.Value, e.Example)
}

// ValidateProsody checks rate, volume and pitch against the required
// patterns. It is pure and runs before any connection is attempted, so a bad
// parameter never reaches the service.
func ValidateProsody(rate, volume, pitch string) error {
	if !ratePattern.MatchString(rate) {
		return &ProsodyError{Param: "rate", Value: rate, Example: "+10% or -15%"}
	}
	if !volumePattern.MatchString(volume) {
		return &ProsodyError{Param: "volume", Value: volume, Example: "+20% or -10%"}
	}
	if !pitchPattern.MatchString(pitch) {
		return &ProsodyError{Param: "pitch", Value: pitch, Example: "+5Hz or -2Hz"}
	}
	return nil
}
