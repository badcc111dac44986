// server/internal/provenance/location.go
package provenance

import "strings"

// ParseLocation splits a harvest's free-text location into city and state.
// Text with a comma is split on the first comma ("Lagos, Lagos State" ->
// city "Lagos", state "Lagos State"); otherwise the whole string is the city
// and the state falls back to defaultState.
func ParseLocation(text, defaultState string) (city, state string) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ","); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	return text, defaultState
}
