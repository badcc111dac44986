// server/internal/provenance/location_test.go
package provenance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		city  string
		state string
	}{
		{"city and state", "Lagos, Lagos State", "Lagos", "Lagos State"},
		{"city only falls back", "Abuja", "Abuja", "Nigeria"},
		{"whitespace trimmed", "  Kano ,  Kano State  ", "Kano", "Kano State"},
		{"splits on first comma", "Ikeja, Lagos, Nigeria", "Ikeja", "Lagos, Nigeria"},
		{"empty text", "", "", "Nigeria"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, state := ParseLocation(tt.text, "Nigeria")
			require.Equal(t, tt.city, city)
			require.Equal(t, tt.state, state)
		})
	}
}
