package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  time.Duration
		expectErr bool
	}{
		{name: "Standard Case", raw: "02:00:00", expected: 2 * time.Hour},
		{name: "Minutes and seconds", raw: "01:30:15", expected: time.Hour + 30*time.Minute + 15*time.Second},
		{name: "Without seconds", raw: "00:45", expected: 45 * time.Minute},
		{name: "Single digit fields", raw: "3:5:7", expected: 3*time.Hour + 5*time.Minute + 7*time.Second},
		{name: "Long job", raw: "48:00:00", expected: 48 * time.Hour},
		{name: "Surrounding spaces", raw: "  04:00:00 ", expected: 4 * time.Hour},
		{name: "Empty", raw: "", expectErr: true},
		{name: "Words", raw: "dos horas", expectErr: true},
		{name: "Minutes overflow", raw: "01:75:00", expectErr: true},
		{name: "Go duration syntax", raw: "2h", expectErr: true},
		{name: "Zero", raw: "00:00:00", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Duration(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, d)
			}
		})
	}
}
