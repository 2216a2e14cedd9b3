package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRe = regexp.MustCompile(`^(\d{1,3}):([0-5]?\d)(?::([0-5]?\d))?$`)

// Duration parses an HH:MM:SS (or HH:MM) clock-style span such as "02:30:00".
// Hours may exceed 23; minutes and seconds must be below 60.
func Duration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unable to parse duration %q: expected HH:MM:SS", raw)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds := 0
	if m[3] != "" {
		seconds, _ = strconv.Atoi(m[3])
	}

	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", raw)
	}
	return d, nil
}
