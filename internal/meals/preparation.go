package meals

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ParsePreparationTime parses an ISO-8601 duration such as "PT1H30M".
func ParsePreparationTime(s string) (time.Duration, error) {
	d, err := duration.Parse(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid preparationTime %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}

// preparationMinutes returns nil for an empty or unparsable value.
func preparationMinutes(s string) *int {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := ParsePreparationTime(s)
	if err != nil {
		return nil
	}
	m := int(math.Round(d.Minutes()))
	return &m
}

func validatePreparationTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := ParsePreparationTime(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("preparationTime must not be negative")
	}
	return nil
}
