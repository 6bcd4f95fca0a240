package identity

import (
	"strings"

	"github.com/mileusna/useragent"
)

// NewMileusna classifies user agents with mileusna/useragent. A missing
// user agent counts as a bot; browsers always send one.
func NewMileusna() IsCrawler {
	return func(ua string) bool {
		if strings.TrimSpace(ua) == "" {
			return true
		}

		return useragent.Parse(ua).Bot
	}
}
