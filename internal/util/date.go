package util

import (
	"time"

	"desorientado_backend/internal/progress"

	"github.com/gin-gonic/gin"
)

// RequestDate resolves the learner's calendar date for this request: the
// X-Local-Date header when present, else the server clock in the
// X-Timezone zone, else in fallback. A malformed X-Local-Date is an error;
// an unknown zone is ignored.
func RequestDate(c *gin.Context, now time.Time, fallback *time.Location) (string, error) {
	if d := c.GetHeader(HeaderLocalDate); d != "" {
		if _, err := progress.ParseDate(d); err != nil {
			return "", err
		}
		return d, nil
	}

	loc := fallback
	if tz := c.GetHeader(HeaderTimezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	if loc == nil {
		loc = time.Local
	}
	return progress.Today(now, loc), nil
}
