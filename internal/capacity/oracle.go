// internal/capacity/oracle.go
package capacity

import (
	"time"

	"github.com/unclebandit/hyperdrip/internal/repository"
)

// Oracle answers "how many sends have been attributed to day D so
// far?" by consulting the lead store's last_sent_at column. It counts
// completed advances only, not queued-but-unsent entries, which is
// why the scheduler's forward estimate is optimistic: queue entries
// can exist for a day that never advances.
type Oracle struct {
	LeadRepo repository.LeadRepositoryInterface
}

// Used returns the number of leads whose last_sent_at falls within
// the civil day containing day, in UTC.
func (o *Oracle) Used(day time.Time) (int, error) {
	start := civilDayStart(day)
	end := start.Add(24 * time.Hour)
	return o.LeadRepo.CountSentBetween(start, end)
}

// civilDayStart truncates t to midnight UTC of its calendar day.
func civilDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
