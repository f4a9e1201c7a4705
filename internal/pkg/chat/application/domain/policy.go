package chat

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RetentionPolicy groups the lifecycle durations that were previously only
// inferable from notice strings. All three are configuration, not constants.
type RetentionPolicy struct {
	// ParticipantWindow is how long a closed conversation stays visible to
	// its vendor/customer participants.
	ParticipantWindow time.Duration
	// AdminWindow is how long a closed conversation stays visible to admins
	// before the purger deletes it. Must exceed ParticipantWindow.
	AdminWindow time.Duration
	// AutoCloseAfter closes a conversation with no activity for this long.
	// Zero disables inactivity-based closing; explicit closes still work.
	AutoCloseAfter time.Duration
}

// DefaultRetentionPolicy returns the platform defaults: 7 days participant
// visibility, 30 days admin retention, 14 days inactivity auto-close.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		ParticipantWindow: 7 * 24 * time.Hour,
		AdminWindow:       30 * 24 * time.Hour,
		AutoCloseAfter:    14 * 24 * time.Hour,
	}
}

// PolicyFromEnv builds a policy from CHAT_PARTICIPANT_RETENTION_DAYS,
// CHAT_ADMIN_RETENTION_DAYS and CHAT_AUTOCLOSE_INACTIVITY_DAYS, falling back
// to defaults for unset or unparsable values.
func PolicyFromEnv() (RetentionPolicy, error) {
	p := DefaultRetentionPolicy()
	if d, ok := daysEnv("CHAT_PARTICIPANT_RETENTION_DAYS"); ok {
		p.ParticipantWindow = d
	}
	if d, ok := daysEnv("CHAT_ADMIN_RETENTION_DAYS"); ok {
		p.AdminWindow = d
	}
	if d, ok := daysEnv("CHAT_AUTOCLOSE_INACTIVITY_DAYS"); ok {
		p.AutoCloseAfter = d
	}
	if err := p.Validate(); err != nil {
		return RetentionPolicy{}, err
	}
	return p, nil
}

// Validate rejects window combinations the closure rules cannot express.
func (p RetentionPolicy) Validate() error {
	if p.ParticipantWindow < 24*time.Hour {
		return fmt.Errorf("retention policy: participant window %s is below one day", p.ParticipantWindow)
	}
	if p.AdminWindow <= p.ParticipantWindow {
		return fmt.Errorf("retention policy: admin window %s must exceed participant window %s", p.AdminWindow, p.ParticipantWindow)
	}
	if p.AutoCloseAfter < 0 {
		return fmt.Errorf("retention policy: negative auto-close threshold %s", p.AutoCloseAfter)
	}
	return nil
}

// ParticipantDays is the participant window in whole days, for notices.
func (p RetentionPolicy) ParticipantDays() int {
	return int(p.ParticipantWindow / (24 * time.Hour))
}

// PurgeCutoff returns the instant before which closed conversations are past
// the admin retention window and eligible for deletion.
func (p RetentionPolicy) PurgeCutoff(now time.Time) time.Time {
	return now.Add(-p.AdminWindow)
}

func daysEnv(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * 24 * time.Hour, true
}
