package domain

import "time"

// ChallengeStatus tracks the lifecycle of a group challenge.
type ChallengeStatus string

const (
	ChallengeStatusUpcoming  ChallengeStatus = "upcoming"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// Challenge is read-only input to the sync pipeline. Lifecycle management
// lives elsewhere.
type Challenge struct {
	ID           string
	Name         string
	ActivityType string
	Status       ChallengeStatus
	StartDate    time.Time
	EndDate      time.Time
}

// Participation links a user to a challenge they joined.
type Participation struct {
	ChallengeID string
	UserID      string
}

// DailyActivity is the single merge point across providers: at most one row
// exists per (challenge, user, activity date), and its step count never
// decreases once written.
type DailyActivity struct {
	ID          string
	ChallengeID string
	UserID      string
	// ActivityDate is a calendar day in YYYY-MM-DD form so that string
	// ordering matches chronological ordering.
	ActivityDate string
	Distance     float64
	DurationMin  int
	Steps        int
	Source       string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParticipantTotals is a projection over a participant's daily activities.
// It is recomputed wholesale and is never a source of truth.
type ParticipantTotals struct {
	ChallengeID      string
	UserID           string
	TotalMiles       float64
	TotalDuration    int
	TotalSteps       int
	ActivityCount    int
	LastActivityDate *string
}
