// Package memory provides an in-memory record store for local development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/challengesync/internal/domain"
)

// Store keeps all records in process memory. It implements every domain
// store interface and is safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	users          map[string]struct{}
	samples        []domain.RawSample
	challenges     map[string]domain.Challenge
	participations []domain.Participation
	activities     map[string]domain.DailyActivity
	totals         map[string]domain.ParticipantTotals
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]struct{}),
		challenges: make(map[string]domain.Challenge),
		activities: make(map[string]domain.DailyActivity),
		totals:     make(map[string]domain.ParticipantTotals),
	}
}

// Stores returns the store wired into the domain.Stores bundle.
func (s *Store) Stores() domain.Stores {
	return domain.Stores{
		Users:        s,
		Samples:      s,
		Challenges:   s,
		Activities:   s,
		Participants: s,
	}
}

// AddUser registers a user.
func (s *Store) AddUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
}

// AddChallenge registers a challenge.
func (s *Store) AddChallenge(challenge domain.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.ID] = challenge
}

// AddParticipation links a user to a challenge with zeroed totals.
func (s *Store) AddParticipation(challengeID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations = append(s.participations, domain.Participation{ChallengeID: challengeID, UserID: userID})
	s.totals[challengeID+"|"+userID] = domain.ParticipantTotals{ChallengeID: challengeID, UserID: userID}
}

// UserExists implements domain.UserStore.
func (s *Store) UserExists(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

// SampleExists implements domain.SampleStore.
func (s *Store) SampleExists(_ context.Context, userID string, mt domain.MeasurementType, start, end time.Time, value float64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sample := range s.samples {
		if sample.UserID == userID && sample.Type == mt && sample.StartTime.Equal(start) && sample.EndTime.Equal(end) && sample.Value == value {
			return true, nil
		}
	}
	return false, nil
}

// InsertSample implements domain.SampleStore.
func (s *Store) InsertSample(_ context.Context, sample domain.RawSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
	return nil
}

// Samples returns a copy of all stored samples.
func (s *Store) Samples() []domain.RawSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RawSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// ListSamples implements domain.SampleStore.
func (s *Store) ListSamples(_ context.Context, userID string, mt domain.MeasurementType, from, to time.Time) ([]domain.RawSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RawSample
	for _, sample := range s.samples {
		if sample.UserID != userID || sample.Type != mt {
			continue
		}
		if sample.StartTime.Before(from) || sample.EndTime.After(to) {
			continue
		}
		out = append(out, sample)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// ActiveChallengesForUser implements domain.ChallengeStore.
func (s *Store) ActiveChallengesForUser(_ context.Context, userID string) ([]domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Challenge
	for _, p := range s.participations {
		if p.UserID != userID {
			continue
		}
		challenge, ok := s.challenges[p.ChallengeID]
		if !ok || challenge.Status != domain.ChallengeStatusActive {
			continue
		}
		out = append(out, challenge)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func activityKey(challengeID, userID, day string) string {
	return challengeID + "|" + userID + "|" + day
}

// FindActivityByDay implements domain.ActivityStore.
func (s *Store) FindActivityByDay(_ context.Context, challengeID, userID, day string) (*domain.DailyActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if activity, ok := s.activities[activityKey(challengeID, userID, day)]; ok {
		copied := activity
		return &copied, nil
	}
	return nil, nil
}

// InsertActivity implements domain.ActivityStore.
func (s *Store) InsertActivity(_ context.Context, activity domain.DailyActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activityKey(activity.ChallengeID, activity.UserID, activity.ActivityDate)] = activity
	return nil
}

// UpdateActivitySteps implements domain.ActivityStore.
func (s *Store) UpdateActivitySteps(_ context.Context, activity domain.DailyActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := activityKey(activity.ChallengeID, activity.UserID, activity.ActivityDate)
	stored, ok := s.activities[key]
	if !ok {
		return nil
	}
	stored.Steps = activity.Steps
	stored.Source = activity.Source
	stored.UpdatedAt = activity.UpdatedAt
	s.activities[key] = stored
	return nil
}

// ListActivities implements domain.ActivityStore.
func (s *Store) ListActivities(_ context.Context, challengeID, userID string) ([]domain.DailyActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DailyActivity
	for _, activity := range s.activities {
		if activity.ChallengeID == challengeID && activity.UserID == userID {
			out = append(out, activity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityDate < out[j].ActivityDate })
	return out, nil
}

// UpdateTotals implements domain.ParticipantStore.
func (s *Store) UpdateTotals(_ context.Context, totals domain.ParticipantTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[totals.ChallengeID+"|"+totals.UserID] = totals
	return nil
}

// TotalsFor returns the stored totals for one participant, if any.
func (s *Store) TotalsFor(challengeID, userID string) (domain.ParticipantTotals, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals, ok := s.totals[challengeID+"|"+userID]
	return totals, ok
}

// ListTotalsByChallenge implements domain.ParticipantStore.
func (s *Store) ListTotalsByChallenge(_ context.Context, challengeID string) ([]domain.ParticipantTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ParticipantTotals
	for _, totals := range s.totals {
		if totals.ChallengeID == challengeID {
			out = append(out, totals)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSteps != out[j].TotalSteps {
			return out[i].TotalSteps > out[j].TotalSteps
		}
		if out[i].TotalMiles != out[j].TotalMiles {
			return out[i].TotalMiles > out[j].TotalMiles
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}
