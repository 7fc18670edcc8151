// Package postgres provides the pgx-backed record store for the sync
// pipeline.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/challengesync/internal/domain"
	"example.com/challengesync/internal/events"
)

// Repository implements the domain store interfaces plus transactional
// outbox recording for downstream event delivery.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Stores returns the repository wired into the domain.Stores bundle.
func (r *Repository) Stores() domain.Stores {
	return domain.Stores{
		Users:        r,
		Samples:      r,
		Challenges:   r,
		Activities:   r,
		Participants: r,
	}
}

// UserExists implements domain.UserStore.
func (r *Repository) UserExists(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE user_id=$1`

	var one int
	err := r.pool.QueryRow(ctx, query, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SampleExists implements the dedup check of domain.SampleStore. The match
// is exact on all five identity fields; partially overlapping samples are
// treated as distinct.
func (r *Repository) SampleExists(ctx context.Context, userID string, mt domain.MeasurementType, start, end time.Time, value float64) (bool, error) {
	const query = `SELECT 1 FROM health_samples
        WHERE user_id=$1 AND measurement_type=$2 AND start_time=$3 AND end_time=$4 AND value=$5`

	var one int
	err := r.pool.QueryRow(ctx, query, userID, string(mt), start, end, value).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertSample implements domain.SampleStore.
func (r *Repository) InsertSample(ctx context.Context, sample domain.RawSample) error {
	const stmt = `INSERT INTO health_samples (sample_id, user_id, measurement_type, value, unit, source_name, start_time, end_time, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.pool.Exec(ctx, stmt,
		sample.ID,
		sample.UserID,
		string(sample.Type),
		sample.Value,
		sample.Unit,
		sample.SourceName,
		sample.StartTime,
		sample.EndTime,
		sample.CreatedAt,
	)
	return err
}

// ListSamples implements domain.SampleStore.
func (r *Repository) ListSamples(ctx context.Context, userID string, mt domain.MeasurementType, from, to time.Time) ([]domain.RawSample, error) {
	const query = `SELECT sample_id, user_id, measurement_type, value, unit, source_name, start_time, end_time, created_at
        FROM health_samples
        WHERE user_id=$1 AND measurement_type=$2 AND start_time >= $3 AND end_time <= $4
        ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, userID, string(mt), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.RawSample
	for rows.Next() {
		var s domain.RawSample
		var measurement string
		if err := rows.Scan(&s.ID, &s.UserID, &measurement, &s.Value, &s.Unit, &s.SourceName, &s.StartTime, &s.EndTime, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Type = domain.MeasurementType(measurement)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// ActiveChallengesForUser implements domain.ChallengeStore.
func (r *Repository) ActiveChallengesForUser(ctx context.Context, userID string) ([]domain.Challenge, error) {
	const query = `SELECT c.challenge_id, c.name, c.activity_type, c.status, c.start_date, c.end_date
        FROM challenges c
        JOIN challenge_participants p ON p.challenge_id = c.challenge_id
        WHERE p.user_id=$1 AND c.status=$2
        ORDER BY c.start_date`

	rows, err := r.pool.Query(ctx, query, userID, string(domain.ChallengeStatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		var c domain.Challenge
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &c.ActivityType, &status, &c.StartDate, &c.EndDate); err != nil {
			return nil, err
		}
		c.Status = domain.ChallengeStatus(status)
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

// FindActivityByDay implements domain.ActivityStore. A nil result without
// error means no row exists for the day.
func (r *Repository) FindActivityByDay(ctx context.Context, challengeID, userID, day string) (*domain.DailyActivity, error) {
	const query = `SELECT activity_id, challenge_id, user_id, to_char(activity_date, 'YYYY-MM-DD'), distance, duration_min, steps, source, notes, created_at, updated_at
        FROM challenge_activities
        WHERE challenge_id=$1 AND user_id=$2 AND activity_date=$3`

	row := r.pool.QueryRow(ctx, query, challengeID, userID, day)
	var a domain.DailyActivity
	if err := row.Scan(&a.ID, &a.ChallengeID, &a.UserID, &a.ActivityDate, &a.Distance, &a.DurationMin, &a.Steps, &a.Source, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// InsertActivity implements domain.ActivityStore. The row insert and the
// activity.reconciled outbox record share one transaction.
func (r *Repository) InsertActivity(ctx context.Context, activity domain.DailyActivity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO challenge_activities (activity_id, challenge_id, user_id, activity_date, distance, duration_min, steps, source, notes, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	if _, err = tx.Exec(ctx, stmt,
		activity.ID,
		activity.ChallengeID,
		activity.UserID,
		activity.ActivityDate,
		activity.Distance,
		activity.DurationMin,
		activity.Steps,
		activity.Source,
		activity.Notes,
		activity.CreatedAt,
		activity.UpdatedAt,
	); err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "activity.reconciled", activity.ChallengeID+":"+activity.UserID, "daily_activity", activity.ID, reconciledEvent(activity)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateActivitySteps implements domain.ActivityStore. Only steps, source,
// and the update timestamp change; distance and duration are owned by the
// manual submission path.
func (r *Repository) UpdateActivitySteps(ctx context.Context, activity domain.DailyActivity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `UPDATE challenge_activities SET steps=$2, source=$3, updated_at=$4 WHERE activity_id=$1`

	tag, err := tx.Exec(ctx, stmt, activity.ID, activity.Steps, activity.Source, activity.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("activity %s not found", activity.ID)
	}

	if err = insertOutbox(ctx, tx, "activity.reconciled", activity.ChallengeID+":"+activity.UserID, "daily_activity", activity.ID, reconciledEvent(activity)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListActivities implements domain.ActivityStore.
func (r *Repository) ListActivities(ctx context.Context, challengeID, userID string) ([]domain.DailyActivity, error) {
	const query = `SELECT activity_id, challenge_id, user_id, to_char(activity_date, 'YYYY-MM-DD'), distance, duration_min, steps, source, notes, created_at, updated_at
        FROM challenge_activities
        WHERE challenge_id=$1 AND user_id=$2
        ORDER BY activity_date`

	rows, err := r.pool.Query(ctx, query, challengeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.DailyActivity
	for rows.Next() {
		var a domain.DailyActivity
		if err := rows.Scan(&a.ID, &a.ChallengeID, &a.UserID, &a.ActivityDate, &a.Distance, &a.DurationMin, &a.Steps, &a.Source, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// UpdateTotals implements domain.ParticipantStore with a full replace of
// the totals columns, paired with a standings.updated outbox record.
func (r *Repository) UpdateTotals(ctx context.Context, totals domain.ParticipantTotals) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `UPDATE challenge_participants
        SET total_miles=$3, total_duration=$4, total_steps=$5, activity_count=$6, last_activity_date=$7
        WHERE challenge_id=$1 AND user_id=$2`

	tag, err := tx.Exec(ctx, stmt,
		totals.ChallengeID,
		totals.UserID,
		totals.TotalMiles,
		totals.TotalDuration,
		totals.TotalSteps,
		totals.ActivityCount,
		totals.LastActivityDate,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participation (%s, %s) not found", totals.ChallengeID, totals.UserID)
	}

	event := events.StandingsUpdated{
		ChallengeID:      totals.ChallengeID,
		UserID:           totals.UserID,
		TotalSteps:       totals.TotalSteps,
		TotalMiles:       totals.TotalMiles,
		TotalDuration:    totals.TotalDuration,
		ActivityCount:    totals.ActivityCount,
		LastActivityDate: totals.LastActivityDate,
		OccurredAt:       time.Now().UTC(),
	}
	if err = insertOutbox(ctx, tx, "standings.updated", totals.ChallengeID+":"+totals.UserID, "participant_totals", totals.ChallengeID+":"+totals.UserID, event); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListTotalsByChallenge implements domain.ParticipantStore, ordered as a
// leaderboard.
func (r *Repository) ListTotalsByChallenge(ctx context.Context, challengeID string) ([]domain.ParticipantTotals, error) {
	const query = `SELECT challenge_id, user_id, total_miles, total_duration, total_steps, activity_count, to_char(last_activity_date, 'YYYY-MM-DD')
        FROM challenge_participants
        WHERE challenge_id=$1
        ORDER BY total_steps DESC, total_miles DESC, user_id`

	rows, err := r.pool.Query(ctx, query, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.ParticipantTotals
	for rows.Next() {
		var t domain.ParticipantTotals
		if err := rows.Scan(&t.ChallengeID, &t.UserID, &t.TotalMiles, &t.TotalDuration, &t.TotalSteps, &t.ActivityCount, &t.LastActivityDate); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func reconciledEvent(activity domain.DailyActivity) events.ActivityReconciled {
	return events.ActivityReconciled{
		ActivityID:   activity.ID,
		ChallengeID:  activity.ChallengeID,
		UserID:       activity.UserID,
		ActivityDate: activity.ActivityDate,
		Steps:        activity.Steps,
		Source:       activity.Source,
		OccurredAt:   activity.UpdatedAt,
	}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, eventType, partitionKey, aggregateType, aggregateID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s:%d", aggregateID, eventType, time.Now().UnixNano())

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"activity.reconciled": {
		Topic:         "challenge_activity_events",
		SchemaSubject: "challenge_activity_events-value",
	},
	"standings.updated": {
		Topic:         "challenge_standings",
		SchemaSubject: "challenge_standings-value",
	},
}
