package outbox

const activityReconciledSchema = `{
  "type": "object",
  "title": "ActivityReconciled",
  "properties": {
    "activity_id": {"type": "string"},
    "challenge_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_date": {"type": "string", "format": "date"},
    "steps": {"type": "integer"},
    "source": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "challenge_id", "user_id", "activity_date", "steps", "source", "occurred_at"],
  "additionalProperties": false
}`

const standingsUpdatedSchema = `{
  "type": "object",
  "title": "StandingsUpdated",
  "properties": {
    "challenge_id": {"type": "string"},
    "user_id": {"type": "string"},
    "total_steps": {"type": "integer"},
    "total_miles": {"type": "number"},
    "total_duration": {"type": "integer"},
    "activity_count": {"type": "integer"},
    "last_activity_date": {"type": "string", "format": "date"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "user_id", "total_steps", "total_miles", "total_duration", "activity_count", "occurred_at"],
  "additionalProperties": false
}`
