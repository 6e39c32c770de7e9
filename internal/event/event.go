package event

// Versioned event names. The version prefix is part of the name: a payload
// shape change requires a new name, never a silent reinterpretation of an
// existing one.
const (
	NameCategoryCreated = "v1.CategoryCreated"
	NameCategoryUpdated = "v1.CategoryUpdated"
	NameCategoryDeleted = "v1.CategoryDeleted"

	NameActivityCreated    = "v1.ActivityCreated"
	NameActivityUpdated    = "v1.ActivityUpdated"
	NameActivityArchived   = "v1.ActivityArchived"
	NameActivityUnarchived = "v1.ActivityUnarchived"
	NameActivityDeleted    = "v1.ActivityDeleted"

	NameActivityCategoryLinked   = "v1.ActivityCategoryLinked"
	NameActivityCategoryUnlinked = "v1.ActivityCategoryUnlinked"

	NameTimeSessionStarted = "v1.TimeSessionStarted"
	NameTimeSessionStopped = "v1.TimeSessionStopped"
	NameTimeSessionUpdated = "v1.TimeSessionUpdated"
	NameTimeSessionDeleted = "v1.TimeSessionDeleted"
	NameTimeSessionCreated = "v1.TimeSessionCreated"

	NameUIStateSet = "v1.UiStateSet"
)

// Filter combination modes for the category filter stored in UI state.
const (
	FilterModeOR  = "OR"
	FilterModeAND = "AND"
)

// Payload is a sealed interface over all event payload kinds.
//
// Only types in this package implement it. The marker method prevents
// external implementations and lets the materializer use an exhaustive
// type switch: adding an event kind is a compile-time-checked change.
type Payload interface {
	// EventName returns the versioned wire name of the payload kind.
	EventName() string

	// Synced reports whether the event is replicated to the authority.
	// UIStateSet is device-local and never leaves the session.
	Synced() bool

	// Validate checks the payload shape. A non-empty result means the
	// event must be rejected before append (SchemaViolationError).
	Validate() []FieldError

	payload() // Marker method - seals the interface to this package.
}

// Event is the envelope committed to a store's log: a globally unique id
// plus the typed payload. The id is what makes retransmission idempotent -
// a log never holds two events with the same id.
type Event struct {
	ID      string
	Payload Payload
}

// CategoryCreated creates a category row.
type CategoryCreated struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
	UserID string `json:"userId"`
}

// CategoryUpdated patches a category row. Absent fields are untouched.
type CategoryUpdated struct {
	ID    string        `json:"id"`
	Name  Field[string] `json:"name,omitzero"`
	Color Field[string] `json:"color,omitzero"`
	Icon  Field[string] `json:"icon,omitzero"`
}

// CategoryDeleted soft-deletes a category row.
type CategoryDeleted struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

// ActivityCreated creates an activity row. CategoryIDs travels with the
// event for the authority's benefit; the junction rows themselves are
// created by separate ActivityCategoryLinked events.
type ActivityCreated struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	DailyGoal   *int64   `json:"dailyGoal"`
	WeeklyGoal  *int64   `json:"weeklyGoal"`
	MonthlyGoal *int64   `json:"monthlyGoal"`
	UserID      string   `json:"userId"`
	CategoryIDs []string `json:"categoryIds"`
}

// ActivityUpdated patches an activity row. Goal fields distinguish
// "absent" (keep) from "null" (clear the goal).
type ActivityUpdated struct {
	ID          string        `json:"id"`
	Name        Field[string] `json:"name,omitzero"`
	Icon        Field[string] `json:"icon,omitzero"`
	DailyGoal   Field[int64]  `json:"dailyGoal,omitzero"`
	WeeklyGoal  Field[int64]  `json:"weeklyGoal,omitzero"`
	MonthlyGoal Field[int64]  `json:"monthlyGoal,omitzero"`
}

// ActivityArchived marks an activity archived.
type ActivityArchived struct {
	ID string `json:"id"`
}

// ActivityUnarchived clears the archived flag.
type ActivityUnarchived struct {
	ID string `json:"id"`
}

// ActivityDeleted soft-deletes an activity row.
type ActivityDeleted struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

// ActivityCategoryLinked creates a junction row between an activity and a
// category. Junction rows are append-only: relinking emits new link and
// unlink events, never an update of activityId/categoryId in place.
type ActivityCategoryLinked struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	CategoryID string `json:"categoryId"`
}

// ActivityCategoryUnlinked soft-deletes a junction row.
type ActivityCategoryUnlinked struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

// TimeSessionStarted creates an active session row.
type TimeSessionStarted struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	UserID     string `json:"userId"`
	StartedAt  int64  `json:"startedAt"`
}

// TimeSessionStopped closes a session. Duration is seconds, recomputed by
// the committing command from startedAt/stoppedAt - client-supplied
// durations are never trusted.
type TimeSessionStopped struct {
	ID        string `json:"id"`
	StoppedAt int64  `json:"stoppedAt"`
	Duration  int64  `json:"duration"`
}

// TimeSessionUpdated patches a session row.
type TimeSessionUpdated struct {
	ID        string        `json:"id"`
	StartedAt Field[int64]  `json:"startedAt,omitzero"`
	StoppedAt Field[int64]  `json:"stoppedAt,omitzero"`
	Duration  Field[int64]  `json:"duration,omitzero"`
	Notes     Field[string] `json:"notes,omitzero"`
}

// TimeSessionDeleted soft-deletes a session row.
type TimeSessionDeleted struct {
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

// TimeSessionCreated logs a completed session in one event (manual entry
// from the daily view). The row is created already stopped.
type TimeSessionCreated struct {
	ID         string  `json:"id"`
	ActivityID string  `json:"activityId"`
	UserID     string  `json:"userId"`
	StartedAt  int64   `json:"startedAt"`
	StoppedAt  int64   `json:"stoppedAt"`
	Duration   int64   `json:"duration"`
	Notes      *string `json:"notes"`
}

// UIStateSet patches the per-session UI state singleton. The merge is
// per-field: absent fields keep their current value. Device-local, never
// pushed to the authority.
type UIStateSet struct {
	SelectedCategoryIDs Field[[]string] `json:"selectedCategoryIds,omitzero"`
	FilterMode          Field[string]   `json:"filterMode,omitzero"`
	TimerActivityID     Field[string]   `json:"timerActivityId,omitzero"`
	TimerStartedAt      Field[int64]    `json:"timerStartedAt,omitzero"`
}

func (CategoryCreated) payload()          {}
func (CategoryUpdated) payload()          {}
func (CategoryDeleted) payload()          {}
func (ActivityCreated) payload()          {}
func (ActivityUpdated) payload()          {}
func (ActivityArchived) payload()         {}
func (ActivityUnarchived) payload()       {}
func (ActivityDeleted) payload()          {}
func (ActivityCategoryLinked) payload()   {}
func (ActivityCategoryUnlinked) payload() {}
func (TimeSessionStarted) payload()       {}
func (TimeSessionStopped) payload()       {}
func (TimeSessionUpdated) payload()       {}
func (TimeSessionDeleted) payload()       {}
func (TimeSessionCreated) payload()       {}
func (UIStateSet) payload()               {}

func (CategoryCreated) EventName() string          { return NameCategoryCreated }
func (CategoryUpdated) EventName() string          { return NameCategoryUpdated }
func (CategoryDeleted) EventName() string          { return NameCategoryDeleted }
func (ActivityCreated) EventName() string          { return NameActivityCreated }
func (ActivityUpdated) EventName() string          { return NameActivityUpdated }
func (ActivityArchived) EventName() string         { return NameActivityArchived }
func (ActivityUnarchived) EventName() string       { return NameActivityUnarchived }
func (ActivityDeleted) EventName() string          { return NameActivityDeleted }
func (ActivityCategoryLinked) EventName() string   { return NameActivityCategoryLinked }
func (ActivityCategoryUnlinked) EventName() string { return NameActivityCategoryUnlinked }
func (TimeSessionStarted) EventName() string       { return NameTimeSessionStarted }
func (TimeSessionStopped) EventName() string       { return NameTimeSessionStopped }
func (TimeSessionUpdated) EventName() string       { return NameTimeSessionUpdated }
func (TimeSessionDeleted) EventName() string       { return NameTimeSessionDeleted }
func (TimeSessionCreated) EventName() string       { return NameTimeSessionCreated }
func (UIStateSet) EventName() string               { return NameUIStateSet }

func (CategoryCreated) Synced() bool          { return true }
func (CategoryUpdated) Synced() bool          { return true }
func (CategoryDeleted) Synced() bool          { return true }
func (ActivityCreated) Synced() bool          { return true }
func (ActivityUpdated) Synced() bool          { return true }
func (ActivityArchived) Synced() bool         { return true }
func (ActivityUnarchived) Synced() bool       { return true }
func (ActivityDeleted) Synced() bool          { return true }
func (ActivityCategoryLinked) Synced() bool   { return true }
func (ActivityCategoryUnlinked) Synced() bool { return true }
func (TimeSessionStarted) Synced() bool       { return true }
func (TimeSessionStopped) Synced() bool       { return true }
func (TimeSessionUpdated) Synced() bool       { return true }
func (TimeSessionDeleted) Synced() bool       { return true }
func (TimeSessionCreated) Synced() bool       { return true }
func (UIStateSet) Synced() bool               { return false }
