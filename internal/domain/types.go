package domain

import "time"

// User is the identity mapping between this service, Linear, GitHub and
// Slack. The core consumes the mapping; it never resolves it.
type User struct {
	ID           int64
	Email        string
	LinearUserID string
	GithubHandle string
	GithubToken  string
	SlackChannel string
	Active       bool
}

type WorkItem struct {
	ID          int64
	ExtID       string // Linear issue id
	Identifier  string // e.g. ENG-123
	Title       string
	Description string
	StateName   string
	StateType   StateType
	Priority    int
	Estimate    *float64
	ProjectID   string
	ProjectName string
	TeamID      string
	TeamName    string
	TeamKey     string
	AssigneeID  string
	URL         string
	CreatedAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CanceledAt  *time.Time
	UpdatedAt   *time.Time
}

// Open reports whether the item is neither completed nor canceled.
func (w WorkItem) Open() bool {
	return w.StateType != StateCompleted && w.StateType != StateCanceled
}

type Artifact struct {
	ID           int64
	ExtID        string // GitHub node id
	Kind         ArtifactKind
	Repo         string // owner/name
	Number       int
	Title        string
	Body         string
	State        string // open|closed
	Author       string
	HeadBranch   string
	BaseBranch   string
	URL          string
	Additions    int
	Deletions    int
	ChangedFiles int
	ReviewState  string
	Draft        bool
	Merged       bool
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
}

type CorrelationLink struct {
	ID               int64
	WorkItemID       int64
	ArtifactID       int64
	ArtifactKind     ArtifactKind
	LinkType         string
	Confidence       Confidence
	DetectionPattern string
	DetectedAt       time.Time
}

type Snapshot struct {
	ID           int64
	UserID       int64
	EntityID     int64
	EntityKind   string // work_item|artifact
	SnapshotDate time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Category     Category
	StateName    string
	StateType    StateType
	Priority     int
}

type CooldownSchedule struct {
	UserID        int64
	NextStartDate time.Time
	DurationWeeks int
}

type SyncRun struct {
	SyncType        SyncType
	Status          SyncStatus
	LastStartedAt   *time.Time
	LastCompletedAt *time.Time
	LastSuccessAt   *time.Time
	LastFailedAt    *time.Time
	LastError       string
	TotalRuns       int
	SuccessCount    int
	FailureCount    int
	Metadata        map[string]any
}

type DeliveryRecord struct {
	ID          int64
	AttemptID   string
	UserID      int64
	SentAt      time.Time
	Status      DeliveryStatus
	Error       string
	Content     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	IssueCount  int
	InCooldown  bool
}
