package domain

// StateType is Linear's workflow state bucket.
type StateType string

const (
	StateUnstarted StateType = "unstarted"
	StateStarted   StateType = "started"
	StateCompleted StateType = "completed"
	StateCanceled  StateType = "canceled"
)

func (s StateType) Valid() bool {
	switch s {
	case StateUnstarted, StateStarted, StateCompleted, StateCanceled:
		return true
	}
	return false
}

// Category is the report bucket assigned by classification.
type Category string

const (
	CategoryCompleted Category = "completed"
	CategoryStarted   Category = "started"
	CategoryUpdated   Category = "updated"
	CategoryOtherOpen Category = "other_open"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCompleted, CategoryStarted, CategoryUpdated, CategoryOtherOpen:
		return true
	}
	return false
}

type ArtifactKind string

const (
	KindPullRequest   ArtifactKind = "pull_request"
	KindExternalIssue ArtifactKind = "external_issue"
)

func (k ArtifactKind) Valid() bool {
	return k == KindPullRequest || k == KindExternalIssue
}

// Confidence scores a correlation link. Comparisons go through Rank, never
// string order.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

func (c Confidence) Valid() bool { return c.Rank() > 0 }

type SyncType string

const (
	SyncWorkItems   SyncType = "work_items"
	SyncArtifacts   SyncType = "artifacts"
	SyncCorrelation SyncType = "correlation"
	SyncDelivery    SyncType = "delivery"
)

func (t SyncType) Valid() bool {
	switch t {
	case SyncWorkItems, SyncArtifacts, SyncCorrelation, SyncDelivery:
		return true
	}
	return false
}

type SyncStatus string

const (
	SyncInProgress SyncStatus = "in_progress"
	SyncSuccess    SyncStatus = "success"
	SyncFailed     SyncStatus = "failed"
)

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)
