package domain

import "time"

// Role identifies what a principal is allowed to do. Principals are supplied
// per request by the authentication collaborator and never persisted here.
type Role string

const (
	RoleUser        Role = "user"
	RoleZoneManager Role = "zone_manager"
	RoleCEO         Role = "ceo"
)

// Principal is the authenticated caller: a role plus, for zone managers, the
// single zone they are assigned to.
type Principal struct {
	Role         Role
	AssignedZone int
}

// WorkType is the category of a work record. The set is closed per deployment
// and a record's type never changes after creation.
type WorkType string

const (
	WorkTypeWPP WorkType = "WPP"
	WorkTypeWFP WorkType = "WFP"
	WorkTypeFPP WorkType = "FPP"
)

// ValidWorkType reports whether t is one of the deployed categories.
func ValidWorkType(t WorkType) bool {
	switch t {
	case WorkTypeWPP, WorkTypeWFP, WorkTypeFPP:
		return true
	}
	return false
}

// WorkStatus is the lifecycle state of a work record. StatusPending is a
// logical initial state only: a record is always persisted at inprogress.
type WorkStatus string

const (
	StatusPending    WorkStatus = "pending"
	StatusInProgress WorkStatus = "inprogress"
	StatusComplete   WorkStatus = "complete"
	StatusRejected   WorkStatus = "rejected"
)

// OrDefault maps a missing status to inprogress. Records written before the
// status field existed carry an empty status; this is the single canonical
// default used by both reads and transition guards.
func (s WorkStatus) OrDefault() WorkStatus {
	if s == "" {
		return StatusInProgress
	}
	return s
}

// PhotoKind distinguishes the two evidence sequences on a work record.
type PhotoKind string

const (
	PhotoBefore PhotoKind = "before"
	PhotoAfter  PhotoKind = "after"
)

// Photo is an immutable evidence image attached to a work record.
type Photo struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	CapturedAt   time.Time `json:"timestamp"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"type"`
	StorageKey   string    `json:"-"`
}

// WorkRecord is a trackable unit of work requiring before/after photographic
// evidence and a final approval outcome. It is owned exclusively by its zone
// and never moves between zones.
type WorkRecord struct {
	ID              string     `json:"id"`
	ZoneID          int        `json:"zoneId"`
	WorkType        WorkType   `json:"workType"`
	BeforePhotos    []Photo    `json:"beforePhotos"`
	AfterPhotos     []Photo    `json:"afterPhotos"`
	Status          WorkStatus `json:"status"`
	ApprovalComment string     `json:"approvalComment,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Zone is a geographic partition owning an ordered set of work records
// (insertion order = creation order). Zones are created lazily on first
// reference and never deleted.
type Zone struct {
	ID          int          `json:"id"`
	WorkRecords []WorkRecord `json:"workRecords"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ArchiveEntry is the append-only audit copy of a work record taken at the
// moment it transitioned to complete. It is never updated afterwards, even if
// the live record is mutated.
type ArchiveEntry struct {
	WorkID      string     `json:"workId"`
	ZoneID      int        `json:"zoneId"`
	CompletedAt time.Time  `json:"completedAt"`
	Record      WorkRecord `json:"record"`
}

// ZoneSummary is the dashboard projection of a zone for one tab.
type ZoneSummary struct {
	ID          int          `json:"id"`
	Status      WorkStatus   `json:"status"`
	WorkCount   int          `json:"workCount"`
	WorkRecords []WorkRecord `json:"workRecords"`
	LastUpdated string       `json:"lastUpdated"`
}

// DashboardTab selects which work records a zone summary covers.
type DashboardTab string

const (
	TabUnsolved DashboardTab = "unsolved"
	TabComplete DashboardTab = "complete"
	TabRejected DashboardTab = "rejected"
)

// ParseTab maps a query value to a tab. Anything unrecognized (including the
// empty string) falls back to the unsolved tab.
func ParseTab(s string) DashboardTab {
	switch DashboardTab(s) {
	case TabComplete:
		return TabComplete
	case TabRejected:
		return TabRejected
	default:
		return TabUnsolved
	}
}
