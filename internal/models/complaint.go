package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint. Values match what the web client displays.
type Status string

const (
	StatusSubmitted  Status = "Submitted"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Statuses in lifecycle order.
var Statuses = []Status{StatusSubmitted, StatusInProgress, StatusResolved, StatusClosed}

// Rank orders statuses along the normal flow; unknown statuses rank -1.
func (s Status) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool { return s.Rank() >= 0 }

// ParseStatus accepts "In Progress", "InProgress", "in_progress" and similar spellings.
func ParseStatus(s string) (Status, bool) {
	key := foldKey(s)
	for _, st := range Statuses {
		if foldKey(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

type Category string

const (
	CategoryElectrical  Category = "Electrical"
	CategoryPlumbing    Category = "Plumbing"
	CategoryCleaning    Category = "Cleaning"
	CategoryMaintenance Category = "Maintenance"
	CategoryFurniture   Category = "Furniture"
	CategoryInternet    Category = "Internet"
	CategoryOther       Category = "Other"
)

var Categories = []Category{
	CategoryElectrical, CategoryPlumbing, CategoryCleaning, CategoryMaintenance,
	CategoryFurniture, CategoryInternet, CategoryOther,
}

func ParseCategory(s string) (Category, bool) {
	key := foldKey(s)
	for _, c := range Categories {
		if foldKey(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// DefaultPriority applies when a draft leaves priority empty.
const DefaultPriority = PriorityMedium

func ParsePriority(s string) (Priority, bool) {
	key := foldKey(s)
	for _, p := range Priorities {
		if foldKey(string(p)) == key {
			return p, true
		}
	}
	return "", false
}

func foldKey(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// Complaint is a maintenance request filed by a student.
type Complaint struct {
	ID          string   `gorm:"primaryKey" json:"id"`
	SubmitterID string   `gorm:"type:text;not null;index" json:"submitter_id"`
	Category    Category `gorm:"type:text;not null" json:"category"`
	Title       string   `gorm:"type:text;not null" json:"title"`
	Description string   `gorm:"type:text;not null" json:"description"`
	RoomNumber  string   `gorm:"type:text;not null" json:"room_number"`
	// TimeSlot is the service window the student asked for.
	TimeSlot string   `gorm:"type:text;not null" json:"time_slot"`
	Priority Priority `gorm:"type:text;not null" json:"priority"`
	Status   Status   `gorm:"type:text;not null;index" json:"status"`
	// AssignedStaffID is nil while the complaint sits in the unassigned queue.
	AssignedStaffID *string    `gorm:"type:text;index" json:"assigned_staff_id"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

// BeforeCreate generates a UUID for the complaint if the ID is not set yet.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsAssigned reports whether a staff member has claimed the complaint.
func (c *Complaint) IsAssigned() bool {
	return c.AssignedStaffID != nil && *c.AssignedStaffID != ""
}

// AssignedTo reports whether the complaint is assigned to the given staff id.
func (c *Complaint) AssignedTo(staffID string) bool {
	return c.IsAssigned() && *c.AssignedStaffID == staffID
}

// Clone returns a deep copy, so stored records never alias caller memory.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	if c.AssignedStaffID != nil {
		id := *c.AssignedStaffID
		out.AssignedStaffID = &id
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}
