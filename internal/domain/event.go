package domain

import (
	"regexp"
	"time"
)

type EventType string

const (
	EventAPC        EventType = "apc"
	EventRetreat    EventType = "retreat"
	EventOffering   EventType = "offering"
	EventDharmaTalk EventType = "dharmaTalk"
	EventOther      EventType = "other"
)

func ParseEventType(s string) (EventType, bool) {
	switch EventType(s) {
	case EventAPC, EventRetreat, EventOffering, EventDharmaTalk, EventOther:
		return EventType(s), true
	default:
		return "", false
	}
}

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(:[0-5]\d)?$`)

// ValidTimeOfDay reports whether s matches HH:mm or HH:mm:ss.
func ValidTimeOfDay(s string) bool { return timeOfDayRe.MatchString(s) }

// Event is a schedulable gathering. Capacity 0 means unlimited, price 0
// means free. IsActive is forced false by the sweeper once EndDate has
// passed; staff edits may toggle it independently.
type Event struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	StartTime        string     `json:"startTime"`
	EndTime          string     `json:"endTime,omitempty"`
	Price            int64      `json:"price"`
	Capacity         int        `json:"capacity"`
	IsActive         bool       `json:"isActive"`
	Type             EventType  `json:"type"`
	Slug             string     `json:"slug"`

	ThumbnailURL      string `json:"thumbnailUrl,omitempty"`
	ThumbnailPublicID string `json:"thumbnailPublicId,omitempty"`

	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Creator *UserSummary `json:"creator,omitempty"`
}

type EventInput struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	StartTime        string     `json:"startTime"`
	EndTime          string     `json:"endTime"`
	Price            int64      `json:"price"`
	Capacity         int        `json:"capacity"`
	Type             string     `json:"type"`

	ThumbnailURL      string `json:"thumbnailUrl"`
	ThumbnailPublicID string `json:"thumbnailPublicId"`
}

type EventPatch struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	ShortDescription *string    `json:"shortDescription"`
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	StartTime        *string    `json:"startTime"`
	EndTime          *string    `json:"endTime"`
	Price            *int64     `json:"price"`
	Capacity         *int       `json:"capacity"`
	IsActive         *bool      `json:"isActive"`
	Type             *string    `json:"type"`

	ThumbnailURL      *string `json:"thumbnailUrl"`
	ThumbnailPublicID *string `json:"thumbnailPublicId"`
}

type EventFilter struct {
	Search        string
	IsActive      *bool
	Slug          string
	CreatedBy     *int64
	Type          *EventType
	StartDateFrom *time.Time
	EndDateTo     *time.Time
	PriceMin      *int64
	PriceMax      *int64
	CapacityMin   *int
	CapacityMax   *int
	SortBy        string
	Order         string
	Page          int
	Limit         int
}

// Whitelist of sortable columns for event listings.
var EventSortFields = map[string]string{
	"createdAt": "created_at",
	"startDate": "start_date",
	"endDate":   "end_date",
	"title":     "title",
	"slug":      "slug",
	"price":     "price",
	"capacity":  "capacity",
}
