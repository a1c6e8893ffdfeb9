package pipeline

import (
	"time"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// Scraper identifiers carried in ingestion payloads.
const (
	ScraperSchedule       = "schedule"
	ScraperLiveStatus     = "live_status"
	ScraperHylineSchedule = "hyline_schedule"
)

// IngestPayload is one scraper run's worth of observations, POSTed by an
// external scraper to the ingestion endpoint. One endpoint serves all
// operators; Source selects the canonical set the rows merge into.
type IngestPayload struct {
	RequestID        string                   `json:"request_id"`
	Source           string                   `json:"source"`
	Trigger          string                   `json:"trigger"`
	Scraper          string                   `json:"scraper"`
	ScrapedAtUTC     time.Time                `json:"scraped_at_utc"`
	ServiceDateLocal string                   `json:"service_date_local"`
	Timezone         string                   `json:"timezone"`
	ScheduleRows     []ScheduleRow            `json:"schedule_rows"`
	ReasonRows       []ReasonRow              `json:"reason_rows,omitempty"`
	Conditions       []domain.WindObservation `json:"conditions,omitempty"`
	SourceMeta       SourceMeta               `json:"source_meta"`
}

// ScheduleRow is one scraped schedule entry, still unvalidated.
type ScheduleRow struct {
	DepartingTerminal  string `json:"departing_terminal"`
	ArrivingTerminal   string `json:"arriving_terminal"`
	DepartureTimeLocal string `json:"departure_time_local"`
	ArrivalTimeLocal   string `json:"arrival_time_local,omitempty"`
	Status             string `json:"status,omitempty"`
	StatusReason       string `json:"status_reason,omitempty"`
}

// ReasonRow carries cancellation-reason text scraped from the operator's
// detail rows, which SSA's live page drops shortly after posting.
type ReasonRow struct {
	DepartingTerminal  string `json:"departing_terminal"`
	ArrivingTerminal   string `json:"arriving_terminal"`
	DepartureTimeLocal string `json:"departure_time_local"`
	StatusReason       string `json:"status_reason"`
}

// SourceMeta describes where and how the rows were extracted.
type SourceMeta struct {
	ScheduleSource string `json:"schedule_source"`
	ScheduleURL    string `json:"schedule_url"`
	ScheduleCount  int    `json:"schedule_count"`
	ReasonSource   string `json:"reason_source,omitempty"`
	ReasonCount    int    `json:"reason_count"`
	ReasonStatus   string `json:"reason_status,omitempty"`
}

// Result summarizes what one ingestion merge did.
type Result struct {
	StatusCounts   map[string]int `json:"status_counts"`
	ReasonsApplied int            `json:"reasons_applied"`
	Removed        int            `json:"removed"`
	ParseErrors    int            `json:"parse_errors"`
	Created        int            `json:"created"`
	Updated        int            `json:"updated"`
}
