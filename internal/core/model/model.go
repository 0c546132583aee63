// Package model defines core domain types shared across the service.
package model

import "time"

// TimeKind discriminates the TimeExpr variants.
type TimeKind int

const (
	TimeInstant TimeKind = iota
	TimePeriod
	TimeLatest
)

func (k TimeKind) String() string {
	switch k {
	case TimeInstant:
		return "instant"
	case TimePeriod:
		return "period"
	case TimeLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// TimeExpr is an eventTime filter: Instant(Value), Period(Start,End) or Latest.
type TimeExpr struct {
	Kind  TimeKind `json:"kind"`
	Value string   `json:"value,omitempty"`
	Start string   `json:"start,omitempty"`
	End   string   `json:"end,omitempty"`
}

func Instant(v string) TimeExpr { return TimeExpr{Kind: TimeInstant, Value: v} }

func Period(start, end string) TimeExpr { return TimeExpr{Kind: TimePeriod, Start: start, End: end} }

func Latest() TimeExpr { return TimeExpr{Kind: TimeLatest} }

// Request is the canonical form of a KVP or XML encoded SOS request.
type Request struct {
	Operation          string     `json:"operation"`
	Service            string     `json:"service,omitempty"`
	Version            string     `json:"version,omitempty"`
	AcceptVersions     string     `json:"acceptVersions,omitempty"`
	Offering           string     `json:"offering,omitempty"`
	ObservedProperties []string   `json:"observedProperties,omitempty"`
	EventTime          []TimeExpr `json:"eventTime,omitempty"`
	Procedure          []string   `json:"procedure,omitempty"`
	FeatureOfInterest  string     `json:"featureOfInterest,omitempty"`
	ResponseFormat     string     `json:"responseFormat,omitempty"`
	OutputFormat       string     `json:"outputFormat,omitempty"`
	Unit               string     `json:"unit,omitempty"`
	Result             string     `json:"result,omitempty"`
	ResultModel        string     `json:"resultModel,omitempty"`
	ResponseMode       string     `json:"responseMode,omitempty"`
}

// Envelope is the spatial extent of an offering. Raw keeps the stored
// text when it could not be split into corners.
type Envelope struct {
	SRSName     string
	LowerCorner string
	UpperCorner string
	Raw         string
}

func (e Envelope) IsZero() bool {
	return e.LowerCorner == "" && e.UpperCorner == "" && e.Raw == ""
}

// Offering is a read-only snapshot of one observation offering.
type Offering struct {
	ID                 string
	Description        string
	Name               string
	Envelope           Envelope
	Begin              string
	End                string
	Procedure          string
	Properties         []string
	FeaturesOfInterest []string
	ResponseFormats    []string
	ResultModel        string
	ResponseMode       string
}

// Observation is one result row of GetObservation.
type Observation struct {
	Time     time.Time `json:"time"`
	Value    *float64  `json:"value"`
	Property string    `json:"property"`
}
