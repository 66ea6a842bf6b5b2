// Package analyzer summarizes crawled website text into structured business
// details, using a chat-completion model when one is configured and a
// deterministic keyword and pattern analysis otherwise.
package analyzer

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoPages is returned when there is no crawled content to analyze.
var ErrNoPages = errors.New("at least one crawled page is required")

// Analysis modes.
const (
	ModeAI    = "ai"
	ModeBasic = "basic"
)

// Text is a string field that also accepts a JSON array of strings, which
// models sometimes return for list-like answers.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*t = Text(strings.Join(list, "、"))
	return nil
}

// Company describes the business behind a website.
type Company struct {
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	BusinessType   string   `json:"business_type"`
	MainServices   Text     `json:"main_services"`
	IsRealEstate   bool     `json:"is_real_estate"`
	Strengths      Text     `json:"strengths"`
	Weaknesses     Text     `json:"weaknesses"`
	Keywords       []string `json:"keywords"`
	TargetAudience Text     `json:"target_audience"`
}

// Location is a place the business operates from.
type Location struct {
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Type       string `json:"type,omitempty"`
}

// Analysis is the structured summary of a website.
type Analysis struct {
	Company   Company    `json:"company"`
	Locations []Location `json:"locations"`
	Location  Location   `json:"location"`
	Mode      string     `json:"mode"`
	// Provenance explains a degraded result; empty for model output.
	Provenance string `json:"provenance,omitempty"`
}
