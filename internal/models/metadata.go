package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Score is a numeric confidence that tolerates the analysis service
// returning either a JSON number or a numeric string.
type Score float64

// UnmarshalJSON accepts 87, "87" and "87/100" style values.
func (s *Score) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Score(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = 0
		return nil
	}
	str = strings.TrimSpace(str)
	if i := strings.IndexByte(str, '/'); i >= 0 {
		str = str[:i]
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
		*s = Score(n)
	} else {
		*s = 0
	}
	return nil
}

// PublicDocMetadata carries the official-document fields the analysis
// extracts when the media looks like government or corporate paperwork.
type PublicDocMetadata struct {
	DocNumber  string `json:"doc_number,omitempty"`
	Sender     string `json:"sender,omitempty"`
	Receiver   string `json:"receiver,omitempty"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
	Date       string `json:"date,omitempty"`
}

// FileMetadata is the structured metadata bag returned by the analysis.
// All fields are optional; consumers must tolerate the zero value.
type FileMetadata struct {
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Objects     []string           `json:"objects,omitempty"`
	Colors      []string           `json:"colors,omitempty"`
	Duration    string             `json:"duration,omitempty"`
	Accuracy    string             `json:"accuracy,omitempty"`
	Confidence  Score              `json:"confidence,omitempty"`
	PublicDoc   *PublicDocMetadata `json:"public_doc,omitempty"`

	// Populated instead of OCR fields when image OCR is disabled.
	Labels         []string `json:"labels,omitempty"`
	VisualAnalysis string   `json:"visual_analysis,omitempty"`
}

// HasPublicDoc reports whether any public-document field is set.
func (m FileMetadata) HasPublicDoc() bool {
	p := m.PublicDoc
	if p == nil {
		return false
	}
	return p.DocNumber != "" || p.Sender != "" || p.Receiver != "" ||
		p.Department != "" || p.Title != "" || p.Date != ""
}
