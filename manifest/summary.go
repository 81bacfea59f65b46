package manifest

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// UnknownLocation is the location label of records with neither coordinates nor a usable directory name.
const UnknownLocation = "Unknown"

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summary reports what a manifest contains.
type Summary struct {
	Total      int              `json:"total"`
	Categories []*CategoryCount `json:"categories"`
	// The number of records with coordinates.
	Geolocated int `json:"geolocated"`
	// The number of distinct location labels other than UnknownLocation.
	Locations int `json:"locations"`
}

// Summarize counts records per category (in order of first appearance), records with
// coordinates and distinct location labels.
func Summarize(records []*Record) *Summary {

	s := newSummary()

	for _, r := range records {
		s.add(r.Category, r.Location, r.HasLocation())
	}

	return s.finish()
}

// SummarizeDocument summarizes an already serialized manifest document.
func SummarizeDocument(body []byte) (*Summary, error) {

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid manifest document")
	}

	doc := gjson.ParseBytes(body)

	if !doc.IsArray() {
		return nil, fmt.Errorf("Manifest document is not a list")
	}

	s := newSummary()

	for _, r := range doc.Array() {

		lat := r.Get("lat")
		lng := r.Get("lng")

		has_location := lat.Type == gjson.Number && lng.Type == gjson.Number
		s.add(r.Get("category").String(), r.Get("location").String(), has_location)
	}

	return s.finish(), nil
}

type summarizer struct {
	summary   *Summary
	counts    map[string]*CategoryCount
	locations map[string]bool
}

func newSummary() *summarizer {

	s := &summarizer{
		summary: &Summary{
			Categories: make([]*CategoryCount, 0),
		},
		counts:    make(map[string]*CategoryCount),
		locations: make(map[string]bool),
	}

	return s
}

func (s *summarizer) add(category string, location string, has_location bool) {

	s.summary.Total += 1

	c, ok := s.counts[category]

	if !ok {
		c = &CategoryCount{Category: category}
		s.counts[category] = c
		s.summary.Categories = append(s.summary.Categories, c)
	}

	c.Count += 1

	if has_location {
		s.summary.Geolocated += 1
	}

	if location != "" && location != UnknownLocation {
		s.locations[location] = true
	}
}

func (s *summarizer) finish() *Summary {
	s.summary.Locations = len(s.locations)
	return s.summary
}
