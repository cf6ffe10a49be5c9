package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoTarget means a refresh request names no city, query or coordinates.
var ErrNoTarget = errors.New("refresh request has no city, query or coordinates")

// ParseRefreshRequest deserializes a RawEvent's value into a RefreshRequest.
// The message key is used as the ID when the body has none; a random UUID
// is assigned when neither is present. The language is normalized to a
// supported code or left empty.
func ParseRefreshRequest(raw RawEvent) (RefreshRequest, error) {
	var req RefreshRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return RefreshRequest{}, fmt.Errorf("parse refresh request: %w", err)
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = strings.TrimSpace(string(raw.Key))
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.City = strings.TrimSpace(req.City)
	req.Query = strings.TrimSpace(req.Query)
	req.Session = strings.TrimSpace(req.Session)
	req.Language, _ = NormalizeLanguage(req.Language)
	if req.RequestedAt.IsZero() {
		req.RequestedAt = raw.Timestamp
	}

	if err := ValidateRefreshRequest(req); err != nil {
		return RefreshRequest{}, err
	}
	return req, nil
}

// ValidateRefreshRequest checks that a request identifies a place and that
// its coordinates, if any, are finite and in range.
func ValidateRefreshRequest(req RefreshRequest) error {
	if (req.Lat == nil) != (req.Lon == nil) {
		return errors.New("refresh request: lat and lon must be set together")
	}
	if req.HasCoordinates() {
		if err := ValidateCoordinates(*req.Lat, *req.Lon); err != nil {
			return fmt.Errorf("refresh request: %w", err)
		}
	}
	if req.City == "" && req.Query == "" && !req.HasCoordinates() {
		return ErrNoTarget
	}
	return nil
}

// ValidateCoordinates rejects non-finite or out-of-range WGS-84 coordinates.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}

// CoordinatePlace builds a Place for bare coordinates, labelled with label
// or the localized "my location" text.
func CoordinatePlace(lat, lon float64, label string) Place {
	names := MyLocation
	if label = strings.TrimSpace(label); label != "" {
		names = SameName(label)
	}
	return Place{
		ID:    fmt.Sprintf("%.4f,%.4f", lat, lon),
		Names: names,
		Lat:   lat,
		Lon:   lon,
	}
}

// SerializeNarrativeEvent marshals a NarrativeEvent for the sink topic,
// keyed by request ID.
func SerializeNarrativeEvent(event NarrativeEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize narrative event: %w", err)
	}

	return OutputEvent{
		Key:   []byte(event.RequestID),
		Value: data,
		Headers: map[string]string{
			"language":     event.Language,
			"location":     event.Location.ID,
			"confidence":   string(event.Narrative.Confidence),
			"generated_at": event.GeneratedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
