package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultLocation is shown until the browser reports a position.
	DefaultLocation = "Brisbane, QLD"
	// GPSLocation replaces DefaultLocation once coordinates are known.
	GPSLocation = "Brisbane, QLD (GPS Active)"
	// DefaultImageURL is used when onboarding finishes without a photo.
	DefaultImageURL = "https://images.unsplash.com/photo-1511367461989-f85a21fda167"
)

// Vibes offered during onboarding.
var Vibes = []string{"Energetic", "Chill", "Creative", "Adventurous"}

var (
	ErrMissingName      = errors.New("full_name is required")
	ErrInvalidBirthYear = errors.New("dob_year is invalid")
)

// Onboarding is the form a user submits to create or update their profile.
type Onboarding struct {
	FullName  string   `json:"full_name"`
	DobDay    string   `json:"dob_day"`
	DobMonth  string   `json:"dob_month"`
	DobYear   string   `json:"dob_year"`
	Location  string   `json:"location"`
	Vibe      string   `json:"vibe"`
	Bio       string   `json:"bio"`
	ImageURL  string   `json:"image_url"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ToProfile validates the form and builds the profile row owned by userID.
// Age is the difference between now's year and the birth year.
func (o Onboarding) ToProfile(userID int, now time.Time) (Profile, error) {
	name := strings.TrimSpace(o.FullName)
	if name == "" {
		return Profile{}, ErrMissingName
	}
	year, err := strconv.Atoi(strings.TrimSpace(o.DobYear))
	if err != nil || year <= 0 || year > now.Year() {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidBirthYear, o.DobYear)
	}

	p := Profile{
		ID:        userID,
		FullName:  name,
		Age:       now.Year() - year,
		Location:  DefaultLocation,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Bio:       strings.TrimSpace(o.Bio),
		ImageURL:  strings.TrimSpace(o.ImageURL),
	}
	if p.HasCoordinates() {
		p.Location = GPSLocation
	} else {
		p.Latitude, p.Longitude = nil, nil
		if loc := strings.TrimSpace(o.Location); loc != "" {
			p.Location = loc
		}
	}
	if p.Bio == "" {
		p.Bio = fmt.Sprintf("Just a %s soul from Brisbane looking for good vibez.", strings.TrimSpace(o.Vibe))
	}
	if p.ImageURL == "" {
		p.ImageURL = DefaultImageURL
	}
	return p, nil
}
