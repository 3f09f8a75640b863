package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestToProfileDefaults(t *testing.T) {
	p, err := Onboarding{FullName: "  Sam  ", DobYear: "1996", Vibe: "Chill"}.ToProfile(7, now)
	require.NoError(t, err)

	assert.Equal(t, 7, p.ID)
	assert.Equal(t, "Sam", p.FullName)
	assert.Equal(t, 30, p.Age)
	assert.Equal(t, DefaultLocation, p.Location)
	assert.Equal(t, "Just a Chill soul from Brisbane looking for good vibez.", p.Bio)
	assert.Equal(t, DefaultImageURL, p.ImageURL)
	assert.False(t, p.HasCoordinates())
}

func TestToProfileWithCoordinates(t *testing.T) {
	lat, lon := -27.47, 153.02
	p, err := Onboarding{FullName: "Sam", DobYear: "2000", Location: "Ignored", Latitude: &lat, Longitude: &lon}.ToProfile(1, now)
	require.NoError(t, err)
	assert.Equal(t, GPSLocation, p.Location)
	assert.True(t, p.HasCoordinates())
}

func TestToProfileDropsHalfCoordinates(t *testing.T) {
	lat := -27.47
	p, err := Onboarding{FullName: "Sam", DobYear: "2000", Location: "Gold Coast", Latitude: &lat}.ToProfile(1, now)
	require.NoError(t, err)
	assert.Nil(t, p.Latitude)
	assert.Equal(t, "Gold Coast", p.Location)
}

func TestToProfileKeepsGivenBioAndImage(t *testing.T) {
	p, err := Onboarding{FullName: "Sam", DobYear: "1990", Bio: "Surf then coffee.", ImageURL: "http://cdn/x.png"}.ToProfile(1, now)
	require.NoError(t, err)
	assert.Equal(t, "Surf then coffee.", p.Bio)
	assert.Equal(t, "http://cdn/x.png", p.ImageURL)
}

func TestToProfileValidation(t *testing.T) {
	_, err := Onboarding{DobYear: "1990"}.ToProfile(1, now)
	assert.ErrorIs(t, err, ErrMissingName)

	for _, year := range []string{"", "nineteen", "0", "2027"} {
		_, err := Onboarding{FullName: "Sam", DobYear: year}.ToProfile(1, now)
		assert.ErrorIs(t, err, ErrInvalidBirthYear, "year %q", year)
	}
}

func TestMessageBetween(t *testing.T) {
	m := Message{SenderID: 1, ReceiverID: 2}
	assert.True(t, m.Between(1, 2))
	assert.True(t, m.Between(2, 1))
	assert.False(t, m.Between(1, 3))
}
