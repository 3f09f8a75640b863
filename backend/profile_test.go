package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
)

func TestSaveProfile(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.signUp(t, "onboard@example.com")

	tests := []struct {
		name           string
		form           model.Onboarding
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Missing name",
			form:           model.Onboarding{FullName: "  ", DobYear: "1998"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "missing_full_name",
		},
		{
			name:           "Non numeric year",
			form:           model.Onboarding{FullName: "Sam", DobYear: "nineties"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_dob_year",
		},
		{
			name:           "Year in the future",
			form:           model.Onboarding{FullName: "Sam", DobYear: "2031"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_dob_year",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/me/profile", token, tt.form)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			assert.Equal(t, tt.expectedError, errorCode(t, w))
		})
	}

	t.Run("Defaults fill bio, photo and location", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/me/profile", token, model.Onboarding{
			FullName: " Sam Rivers ",
			DobDay:   "12",
			DobMonth: "4",
			DobYear:  "1998",
			Vibe:     "Creative",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		p := decodeBody[model.Profile](t, w)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "Sam Rivers", p.FullName)
		assert.Equal(t, 28, p.Age)
		assert.Equal(t, model.DefaultLocation, p.Location)
		assert.Equal(t, model.DefaultImageURL, p.ImageURL)
		assert.Equal(t, "Just a Creative soul from Brisbane looking for good vibez.", p.Bio)
		assert.Nil(t, p.Latitude)
	})

	t.Run("Coordinates switch the location label", func(t *testing.T) {
		lat, lon := -27.47, 153.02
		w := e.do(t, http.MethodPut, "/me/profile", token, model.Onboarding{
			FullName:  "Sam Rivers",
			DobYear:   "1998",
			Bio:       "Sunrise swims and synthwave.",
			Latitude:  &lat,
			Longitude: &lon,
		})
		require.Equal(t, http.StatusOK, w.Code)

		p := decodeBody[model.Profile](t, w)
		assert.Equal(t, model.GPSLocation, p.Location)
		require.NotNil(t, p.Latitude)
		assert.Equal(t, lat, *p.Latitude)
		assert.Equal(t, "Sunrise swims and synthwave.", p.Bio)
	})

	t.Run("Me reports onboarding done", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/me", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		me := decodeBody[map[string]any](t, w)
		assert.Equal(t, true, me["onboarded"])
		assert.Len(t, me["vibes"], len(model.Vibes))
	})
}

func TestGetProfiles(t *testing.T) {
	e := newTestEnv(t)
	_, noProfile := e.signUp(t, "empty@example.com")
	otherID, token := e.onboard(t, "alex@example.com", "Alex", "Vinyl hunter.")

	t.Run("Own profile before onboarding", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/me/profile", noProfile, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "profile_not_found", errorCode(t, w))
	})

	t.Run("Own profile", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/me/profile", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Alex", decodeBody[model.Profile](t, w).FullName)
	})

	t.Run("Someone else's profile", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/profiles/"+itoa(otherID), noProfile, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Vinyl hunter.", decodeBody[model.Profile](t, w).Bio)
	})

	t.Run("Invalid id", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/profiles/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown id", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/profiles/999", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeckRequiresProfile(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.signUp(t, "nobody@example.com")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/deck"},
		{http.MethodPost, "/deck"},
		{http.MethodPost, "/deck/release"},
	} {
		w := e.do(t, tc.method, tc.path, token, nil)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: expected status %d, got %d", tc.method, tc.path, http.StatusForbidden, w.Code)
		}
		assert.Equal(t, "incomplete_profile", errorCode(t, w))
	}
}
