package controllers

import (
	"net/http"
	"testing"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPreferenceIdempotent(t *testing.T) {
	db := dbhelper.SetupTestDB()
	defer dbhelper.SetupCleaner(db)()
	e := newTestServer(db, Deps{})
	user := test.FakeUser(db, "")

	for _, name := range []string{"minimalist", " minimalist ", "streetwear"} {
		rec := do(e, "POST", "/api/preferences", user, models.StylePreferenceIn{PreferenceName: name})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := do(e, "GET", "/api/preferences", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var preferences []models.StylePreference
	decode(t, rec, &preferences)
	require.Len(t, preferences, 2)
	assert.Equal(t, "minimalist", preferences[0].PreferenceName)
	assert.Equal(t, "streetwear", preferences[1].PreferenceName)
}

func TestAddPreferenceEmpty(t *testing.T) {
	db := dbhelper.SetupTestDB()
	defer dbhelper.SetupCleaner(db)()
	e := newTestServer(db, Deps{})
	user := test.FakeUser(db, "")

	rec := do(e, "POST", "/api/preferences", user, models.StylePreferenceIn{PreferenceName: "  "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
