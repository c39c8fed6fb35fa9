package events

import (
	"errors"
	"testing"
	"time"

	"github.com/localhub/server/internal/auth"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestValidateInputSanitizes(t *testing.T) {
	in, date, err := ValidateInput(Input{
		Title:       "  <b>Farmers</b> Market ",
		Description: `<p>Fresh <script>alert(1)</script>produce</p>`,
		Location:    "Main St & 3rd",
		Date:        "2026-06-07",
	}, refNow)

	require.NoError(t, err)
	require.Equal(t, "Farmers Market", in.Title)
	require.Equal(t, "<p>Fresh produce</p>", in.Description)
	require.Equal(t, "Main St & 3rd", in.Location)
	require.Equal(t, time.Date(2026, 6, 7, 0, 0, 0, 0, time.UTC), date)
}

func TestValidateInputRequiredFields(t *testing.T) {
	_, _, err := ValidateInput(Input{Date: "2026-06-07"}, refNow)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "title", verr.Field)

	_, _, err = ValidateInput(Input{Title: "x"}, refNow)
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "date", verr.Field)
}

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-04-18T09:30:00Z", time.Date(2026, 4, 18, 9, 30, 0, 0, time.UTC)},
		{"2026-04-18T09:30:00+02:00", time.Date(2026, 4, 18, 7, 30, 0, 0, time.UTC)},
		{"2026-04-18T09:30", time.Date(2026, 4, 18, 9, 30, 0, 0, time.UTC)},
		{"2026-04-18", time.Date(2026, 4, 18, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.raw, refNow)
		require.NoError(t, err, tt.raw)
		require.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseDateNaturalLanguage(t *testing.T) {
	got, err := ParseDate("18 April 2026", refNow)
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.April, got.Month())
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("not a date at all", refNow)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "date", verr.Field)
}

func TestUpdateInputToParams(t *testing.T) {
	title := " <i>New</i> title "
	status := "Approved"
	date := "2026-07-01"

	params, err := UpdateInput{Title: &title, Status: &status, Date: &date}.ToParams(refNow)
	require.NoError(t, err)
	require.Equal(t, "New title", *params.Title)
	require.Equal(t, StatusApproved, *params.Status)
	require.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), *params.Date)
	require.Nil(t, params.Location)

	bogus := "archived"
	_, err = UpdateInput{Status: &bogus}.ToParams(refNow)
	require.ErrorIs(t, err, ErrInvalidStatus)

	blank := "<b></b>"
	_, err = UpdateInput{Title: &blank}.ToParams(refNow)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "title", verr.Field)

	badURL := "not a url"
	_, err = UpdateInput{Image: &badURL}.ToParams(refNow)
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "image", verr.Field)
}

func TestDefaultStatus(t *testing.T) {
	require.Equal(t, StatusApproved, DefaultStatus(&auth.Principal{ID: "1", Role: auth.RoleAdmin}))
	require.Equal(t, StatusPending, DefaultStatus(&auth.Principal{ID: "1", Role: auth.RoleUser}))
	require.Equal(t, StatusPending, DefaultStatus(nil))
}

func TestParseReviewStatus(t *testing.T) {
	for _, raw := range []string{"approved", "declined", " DECLINED "} {
		_, err := ParseReviewStatus(raw)
		require.NoError(t, err, raw)
	}
	for _, raw := range []string{"", "pending", "deleted"} {
		_, err := ParseReviewStatus(raw)
		require.ErrorIs(t, err, ErrInvalidStatus, raw)
	}
}
