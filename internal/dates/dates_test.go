package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAddDays_Basic(t *testing.T) {
	base := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-10-18", FormatAPIDate(AddDays(base, 2)))
	assert.Equal(t, "2026-10-15", FormatAPIDate(AddDays(base, -1)))
	assert.Equal(t, "2028-08-26", FormatAPIDate(AddDays(base, 680)))
}

func TestAddDays_DoesNotMutateBase(t *testing.T) {
	base := time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC)
	before := base

	_ = AddDays(base, 5)

	assert.Equal(t, before, base)
}

func TestAddDays_CrossesMonthAndLeapDay(t *testing.T) {
	base := time.Date(2028, time.February, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2028-02-29", FormatAPIDate(AddDays(base, 1)))
	assert.Equal(t, "2028-03-01", FormatAPIDate(AddDays(base, 2)))
}

func TestAddDays_IgnoresTimeOfDayAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*60*60)
	late := time.Date(2026, time.March, 29, 23, 30, 0, 0, loc)

	assert.Equal(t, "2026-03-30", FormatAPIDate(AddDays(late, 1)))
}

func TestFormats(t *testing.T) {
	d := time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2027-01-05", FormatAPIDate(d))
	assert.Equal(t, "05/01/2027", FormatUIDate(d))
	assert.NotEqual(t, FormatAPIDate(d), FormatUIDate(d))
	assert.Equal(t, FormatAPIDate(d), FormatAPIDate(d), "formatting must be stable")
}

func TestParseAPIDate_RoundTrip(t *testing.T) {
	d, err := ParseAPIDate("2028-08-26")
	require.NoError(t, err)
	assert.Equal(t, "2028-08-26", FormatAPIDate(d))

	_, err = ParseAPIDate("26/08/2028")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysBetween(a, AddDays(a, 2)))
	assert.Equal(t, -3, DaysBetween(a, AddDays(a, -3)))
}

func TestAddDays_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := AddDays(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), rapid.IntRange(0, 20000).Draw(t, "base"))
		n := rapid.IntRange(-5000, 5000).Draw(t, "n")
		m := rapid.IntRange(-5000, 5000).Draw(t, "m")

		if got := DaysBetween(base, AddDays(base, n)); got != n {
			t.Fatalf("DaysBetween(base, AddDays(base, %d)) = %d", n, got)
		}
		if !AddDays(AddDays(base, n), m).Equal(AddDays(base, n+m)) {
			t.Fatalf("AddDays not additive for n=%d m=%d", n, m)
		}
		parsed, err := ParseAPIDate(FormatAPIDate(AddDays(base, n)))
		if err != nil || !parsed.Equal(AddDays(base, n)) {
			t.Fatalf("api format does not round-trip: %v", err)
		}
	})
}
