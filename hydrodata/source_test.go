package hydrodata

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRange(t *testing.T) {
	testData := map[string]struct {
		start        string
		end          string
		expectedDays int
		err          error
	}{
		"single day": {
			start:        "2000-01-01",
			end:          "2000-01-01",
			expectedDays: 1,
		},
		"leap february": {
			start:        "2000-02-01",
			end:          "2000-03-01",
			expectedDays: 30,
		},
		"start after end": {
			start: "2000-01-02",
			end:   "2000-01-01",
			err:   ErrStartAfterEnd,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			tr, err := DateRange(td.start, td.end)
			if td.err != nil {
				require.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expectedDays, tr.Days())
			axis := tr.Axis()
			require.Len(t, axis, td.expectedDays)
			assert.Equal(t, tr.Start, axis[0])
			assert.Equal(t, tr.End, axis[len(axis)-1])
		})
	}

	_, err := DateRange("01/02/2000", "2000-01-05")
	assert.Error(t, err)
}

func TestTimeRangeContains(t *testing.T) {
	tr, err := DateRange("2000-01-10", "2000-01-20")
	require.NoError(t, err)

	assert.True(t, tr.Contains(time.Date(2000, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, tr.Contains(time.Date(2000, 1, 20, 23, 0, 0, 0, time.UTC)))
	assert.False(t, tr.Contains(time.Date(2000, 1, 9, 0, 0, 0, 0, time.UTC)))
	assert.False(t, tr.Contains(time.Date(2000, 1, 21, 0, 0, 0, 0, time.UTC)))
}

func TestTimeRangeUnmarshalJSON(t *testing.T) {
	testData := map[string]struct {
		raw          string
		expectedDays int
		valid        bool
	}{
		"plain dates": {
			raw:          `{"start":"2001-06-01","end":"2001-06-10"}`,
			expectedDays: 10,
			valid:        true,
		},
		"rfc3339": {
			raw:          `{"start":"2001-06-01T00:00:00Z","end":"2001-06-03T00:00:00Z"}`,
			expectedDays: 3,
			valid:        true,
		},
		"garbage": {
			raw:   `{"start":"June 1st","end":"2001-06-03"}`,
			valid: false,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var tr TimeRange
			err := json.Unmarshal([]byte(td.raw), &tr)
			if !td.valid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expectedDays, tr.Days())
		})
	}
}
