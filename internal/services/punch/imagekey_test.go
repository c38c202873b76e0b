package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Asha Verma", "asha-verma"},
		{"  Ward 12 / Gate-B  ", "ward-12-gate-b"},
		{"Palasia, Square", "palasia-square"},
		{"अशा Verma", "verma"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "slug of %q", tc.in)
	}
}

func TestImageKey(t *testing.T) {
	captured := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)

	t.Run("deterministic layout", func(t *testing.T) {
		key := ImageKey("2024-06-14", "Asha Verma", "Palasia Square", "IN", captured)
		assert.Equal(t, "2024/06/14/asha-verma/palasia-square/in_20240614T090000Z_palasia-square.jpg", key)
	})

	t.Run("captured time rendered in utc", func(t *testing.T) {
		ist := time.FixedZone("IST", 5*3600+1800)
		key := ImageKey("2024-06-14", "Asha Verma", "Palasia Square", "out", captured.In(ist))
		assert.Contains(t, key, "out_20240614T090000Z")
	})

	t.Run("blank fields fall back", func(t *testing.T) {
		key := ImageKey("2024-06-14", "", "", "IN", captured)
		assert.Contains(t, key, "unknown-employee")
		assert.Contains(t, key, "unknown-location")
	})
}

func TestEnrolmentKey(t *testing.T) {
	at := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)
	first := EnrolmentKey(100, at)
	assert.Contains(t, first, "enrolment/100/")
	assert.Equal(t, first, EnrolmentKey(100, at))
}
