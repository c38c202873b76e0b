package punch

import (
	"fmt"
	"strings"
	"time"
)

// Slug folds a free-text name into a storage-safe path segment: ASCII only,
// lowercased, with runs of non-alphanumerics collapsed to a single dash.
func Slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r > 127:
			// ascii fold: non-ASCII runes are dropped outright
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ImageKey builds the deterministic storage key for a punch image:
//
//	YYYY/MM/DD/<emp-slug>/<location-slug>/<punch>_<capture-ts>_<location-slug>.jpg
//
// date is the logical attendance date in YYYY-MM-DD form. Retries of the
// same punch produce distinct keys because the capture timestamp moves.
func ImageKey(date, employeeName, location string, punchType string, capturedAt time.Time) string {
	empSlug := Slug(employeeName)
	if empSlug == "" {
		empSlug = "unknown-employee"
	}
	locSlug := Slug(location)
	if locSlug == "" {
		locSlug = "unknown-location"
	}

	datePath := strings.ReplaceAll(date, "-", "/")
	ts := capturedAt.UTC().Format("20060102T150405Z")

	return fmt.Sprintf("%s/%s/%s/%s_%s_%s.jpg",
		datePath, empSlug, locSlug,
		strings.ToLower(punchType), ts, locSlug)
}

// EnrolmentKey builds the storage key for an employee's reference image.
func EnrolmentKey(empID int64, capturedAt time.Time) string {
	return fmt.Sprintf("enrolment/%d/ref_%s.jpg", empID, capturedAt.UTC().Format("20060102T150405Z"))
}
