package schedule

import (
	"strings"

	"cloud.google.com/go/civil"
)

// NoFilterSentinel is the path segment the backend reads as "do not filter by
// patient name". An empty segment cannot be routed and an empty filter would
// be matched literally.
const NoFilterSentinel = "null"

// Query is an immutable description of one appointment lookup.
type Query struct {
	date        civil.Date
	patientName string
	hasFilter   bool
	token       string
}

// BuildQuery normalizes dashboard input into a Query. The search text is
// trimmed and an empty result means no filter. The token must be present
// before any network call is attempted.
func BuildQuery(date civil.Date, rawSearch, token string) (Query, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Query{}, ErrMissingIdentity
	}
	if !date.IsValid() {
		return Query{}, ErrInvalidDate
	}
	q := Query{date: date, token: token}
	if name := strings.TrimSpace(rawSearch); name != "" {
		q.patientName = name
		q.hasFilter = true
	}
	return q, nil
}

func (q Query) Date() civil.Date { return q.date }

// DateKey is the formatted date sent to the backend.
func (q Query) DateKey() string { return FormatDate(q.date) }

// PatientName returns the filter and whether one is set.
func (q Query) PatientName() (string, bool) { return q.patientName, q.hasFilter }

func (q Query) Token() string { return q.token }

// FilterSegment encodes the patient filter for the request path.
func (q Query) FilterSegment() string {
	if !q.hasFilter {
		return NoFilterSentinel
	}
	return q.patientName
}

// IsNoFilter reports whether a path segment received by the backend means
// "no filter". The legacy "0" placeholder is still accepted.
func IsNoFilter(segment string) bool {
	s := strings.TrimSpace(segment)
	return s == "" || s == NoFilterSentinel || s == "0"
}
