// Package render prints the appointment view to a terminal.
package render

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"clinic-dashboard/internal/dashboard"
	"clinic-dashboard/internal/schedule"
)

const (
	LoadingText = "Loading appointments..."
	EmptyText   = "No Appointments found for this date."
)

// FailureText is the single-line message for a failed query. It never
// matches EmptyText.
func FailureText(reason schedule.FailureReason) string {
	return fmt.Sprintf("Error loading appointments: %s. Please try again.", reason)
}

// Table writes one block per view state.
type Table struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location
}

// NewTable renders to out, showing times in loc (local time when nil).
func NewTable(out io.Writer, loc *time.Location) *Table {
	if loc == nil {
		loc = time.Local
	}
	return &Table{out: out, loc: loc}
}

func (t *Table) Render(s dashboard.ViewState) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch s.Kind {
	case dashboard.Idle:
	case dashboard.Loading:
		fmt.Fprintln(t.out, LoadingText)
	case dashboard.Empty:
		fmt.Fprintln(t.out, EmptyText)
	case dashboard.Failed:
		fmt.Fprintln(t.out, FailureText(s.Reason))
	case dashboard.Populated:
		tw := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATIENT ID\tNAME\tPHONE\tEMAIL\tTIME\tAPPOINTMENT")
		for _, r := range s.Records {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
				r.PatientID, r.PatientName, r.PatientPhone, r.PatientEmail,
				r.AppointmentTime.In(t.loc).Format("15:04"), r.AppointmentID)
		}
		tw.Flush()
	}
}
