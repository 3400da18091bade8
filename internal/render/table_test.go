package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinic-dashboard/internal/dashboard"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/schedule"
)

func TestRenderStates(t *testing.T) {
	tests := []struct {
		name  string
		state dashboard.ViewState
		want  string
	}{
		{"idle", dashboard.ViewState{Kind: dashboard.Idle}, ""},
		{"loading", dashboard.ViewState{Kind: dashboard.Loading}, LoadingText + "\n"},
		{"empty", dashboard.ViewState{Kind: dashboard.Empty}, EmptyText + "\n"},
		{
			"failed",
			dashboard.ViewState{Kind: dashboard.Failed, Reason: schedule.ReasonNetwork},
			"Error loading appointments: network error. Please try again.\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewTable(&buf, time.UTC).Render(tt.state)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestFailureNeverLooksEmpty(t *testing.T) {
	for _, r := range []schedule.FailureReason{
		schedule.ReasonMissingIdentity,
		schedule.ReasonIdentityResolution,
		schedule.ReasonRequestFailed,
		schedule.ReasonNetwork,
		schedule.ReasonInvalidDate,
	} {
		assert.NotEqual(t, EmptyText, FailureText(r))
		assert.Contains(t, FailureText(r), r.String())
	}
}

func TestRenderPopulated(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, time.UTC).Render(dashboard.ViewState{
		Kind: dashboard.Populated,
		Records: []model.AppointmentRecord{
			{AppointmentID: 31, PatientID: 4, PatientName: "Ann Lee", PatientPhone: "555-0101", PatientEmail: "ann@example.com", AppointmentTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
			{AppointmentID: 32, PatientID: 5, PatientName: "Bo", PatientPhone: "555-0102", PatientEmail: "bo@example.com", AppointmentTime: time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC)},
		},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "PATIENT ID"))
	assert.Contains(t, lines[1], "Ann Lee")
	assert.Contains(t, lines[1], "09:00")
	assert.Contains(t, lines[2], "bo@example.com")
	assert.Contains(t, lines[2], "14:30")
	// columns line up
	assert.Equal(t, strings.Index(lines[1], "555-0101"), strings.Index(lines[2], "555-0102"))
}
