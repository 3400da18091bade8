package apptclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-dashboard/internal/identity"
	"clinic-dashboard/internal/schedule"
)

type stubResolver struct {
	id  identity.Identity
	err error
}

func (s stubResolver) Resolve(context.Context, string) (identity.Identity, error) {
	return s.id, s.err
}

var doctor = stubResolver{id: identity.Identity{ID: 7, Name: "Dr. Ada"}}

func mustQuery(t *testing.T, search string) schedule.Query {
	t.Helper()
	q, err := schedule.BuildQuery(civil.Date{Year: 2024, Month: 5, Day: 1}, search, "tok-1")
	require.NoError(t, err)
	return q
}

func TestFetchNoFilterUsesSentinel(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":3,"patientId":11,"patientName":"Sami","patientPhone":"555","patientEmail":"s@x.io","doctorId":7,"appointmentTime":"2024-05-01T09:00:00Z","status":0}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", doctor, srv.Client(), nil)
	recs, err := c.Fetch(context.Background(), mustQuery(t, "   "))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/appointments/doctor/7/2024-05-01/null/tok-1", gotPath)
	assert.Equal(t, int64(3), recs[0].AppointmentID)
	assert.Equal(t, "Sami", recs[0].PatientName)
	assert.Equal(t, int64(7), recs[0].DoctorID)
}

func TestFetchKeepsUnknownRecordFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":3,"patientName":"Sami","doctorId":7,"appointmentTime":"2024-05-01T09:00:00Z","room":"B2"}]`))
	}))
	defer srv.Close()

	recs, err := New(srv.URL, doctor, srv.Client(), nil).Fetch(context.Background(), mustQuery(t, ""))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Sami", recs[0].PatientName)
	assert.JSONEq(t, `"B2"`, string(recs[0].Extra["room"]))
}

func TestFetchEscapesFilter(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, doctor, srv.Client(), nil)
	_, err := c.Fetch(context.Background(), mustQuery(t, " Sam O/Neil "))
	require.NoError(t, err)
	assert.Equal(t, "/appointments/doctor/7/2024-05-01/Sam%20O%2FNeil/tok-1", gotPath)
}

func TestFetchEmptyIsNotAnError(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			recs, err := New(srv.URL, doctor, srv.Client(), nil).Fetch(context.Background(), mustQuery(t, ""))
			require.NoError(t, err)
			assert.NotNil(t, recs)
			assert.Empty(t, recs)
		})
	}
}

func TestFetchNonSuccessIsRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"db down"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, doctor, srv.Client(), nil).Fetch(context.Background(), mustQuery(t, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrRequestFailed)
	var se *schedule.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "db down", se.Message)
	assert.Equal(t, schedule.ReasonRequestFailed, schedule.ReasonOf(err))
}

func TestFetchMalformedBodyIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, doctor, srv.Client(), nil).Fetch(context.Background(), mustQuery(t, ""))
	assert.ErrorIs(t, err, schedule.ErrNetwork)
	assert.Equal(t, schedule.ReasonNetwork, schedule.ReasonOf(err))
}

func TestFetchUnreachableIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, doctor, nil, nil).Fetch(context.Background(), mustQuery(t, ""))
	assert.ErrorIs(t, err, schedule.ErrNetwork)
}

func TestFetchDeadlineIsNetwork(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, doctor, srv.Client(), nil).Fetch(ctx, mustQuery(t, ""))
	assert.ErrorIs(t, err, schedule.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchIdentityFailureSkipsAppointmentCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	failing := stubResolver{err: identity.ErrNoIdentity}
	_, err := New(srv.URL, failing, srv.Client(), nil).Fetch(context.Background(), mustQuery(t, "Sam"))
	assert.ErrorIs(t, err, schedule.ErrIdentityResolutionFailed)
	assert.ErrorIs(t, err, identity.ErrNoIdentity)
	assert.Equal(t, schedule.ReasonIdentityResolution, schedule.ReasonOf(err))
	assert.Zero(t, calls.Load())
}

func TestFetchZeroQueryIsMissingIdentity(t *testing.T) {
	_, err := New("http://unused", doctor, nil, nil).Fetch(context.Background(), schedule.Query{})
	assert.ErrorIs(t, err, schedule.ErrMissingIdentity)
}
