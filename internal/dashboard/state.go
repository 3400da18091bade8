package dashboard

import (
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/schedule"
)

// Kind is the visible phase of the appointment view.
type Kind int

const (
	Idle Kind = iota
	Loading
	Populated
	Empty
	Failed
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Populated:
		return "populated"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewState is what the dashboard currently shows. Records is set only when
// Kind is Populated; Reason and Err only when Kind is Failed. Seq is the
// trigger that produced the state.
type ViewState struct {
	Kind    Kind
	Records []model.AppointmentRecord
	Reason  schedule.FailureReason
	Err     error
	Seq     uint64
}

// Terminal reports whether the state is the outcome of a query.
func (s ViewState) Terminal() bool {
	return s.Kind == Populated || s.Kind == Empty || s.Kind == Failed
}

func (s ViewState) clone() ViewState {
	if s.Records != nil {
		recs := make([]model.AppointmentRecord, len(s.Records))
		copy(recs, s.Records)
		s.Records = recs
	}
	return s
}
