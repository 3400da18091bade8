package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"clinic-dashboard/internal/schedule"
)

// triggers is the part of the controller the command loop drives.
type triggers interface {
	SetDate(civil.Date) error
	SetSearch(string)
	ResetToday()
	Refresh()
}

const usage = `commands:
  date YYYY-MM-DD   show another day
  search <text>     filter by patient name (empty clears)
  today             back to today
  refresh           reload
  quit`

// dispatch applies one input line. It reports whether the loop should stop.
func dispatch(t triggers, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	switch strings.TrimSpace(cmd) {
	case "":
		return false, nil
	case "date":
		d, err := schedule.ParseDate(strings.TrimSpace(arg))
		if err != nil {
			return false, fmt.Errorf("bad date %q, expected YYYY-MM-DD", strings.TrimSpace(arg))
		}
		if err := t.SetDate(d); err != nil {
			return false, err
		}
	case "search":
		// the raw text goes through; the query builder trims it
		t.SetSearch(arg)
	case "today":
		t.ResetToday()
	case "refresh":
		t.Refresh()
	case "quit", "exit":
		return true, nil
	case "help":
		return false, fmt.Errorf("%s", usage)
	default:
		return false, fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return false, nil
}
