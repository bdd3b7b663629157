package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Terminal reports whether the status is a departure the order source
// must not regress (see the status lock in the reconciler).
func (s Status) Terminal() bool {
	switch s.Name {
	case Statuses.Ready.Name, Statuses.Done.Name, Statuses.Cancelled.Name:
		return true
	}
	return false
}

type Enum struct {
	New        Status
	InProgress Status
	Ready      Status
	Done       Status
	Cancelled  Status
}

var Statuses = Enum{
	New:        Status{Name: "new"},
	InProgress: Status{Name: "in-progress"},
	Ready:      Status{Name: "ready"},
	Done:       Status{Name: "done"},
	Cancelled:  Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.New,
	Statuses.InProgress,
	Statuses.Ready,
	Statuses.Done,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsTerminal reports whether a raw status code names a terminal status.
// Unknown codes are not terminal.
func IsTerminal(code string) bool {
	s := ByName(code)
	return s != nil && s.Terminal()
}
