// Package mining walks a repository's linear history and records, for each
// eligible revision, the files and functions it changed and the bug it fixed.
package mining

// State is a step of a mining run.
type State int

const (
	Idle State = iota
	Walking
	Diffing
	CheckedOut
	Attributing
	Classifying
	Recording
	Restoring
	Done
	Aborted
)

var stateNames = [...]string{
	Idle:        "idle",
	Walking:     "walking",
	Diffing:     "diffing",
	CheckedOut:  "checked-out",
	Attributing: "attributing",
	Classifying: "classifying",
	Recording:   "recording",
	Restoring:   "restoring",
	Done:        "done",
	Aborted:     "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
