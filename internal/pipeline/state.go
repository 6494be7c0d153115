package pipeline

// State is a stage of one extraction run.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateMerging    State = "merging"
	StateDeriving   State = "deriving"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event reports a state transition. During extraction Page counts the pages
// finished so far, out of Pages.
type Event struct {
	State State
	Page  int
	Pages int
	Err   error
}

// Observer receives events in order from a single goroutine at a time.
type Observer func(Event)

// PageStatus is the outcome of one page.
type PageStatus string

const (
	PageOK      PageStatus = "ok"
	PageEmpty   PageStatus = "empty"
	PageSkipped PageStatus = "skipped"
)
