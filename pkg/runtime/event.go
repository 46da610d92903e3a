package runtime

// EventKind identifies a step of a run.
type EventKind int

const (
	// EventPosting fires before each post.
	EventPosting EventKind = iota
	// EventResponse carries the full model text of a successful post.
	EventResponse
	// EventFailure carries the error of a failed post.
	EventFailure
	// EventToolOutput carries the message fed back to the model: tool
	// output, a document acknowledgement or a correction.
	EventToolOutput
	EventDone
)

// Event describes one step of a run. Text, Tool and Err are set as the
// kind requires.
type Event struct {
	Kind EventKind
	Turn int
	Text string
	Tool string
	Err  error
}

// Observer is called synchronously from the loop goroutine.
type Observer func(Event)
