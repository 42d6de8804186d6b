package rules

// Outcome is what a handler tells the stepper after one operation.
type Outcome struct {
	// InputRequired returns control to the channel until the customer answers.
	InputRequired bool
	// Continue lets the stepper activate the next rule in the same turn.
	Continue bool
	// Terminate ends the session.
	Terminate bool

	Message        string
	QueueID        string
	ExternalNumber string
}

// Label names the outcome for logs and lifecycle events.
func (o Outcome) Label() string {
	switch {
	case o.Terminate:
		return "terminate"
	case o.InputRequired:
		return "input"
	case o.Continue:
		return "continue"
	}
	return "stop"
}

// AwaitInput prompts and waits for the customer.
func AwaitInput(message string) Outcome {
	return Outcome{InputRequired: true, Message: message}
}

// Continue proceeds to the next rule, optionally playing message first.
func Continue(message string) Outcome {
	return Outcome{Continue: true, Message: message}
}

// Stop returns control to the channel without awaiting input.
func Stop(message string) Outcome {
	return Outcome{Message: message}
}

// Terminate ends the session.
func Terminate(message string) Outcome {
	return Outcome{Terminate: true, Message: message}
}
