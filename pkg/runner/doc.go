/*
Package runner implements the interactive conversation loop used by "parley chat".

It sits on top of the TurnEngine port: it opens a session with a "new" event, prints
each response through a pluggable IOHandler, reads the next utterance when the engine
asks for input and sends "resume" when the engine handed control back without asking.
The loop ends when a response terminates the session or the customer leaves, in which
case a best-effort "hangup" is sent.

# Key Components

  - Runner: the loop itself.
  - IOHandler: decouples how the runner talks to the customer.
  - TextHandler: line based terminal IO with an optional ContentRenderer.
  - JSONHandler: JSON lines for scripted use.
  - SanitizeInput: size, UTF-8 and control character checks on every utterance.

# Usage

	r := runner.NewRunner(
		runner.WithEndPoint("+15550100"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner
