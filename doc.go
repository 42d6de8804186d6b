/*
Package parley is a rule-driven dialogue engine for contact-center conversations.

A conversation is described declaratively as rule sets: named, ordered lists of rules, each
with a type (Message, DTMFMenu, NLUInput, Distribution, Integration, Queue, ...), parameters
and activation weights evaluated against the session's state document. Each turn the engine
loads the session, dispatches the event and steps through rules until one hands control back
to the channel, either to collect input or to end the contact.

# Concept

The engine owns the dialogue logic and the per-session state. The host ("channel") owns the
transport: it sends a Request per event (new, input, resume, hangup) and renders the Response.
Storage, configuration, NLU, text to speech and long-running integrations are reached through
the ports in pkg/ports, so the same engine runs behind HTTP, MCP or a terminal.

# Key Features

  - Weighted activation: rules activate when their weighted conditions reach the threshold.
  - Composition: rule sets call each other and return through a return stack.
  - Dirty-key persistence: a turn writes back only the top-level keys it changed.
  - Hot reload: the configuration is cached and reloaded when the provider reports a change.

# Usage

	provider := file.NewProvider("rules.yaml")
	store := memory.NewStore()

	engine, err := parley.New(provider, store,
		parley.WithTemplateEngine(gotemplate.New()),
	)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := engine.Turn(ctx, domain.Request{
		SessionID: "c-123",
		EndPoint:  "+15550100",
		EventType: domain.EventNew,
	})
*/
package parley
