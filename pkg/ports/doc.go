/*
Package ports defines the driven ports (interfaces) for the parley engine.

These interfaces decouple the dialogue core from external implementations, allowing
the engine to work with various storage backends, configuration sources and
collaborating services.

# Key Interfaces

  - StateStore: persists session Documents, writing only the dirty keys of a turn.
  - ConfigProvider: serves rule sets and lookup tables with a last-changed timestamp.
  - TemplateEngine: renders "{{ }}" expressions against session state.
  - Classifier: NLU intent classification.
  - SpeechRenderer: optional text to speech.
  - AsyncInvoker: fire-and-forget dispatch of long-running integrations.
  - DistributedLocker: distributed locking for concurrent session access.
*/
package ports
