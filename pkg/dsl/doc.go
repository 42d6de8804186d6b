/*
Package dsl provides a Go DSL for programmatically constructing parley rule sets.

It allows developers to declare dialogue configuration with a fluent builder instead of
YAML files. This is particularly useful for unit tests, generated configuration and
leveraging IDE autocompletion.

Example usage:

	b := dsl.New()

	main := b.RuleSet("Main").EndPoints("+61300000000")
	main.Message("Greeting", "Welcome to {{ .ContactAttributes.brand }}")
	main.DTMFMenu("Menu", "Press 1 for sales, 2 for support").
		Key("1", "Sales").
		Key("2", "Support").
		OnError("Goodbye")

	b.RuleSet("Sales").Queue("ToSales", "SalesQueue")
	b.RuleSet("Support").Queue("ToSupport", "SupportQueue")
	b.RuleSet("Goodbye").Terminate("Bye", "Goodbye")

	provider, err := b.Provider()
	// ... pass provider to parley.New(...)
*/
package dsl
