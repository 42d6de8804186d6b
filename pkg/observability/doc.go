/*
Package observability provides tools for monitoring the parley engine.

It includes prometheus-backed lifecycle hooks, the metric sink used by Metric rules,
structured logging hooks and a helper to fan a single hook slot out to several observers.
*/
package observability
