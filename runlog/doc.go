// Package runlog gathers time-series diagnostics from a simulation
// run and persists them in SQLite.
//
// A Manager owns the run: the step loop registers quantities (norms of
// state variables, a SimClock for step/time/dt, interval timers around
// expensive sections) and calls Tick once per iteration. Each tick
// samples the due quantities, logs the watched ones, and buffers the
// values; Close flushes the buffer to the store. Quantities named in
// AddWatch appear as structured log fields on every tick; an
// aggregator suffix on a watch name ("step.max") is kept as the label.
//
// The store lays runs out as three tables: runs (one row per run, with
// a JSON constants column for metadata like the host name), quantities
// (name, unit, description per run), and samples (step, t, name,
// value). WAL mode lets a plotting tool follow a run while it writes.
package runlog
