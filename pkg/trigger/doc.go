/*
Package trigger runs reconciliation cycles on demand and on a timer.

The submission front end connects to 127.0.0.1:65432 after it inserts or
deletes a task and sends the command "update". The loop runs one cycle and
answers "Done". Any other non-empty payload is answered "Done" without a
cycle. If no command arrives within the idle window (60s by default) the
loop reconciles anyway, so completions and status changes are picked up
without front end activity.

# Protocol

	client                          nbsched
	  │  connect                       │
	  │──────────── "update" ─────────▶│
	  │                                │ Reconcile
	  │◀─────────── "Done" ────────────│
	  │  close (or send again)         │

Commands are read in chunks of up to 1024 bytes and trimmed. One client is
served at a time; a client that stays connected but silent for a full idle
window is dropped and a timer cycle runs.

# Cycles

Cycles never overlap: the loop is single threaded and a client waits for
its ack while the cycle runs. The first cycle after start is a bootstrap
cycle that also recreates missing endpoints. Settings are reloaded before
every cycle, so edits to the settings file apply to the next cycle.
Reconciliation errors are logged and recorded in the health registry; the
loop keeps serving.

Notify is the client side used by "nbsched trigger".
*/
package trigger
