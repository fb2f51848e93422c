// Package shutdown coordinates graceful process shutdown.
//
// A Handler waits for SIGINT, SIGTERM or an explicit Trigger, then runs the
// registered hooks in reverse order of registration under a shared timeout.
package shutdown
