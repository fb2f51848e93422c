// Package command defines the brainctl commands using urfave/cli/v2:
//
//   - root.go: application, global flags, shared setup
//   - serve.go: run a brain persisted by the sync engine
//   - records.go: dump private records, store/retrieve/find side-collection items
//
// One-shot commands open the configured document store, run a single
// operation and print the result in the selected output format.
package command
