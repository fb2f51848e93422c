package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/brainsync/internal/brainsync"
	"github.com/yndnr/brainsync/internal/cli/output"
	"github.com/yndnr/brainsync/internal/core/domain"
)

// DumpCommand lists the persisted private records.
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:   "dump",
		Usage:  "List persisted private brain records",
		Action: dumpAction,
	}
}

// StoreCommand appends an item to a side-collection key.
func StoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "store",
		Usage:     "Append a JSON item to a stored collection",
		ArgsUsage: "KEY JSON",
		Action:    storeAction,
	}
}

// RetrieveCommand prints a whole side-collection array.
func RetrieveCommand() *cli.Command {
	return &cli.Command{
		Name:      "retrieve",
		Usage:     "Print every item of a stored collection",
		ArgsUsage: "KEY",
		Action:    retrieveAction,
	}
}

// FindCommand prints the first side-collection item matching a predicate.
func FindCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Print the first stored item whose fields match a JSON object",
		ArgsUsage: "KEY JSON-PREDICATE",
		Action:    findAction,
	}
}

// recordList is the dump result.
type recordList []domain.Record

func (l recordList) Table() *output.Table {
	t := output.NewTable("KEY", "UPDATED", "VALUE")
	for _, rec := range l {
		t.AddRow(rec.Key, formatTime(rec.UpdatedAt), output.Compact(rec.Value))
	}
	return t
}

// writeResult is the store result.
type writeResult struct {
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	Created   bool      `json:"created"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r writeResult) Table() *output.Table {
	t := output.NewTable("KEY", "TYPE", "CREATED", "UPDATED")
	t.AddRow(r.Key, r.Type, strconv.FormatBool(r.Created), formatTime(r.UpdatedAt))
	return t
}

// itemList is the retrieve result.
type itemList []any

func (l itemList) Table() *output.Table {
	t := output.NewTable("#", "ITEM")
	for i, item := range l {
		t.AddRow(strconv.Itoa(i), output.Compact(item))
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func dumpAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	gw, err := e.openGateway(c.Context)
	if err != nil {
		return err
	}
	defer gw.Close(c.Context)

	records, err := gw.FindByType(c.Context, domain.TypePrivate)
	if err != nil {
		return err
	}
	return e.print(c, recordList(records))
}

func storeAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: brainctl store KEY JSON", 2)
	}
	item, err := parseJSON(c.Args().Get(1))
	if err != nil {
		return err
	}

	return withAdapter(c, func(e *env, a *brainsync.Adapter) error {
		res, err := a.Store(c.Context, c.Args().Get(0), item)
		if err != nil {
			return err
		}
		return e.print(c, writeResult{
			Key:       res.Key,
			Type:      string(res.Type),
			Created:   res.Created,
			UpdatedAt: res.UpdatedAt,
		})
	})
}

func retrieveAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: brainctl retrieve KEY", 2)
	}
	key := c.Args().Get(0)

	return withAdapter(c, func(e *env, a *brainsync.Adapter) error {
		items, ok, err := a.Retrieve(c.Context, key)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit(fmt.Sprintf("no stored collection %q", key), 1)
		}
		return e.print(c, itemList(items))
	})
}

func findAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: brainctl find KEY JSON-PREDICATE", 2)
	}
	key := c.Args().Get(0)

	raw, err := parseJSON(c.Args().Get(1))
	if err != nil {
		return err
	}
	predicate, ok := raw.(map[string]any)
	if !ok {
		return cli.Exit("predicate must be a JSON object", 2)
	}

	return withAdapter(c, func(e *env, a *brainsync.Adapter) error {
		elem, ok, err := a.Find(c.Context, key, predicate)
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit(fmt.Sprintf("no item of %q matches", key), 1)
		}
		return e.print(c, elem)
	})
}

// withAdapter runs fn with an adapter over the configured store. Side-collection
// operations need no host, so nothing is loaded.
func withAdapter(c *cli.Context, fn func(*env, *brainsync.Adapter) error) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	gw, err := e.openGateway(c.Context)
	if err != nil {
		return err
	}

	a := brainsync.New(nil, gw, adapterOptions(e))
	defer a.Close(c.Context)

	return fn(e, a)
}

func adapterOptions(e *env) brainsync.Options {
	return brainsync.Options{
		SaveInterval:      e.cfg.Save.Interval,
		MaxInflightWrites: e.cfg.Save.MaxInflight,
		Logger:            e.log,
	}
}

func parseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid JSON %q: %v", s, err), 2)
	}
	return v, nil
}
