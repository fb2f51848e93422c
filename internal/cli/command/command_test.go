package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// runApp runs brainctl against a Badger store in dir and returns stdout.
func runApp(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(dir, "brainsync.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		content := "backend: badger\nbadger:\n  dir: " + filepath.Join(dir, "badger") + "\n  gcinterval: 1h\nmetrics:\n  addr: \"\"\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"brainctl", "-c", cfgPath}, args...))
	return stdout.String(), err
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "brainctl" {
		t.Errorf("Name = %q, want brainctl", app.Name)
	}

	commands := make(map[string]bool)
	for _, cmd := range app.Commands {
		commands[cmd.Name] = true
	}
	for _, name := range []string{"serve", "dump", "store", "retrieve", "find"} {
		if !commands[name] {
			t.Errorf("missing command: %s", name)
		}
	}

	flags := make(map[string]bool)
	for _, f := range app.Flags {
		flags[f.Names()[0]] = true
	}
	for _, name := range []string{"config", "output", "wide", "verbose"} {
		if !flags[name] {
			t.Errorf("missing flag: %s", name)
		}
	}
}

func TestStoreRetrieveFind(t *testing.T) {
	dir := t.TempDir()

	out, err := runApp(t, dir, "-o", "json", "store", "Test_Key", `{"test":"test","foo":"bar"}`)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	var res writeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("store output is not JSON: %v (%s)", err, out)
	}
	if res.Key != "test_key" || res.Type != "_stored" || !res.Created {
		t.Errorf("store result = %+v", res)
	}

	if _, err := runApp(t, dir, "store", "test_key", `{"test":"other","foo":"baz"}`); err != nil {
		t.Fatalf("second store: %v", err)
	}

	out, err = runApp(t, dir, "-o", "json", "retrieve", "TEST_KEY")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("retrieve output is not JSON: %v (%s)", err, out)
	}
	if len(items) != 2 || items[1]["foo"] != "baz" {
		t.Errorf("items = %v", items)
	}

	out, err = runApp(t, dir, "-o", "yaml", "find", "test_key", `{"test":"other"}`)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.Contains(out, "foo: baz") {
		t.Errorf("find output = %q", out)
	}
}

func TestRetrieve_Missing(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "retrieve", "missing")

	var exit cli.ExitCoder
	if err == nil || !errors.As(err, &exit) || exit.ExitCode() != 1 {
		t.Errorf("retrieve missing = %v, want exit code 1", err)
	}
}

func TestStore_InvalidJSON(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "store", "k", "{not json")

	var exit cli.ExitCoder
	if err == nil || !errors.As(err, &exit) || exit.ExitCode() != 2 {
		t.Errorf("store invalid JSON = %v, want exit code 2", err)
	}
}

func TestFind_PredicateMustBeObject(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "find", "k", `["a"]`)
	if err == nil || !strings.Contains(err.Error(), "JSON object") {
		t.Errorf("find with array predicate = %v", err)
	}
}

func TestDump_Empty(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "dump")
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.HasPrefix(out, "KEY") {
		t.Errorf("dump output = %q, want table header", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "-o", "xml", "dump")
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("expected an output format error, got %v", err)
	}
}
