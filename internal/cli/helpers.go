package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gitsift/gitsift/internal/classify"
	"github.com/gitsift/gitsift/internal/config"
	"github.com/gitsift/gitsift/internal/db"
	"github.com/gitsift/gitsift/internal/diag"
	"github.com/gitsift/gitsift/internal/extension"
	"github.com/gitsift/gitsift/internal/history"
)

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

// newRegistry registers every builtin extension the config does not
// disable.
func newRegistry(cfg *config.Config) (*extension.Registry, error) {
	disabled := make(map[string]bool)
	for _, name := range cfg.Extensions.Disabled {
		disabled[name] = true
	}
	registry := extension.NewRegistry()
	for _, d := range extension.Builtins() {
		if disabled[d.Name] {
			continue
		}
		if err := registry.Register(d); err != nil {
			return nil, fmt.Errorf("register extension %s: %w", d.Name, err)
		}
	}
	return registry, nil
}

// knownExtensionNames returns the builtin name set for config validation.
func knownExtensionNames() map[string]bool {
	known := make(map[string]bool)
	for _, d := range extension.Builtins() {
		known[d.Name] = true
	}
	return known
}

// openDatabase opens and migrates the history database named by the
// config, falling back to the default path. The returned cleanup closes
// it.
func openDatabase(cfg *config.Config) (*db.DB, func(), error) {
	path := cfg.History.DBPath
	if path == "" {
		var err error
		path, err = db.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("db path: %w", err)
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return database, func() { database.Close() }, nil
}

func newReporter(cfg *config.Config) *diag.Reporter {
	return &diag.Reporter{W: os.Stderr, Verbose: cfg.Pipeline.Verbose}
}

// entryFromDB reassembles a history entry from its persisted rows so the
// export format matches in-process exports.
func entryFromDB(database *db.DB, id string) (*history.Entry, error) {
	row, err := database.GetInvocation(id)
	if err != nil {
		return nil, err
	}
	recordRows, err := database.Records(id)
	if err != nil {
		return nil, err
	}
	rawLines, err := database.RawLines(id)
	if err != nil {
		return nil, err
	}

	var records []*classify.Record
	for _, r := range recordRows {
		if r.Kind != "record" {
			continue
		}
		records = append(records, &classify.Record{
			Raw:    r.RawLine,
			Tags:   r.Tags,
			Fields: r.Fields,
		})
	}

	return &history.Entry{
		Key: history.Key{
			InvocationID: row.ID,
			WorkingRoot:  row.WorkingRoot,
			Arguments:    strings.Join(row.Arguments, " "),
		},
		Arguments:   row.Arguments,
		Command:     row.Command,
		WorkingRoot: row.WorkingRoot,
		Timestamp:   row.StartedAt,
		Records:     records,
		RawLines:    rawLines,
	}, nil
}
