// Command metacatalogd runs the metadata catalog as a long-lived
// process: it opens an MManager over a schema directory, replaying its
// operation log, and keeps it open until a signal asks it to flush and
// exit.
//
// Grounded on cmd/musclefs/musclefs.go's main: gops agent, signal.Notify
// on SIGHUP/SIGINT/SIGTERM, and a blocking loop that flushes before
// quitting. metacatalogd has no 9P (or any other) transport surface
// (spec.md Non-goals); it exists so the catalog's log and tag file stay
// open and consistent for as long as the process runs, the way
// musclefs keeps its tree store open between 9P requests.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"

	"github.com/catalogdb/metacatalog/config"
	"github.com/catalogdb/metacatalog/mmanager"
)

func main() {
	// Do NOT turn on agent.ShutdownCleanup: the installed signal
	// handler below needs to run its own flush before exiting.
	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("Could not start gops agent: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	base := flag.String("base", config.DefaultBaseDirectoryPath, "Base directory for configuration and schema files")
	flag.Parse()

	cfg, err := config.Load(*base)
	if err != nil {
		log.Fatalf("Could not load config from %q: %v", *base, err)
	}

	// Adapter and StorageEngine are left nil: Open defaults both to
	// no-op implementations. A deployment that needs a real
	// ParameterAdapter or StorageEngine (e.g. backed by the catalog's
	// own consumer system) wires one in here before calling Open.
	m, err := mmanager.Open(mmanager.Options{
		SchemaDir:                cfg.SchemaDir,
		CacheCapacity:            cfg.MManagerCacheSize,
		TagRecordBytes:           cfg.TagAttributeTotalSize,
		AutoCreateSchemaEnabled:  cfg.AutoCreateSchemaEnabled,
		DefaultStorageGroupLevel: cfg.DefaultStorageGroupLevel,
		EnableParameterAdapter:   cfg.EnableParameterAdapter,
	})
	if err != nil {
		log.Fatalf("Could not open catalog at %q: %v", cfg.SchemaDir, err)
	}

	log.Printf("Catalog open at %q, awaiting a signal to close and exit.", cfg.SchemaDir)
	for sig := range sigc {
		log.Printf("Got signal %q, closing before exiting.", sig)
		if err := m.Close(); err != nil {
			log.Printf("Close failed, won't quit: %v", err)
			continue
		}
		log.Print("Closed, quitting.")
		break
	}
	agent.Close()
}
