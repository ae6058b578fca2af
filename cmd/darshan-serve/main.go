// Command darshan-serve runs the typed REST query API over previously
// ingested job summaries.
package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/nersc/darshan-go/internal/apiserver"
	"github.com/nersc/darshan-go/internal/daemonconfig"
	"github.com/nersc/darshan-go/internal/status"
	"github.com/nersc/darshan-go/internal/store"
)

func main() {
	configPath := flag.String("config", "/etc/darshan-go/serve.ini", "path to daemon config file")
	flag.Parse()

	if err := status.StartSyslog("darshan-serve"); err != nil {
		status.Default().Warningf("syslog unavailable, logging to stderr only: %v", err)
	}

	cfg, err := daemonconfig.Load(*configPath)
	if err != nil {
		status.Fatalf("%v", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabaseURI)
	if err != nil {
		status.Fatalf("%v", err)
	}
	defer db.Close(ctx)

	handler := apiserver.New(db)

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	status.Default().Infof("darshan-serve: listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		status.Fatalf("%v", err)
	}
}
