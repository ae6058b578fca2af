// Package daemonconfig loads the small ini-format config file shared by
// the darshan-go daemons (darshan-ingest, darshan-serve): broker
// addresses, database URI, cluster name. darshan-parser has no config
// file of its own — it is a single-shot CLI driven entirely by flags
// (SPEC_FULL.md §3.3) — so this package is only ever used by the
// daemon binaries.
//
// Modeled on the teacher's common/inifile.go: a package-level parser
// and typed field accessors built with github.com/lars-t-hansen/ini.
package daemonconfig

import (
	"fmt"
	"os"

	ini "github.com/lars-t-hansen/ini"
)

var (
	parser  = ini.NewParser()
	section = parser.AddSection("darshan-daemon")

	fieldCluster     = section.AddString("cluster")
	fieldKafkaBroker = section.AddString("kafka-broker")
	fieldDatabaseURI = section.AddString("database-uri")
	fieldListenAddr  = section.AddString("listen-addr")
)

// Config is the resolved set of daemon settings.
type Config struct {
	Cluster     string
	KafkaBroker string
	DatabaseURI string
	ListenAddr  string
}

// Load parses the ini file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("daemonconfig: %w", err)
	}
	defer f.Close()

	store, err := parser.Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("daemonconfig: parse %s: %w", path, err)
	}

	return Config{
		Cluster:     fieldCluster.StringVal(store),
		KafkaBroker: fieldKafkaBroker.StringVal(store),
		DatabaseURI: os.ExpandEnv(fieldDatabaseURI.StringVal(store)),
		ListenAddr:  fieldListenAddr.StringVal(store),
	}, nil
}
