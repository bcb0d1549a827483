package types

import (
	"errors"
	"strings"
)

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend         string   `json:"backend" yaml:"backend"`
	DataDir         string   `json:"data_dir" yaml:"data_dir"`
	DBFile          string   `json:"db_file" yaml:"db_file"`
	DependencyTeams []string `json:"dependency_teams" yaml:"dependency_teams"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDBFile is the database file name inside DataDir.
const DefaultDBFile = "backlog.db"

// DefaultDependencyTeams is the dependency team enumeration used when the
// configuration does not name one.
var DefaultDependencyTeams = []string{"PC", "BC", "CC", "Integration", "Auth", "Digital"}

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDBFileInvalid  = errors.New("db_file must be a plain file name")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if strings.ContainsAny(c.DBFile, `/\`) {
		return ErrDBFileInvalid
	}
	return nil
}

// DatabaseFile returns the configured file name or DefaultDBFile.
func (c Config) DatabaseFile() string {
	if c.DBFile == "" {
		return DefaultDBFile
	}
	return c.DBFile
}

// Teams returns the dependency team enumeration in effect.
func (c Config) Teams() []string {
	if len(c.DependencyTeams) == 0 {
		return DefaultDependencyTeams
	}
	return c.DependencyTeams
}

// CanonicalTeam matches team against the enumeration ignoring case and
// surrounding space. It returns the enumerated spelling and true on a match.
func (c Config) CanonicalTeam(team string) (string, bool) {
	team = strings.TrimSpace(team)
	if team == "" {
		return "", false
	}
	for _, t := range c.Teams() {
		if strings.EqualFold(t, team) {
			return t, true
		}
	}
	return "", false
}
