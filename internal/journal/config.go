package journal

import "fmt"

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "journal.db"
	defaultMaxEntries  = 10000
	defaultBuffer      = 1024
)

// Config holds the journal.sqlite component configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/journal.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// MaxEntries caps the number of rows kept; the oldest are pruned.
	// Zero means the default, a negative value disables pruning.
	MaxEntries int `yaml:"max_entries"`

	// Buffer is the number of notifications queued for the writer before
	// new ones are dropped. Defaults to 1024.
	Buffer int `yaml:"buffer"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = defaultMaxEntries
	}
	if c.Buffer == 0 {
		c.Buffer = defaultBuffer
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("journal: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Buffer < 0 {
		return fmt.Errorf("journal: buffer must be non-negative, got %d", c.Buffer)
	}
	return nil
}
