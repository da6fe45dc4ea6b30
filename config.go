package depot

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds package-wide defaults. Worlds copy what they need when they
// are created, so changes only affect worlds created afterwards.
var Config config = config{
	logger:         zerolog.Nop(),
	defaultStorage: StorageTable,
	tableCapacity:  64,
	sparseCapacity: 64,
	entityCapacity: 1024,
}

type config struct {
	logger         zerolog.Logger
	defaultStorage StorageType
	tableCapacity  int
	sparseCapacity int
	entityCapacity int
}

// Settings is the YAML form of Config.
type Settings struct {
	LogLevel       string `yaml:"log_level"`
	DefaultStorage string `yaml:"default_storage"`
	TableCapacity  int    `yaml:"table_capacity"`
	SparseCapacity int    `yaml:"sparse_capacity"`
	EntityCapacity int    `yaml:"entity_capacity"`
}

// SetLogger sets the logger for registration, archetype and table events.
func (c *config) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

func (c *config) Logger() zerolog.Logger {
	return c.logger
}

// SetDefaultStorage sets the storage type for components created without
// WithStorage.
func (c *config) SetDefaultStorage(storage StorageType) {
	c.defaultStorage = storage
}

func (c *config) SetTableCapacity(n int) {
	c.tableCapacity = n
}

func (c *config) SetSparseCapacity(n int) {
	c.sparseCapacity = n
}

func (c *config) SetEntityCapacity(n int) {
	c.entityCapacity = n
}

// LoadYAML decodes Settings from r and applies them.
func (c *config) LoadYAML(r io.Reader) error {
	var s Settings
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return eris.Wrap(err, "failed to decode depot settings")
	}
	return c.Apply(s)
}

// Apply sets every non-zero field of s. Nothing changes if any field is
// invalid.
func (c *config) Apply(s Settings) error {
	next := *c
	if s.LogLevel != "" {
		level, err := zerolog.ParseLevel(s.LogLevel)
		if err != nil {
			return eris.Wrapf(err, "invalid log level %q", s.LogLevel)
		}
		next.logger = next.logger.Level(level)
	}
	if s.DefaultStorage != "" {
		storage, err := ParseStorageType(s.DefaultStorage)
		if err != nil {
			return err
		}
		next.defaultStorage = storage
	}
	for _, n := range []int{s.TableCapacity, s.SparseCapacity, s.EntityCapacity} {
		if n < 0 {
			return eris.Errorf("capacity must not be negative, got %d", n)
		}
	}
	if s.TableCapacity > 0 {
		next.tableCapacity = s.TableCapacity
	}
	if s.SparseCapacity > 0 {
		next.sparseCapacity = s.SparseCapacity
	}
	if s.EntityCapacity > 0 {
		next.entityCapacity = s.EntityCapacity
	}
	*c = next
	return nil
}

func ParseStorageType(s string) (StorageType, error) {
	switch s {
	case StorageTable.String():
		return StorageTable, nil
	case StorageSparseSet.String():
		return StorageSparseSet, nil
	}
	return 0, eris.Errorf("unknown storage type %q", s)
}
