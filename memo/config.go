package memo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
)

const (
	// UnlimitedCacheAge disables age-based eviction for an entry.
	// Entries with this max age are only removed when orphaned or
	// explicitly invalidated.
	UnlimitedCacheAge = 0

	// DefaultCacheAge is the retention window applied when the caller
	// does not pick one.
	DefaultCacheAge = 7

	// defaultMaxWriteBytes caps a single write syscall when persisting
	// artifacts. Larger payloads are written in chunks of this size.
	defaultMaxWriteBytes = 1<<31 - 1
)

// Config contains all cache configuration options.
type Config struct {
	// Dir is the directory holding the metadata file and all artifacts.
	// Supports $VAR and ~ expansion.
	Dir string `yaml:"dir" env:"MEMODISK_CACHE_DIR"`

	// MetadataFile is the name of the metadata record inside Dir.
	// Supports $VAR and ~ expansion.
	MetadataFile string `yaml:"metadata_file" env:"MEMODISK_CACHE_FILENAME" envDefault:"memodisk_caches.json"`

	// DefaultMaxAgeDays is the retention window used by MemoizeDefault.
	DefaultMaxAgeDays int `yaml:"default_max_age_days" env:"MEMODISK_DEFAULT_MAX_AGE_DAYS" envDefault:"7"`

	// MaxWriteBytes limits the size of a single artifact write or read
	// operation. Payloads beyond it are chunked.
	MaxWriteBytes int `yaml:"max_write_bytes" env:"MEMODISK_MAX_WRITE_BYTES" envDefault:"2147483647"`

	// EnableCompression wraps the payload codec with zstd.
	EnableCompression bool `yaml:"compression" env:"MEMODISK_COMPRESSION" envDefault:"true"`

	// CompressionLevel is the zstd level (1-22) used when compression is
	// enabled.
	CompressionLevel int `yaml:"compression_level" env:"MEMODISK_COMPRESSION_LEVEL" envDefault:"3"`

	// Codec overrides the payload encoding. Defaults to gob.
	Codec Codec `yaml:"-" env:"-"`

	// Logger receives structured cache events. Defaults to a discard
	// logger so the library stays silent unless a sink is supplied.
	Logger *log.Logger `yaml:"-" env:"-"`
}

// DefaultConfig returns a Config with sensible defaults. The cache directory
// resolves to the platform user cache location for memodisk.
func DefaultConfig() Config {
	return Config{
		Dir:               defaultCacheDir(),
		MetadataFile:      "memodisk_caches.json",
		DefaultMaxAgeDays: DefaultCacheAge,
		MaxWriteBytes:     defaultMaxWriteBytes,
		EnableCompression: true,
		CompressionLevel:  3,
	}
}

// FromEnv builds a Config from the environment on top of the defaults.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, fmt.Errorf("error parsing config: %w", err)
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultCacheDir()
	}
	return cfg, nil
}

// Validate checks the configuration for values the cache cannot run with.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: cache directory required", ErrConfiguration)
	}
	if c.MetadataFile == "" {
		return fmt.Errorf("%w: metadata filename required", ErrConfiguration)
	}
	if filepath.Base(c.MetadataFile) != c.MetadataFile {
		return fmt.Errorf("%w: metadata filename must not contain path separators", ErrConfiguration)
	}
	if c.MaxWriteBytes <= 0 {
		return fmt.Errorf("%w: max write bytes must be positive", ErrConfiguration)
	}
	if c.EnableCompression && (c.CompressionLevel < 1 || c.CompressionLevel > 22) {
		return fmt.Errorf("%w: compression level must be between 1 and 22", ErrConfiguration)
	}
	return nil
}

// logger returns the configured sink, or a discard logger.
func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard)
}

// expandPath resolves shell variables and a leading tilde in p.
func expandPath(p string) (string, error) {
	expanded, err := homedir.Expand(os.ExpandEnv(p))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return expanded, nil
}

func defaultCacheDir() string {
	scope := gap.NewScope(gap.User, "memodisk")
	dir, err := scope.CacheDir()
	if err != nil || dir == "" {
		return filepath.Join(os.TempDir(), "memodisk")
	}
	return dir
}
