// Package config loads the metadata catalog's runtime configuration,
// the same line-oriented "key value" file format and MUSCLE_BASE-style
// environment override as muscle's internal/config (internal/config/config.go),
// adapted to the catalog's configuration keys (spec.md §6).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBaseDirectoryPath is where metacatalogd stores its schema
// directory by default. It defaults to $METACATALOG_BASE if set,
// otherwise $HOME/lib/metacatalog, mirroring muscle's MUSCLE_BASE
// default (internal/config/config.go's init).
var DefaultBaseDirectoryPath string

func init() {
	if base := os.Getenv("METACATALOG_BASE"); base != "" {
		DefaultBaseDirectoryPath = base
	} else {
		DefaultBaseDirectoryPath = os.ExpandEnv("$HOME/lib/metacatalog")
	}
}

// Default values applied when the corresponding key is absent from the
// config file.
const (
	DefaultCacheSize              = 4096
	DefaultTagAttributeTotalSize  = 700
	DefaultStorageGroupLevel      = 1
	DefaultAutoCreateSchema       = true
	DefaultEnableParameterAdapter = false
)

// C holds the catalog's runtime configuration (spec.md §6
// Configuration, enumerated).
type C struct {
	// SchemaDir is the directory holding mlog.txt and tlog.bin.
	// Defaults to base itself if unset.
	SchemaDir string

	// MManagerCacheSize is the node cache's capacity.
	MManagerCacheSize int

	// TagAttributeTotalSize is the tag file's fixed record size in
	// bytes.
	TagAttributeTotalSize int

	// AutoCreateSchemaEnabled gates auto-materializing a storage group
	// on create_timeseries when none exists yet.
	AutoCreateSchemaEnabled bool

	// DefaultStorageGroupLevel is the tree depth at which auto-create
	// materializes a storage group.
	DefaultStorageGroupLevel int

	// EnableParameterAdapter gates counter and external-adapter calls.
	EnableParameterAdapter bool

	// Remote byte source settings (spec.md §1 "remote filesystem adapters
	// providing a seekable byte source"). They are parsed and stored only;
	// nothing in this module builds a remote byte source from them.
	S3Region  string
	S3Bucket  string
	S3Profile string
	S3Key     string

	base string
}

// Load loads configuration from the file called "config" in the given
// base directory, the same file-mode and scanning discipline as
// muscle's config.Load (internal/config/config.go).
func Load(base string) (*C, error) {
	filename := filepath.Join(base, "config")
	fi, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if fi.Mode()&0077 != 0 {
		return nil, fmt.Errorf("config.Load %q: mode is %#o, want at most %#o",
			filename, fi.Mode()&0777, fi.Mode()&0700)
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c, err := load(f)
	if err != nil {
		return nil, err
	}
	c.base = base
	if c.SchemaDir == "" {
		c.SchemaDir = base
	}
	if c.MManagerCacheSize == 0 {
		c.MManagerCacheSize = DefaultCacheSize
	}
	if c.TagAttributeTotalSize == 0 {
		c.TagAttributeTotalSize = DefaultTagAttributeTotalSize
	}
	return c, nil
}

func load(f io.Reader) (*C, error) {
	c := C{
		AutoCreateSchemaEnabled:  DefaultAutoCreateSchema,
		DefaultStorageGroupLevel: DefaultStorageGroupLevel,
		EnableParameterAdapter:   DefaultEnableParameterAdapter,
	}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		i := strings.IndexAny(line, " \t")
		if i == -1 {
			return nil, fmt.Errorf("load: no separator in %q", line)
		}
		key, val := line[:i], strings.TrimSpace(line[i:])
		if err := c.setKey(key, val); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return &c, nil
}

func (c *C) setKey(key, val string) error {
	switch key {
	case "schema-dir":
		c.SchemaDir = val
	case "mmanager-cache-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("load: mmanager-cache-size: %w", err)
		}
		c.MManagerCacheSize = n
	case "tag-attribute-total-size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("load: tag-attribute-total-size: %w", err)
		}
		c.TagAttributeTotalSize = n
	case "auto-create-schema-enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("load: auto-create-schema-enabled: %w", err)
		}
		c.AutoCreateSchemaEnabled = b
	case "default-storage-group-level":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("load: default-storage-group-level: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("load: default-storage-group-level: must be non-negative, got %d", n)
		}
		c.DefaultStorageGroupLevel = n
	case "enable-parameter-adapter":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("load: enable-parameter-adapter: %w", err)
		}
		c.EnableParameterAdapter = b
	case "s3-region":
		c.S3Region = val
	case "s3-bucket":
		c.S3Bucket = val
	case "s3-profile":
		c.S3Profile = val
	case "s3-key":
		c.S3Key = val
	default:
		return fmt.Errorf("load: unknown key %q", key)
	}
	return nil
}

// Initialize generates an initial configuration file at baseDir,
// mirroring muscle's config.Initialize (internal/config/config.go).
func Initialize(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("%q: could not mkdir: %w", baseDir, err)
	}
	path := filepath.Join(baseDir, "config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%q: already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%q: could not determine if it exists: %w", path, err)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "mmanager-cache-size %d\n", DefaultCacheSize)
	fmt.Fprintf(&buf, "tag-attribute-total-size %d\n", DefaultTagAttributeTotalSize)
	fmt.Fprintf(&buf, "auto-create-schema-enabled %t\n", DefaultAutoCreateSchema)
	fmt.Fprintf(&buf, "default-storage-group-level %d\n", DefaultStorageGroupLevel)
	fmt.Fprintf(&buf, "enable-parameter-adapter %t\n", DefaultEnableParameterAdapter)
	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("config.Initialize %q: %w", path, err)
	}
	return nil
}
