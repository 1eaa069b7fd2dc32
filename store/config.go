package store

// Config holds configuration for the Repository.
type Config struct {
	// TableName is the name of the document pointer table.
	// Default: "document-pointer"
	TableName string

	// IndexName is the global secondary index keyed by doc_key.
	// Default: "dockey_gsi"
	IndexName string

	// PageSize bounds the items evaluated per query page.
	// Default: 0 (store default, 1MB pages)
	// Max: 1000
	PageSize int32
}

const (
	defaultTableName = "document-pointer"
	defaultIndexName = "dockey_gsi"
	maxPageSize      = 1000
)

// DefaultConfig returns the production table layout.
func DefaultConfig() Config {
	return Config{
		TableName: defaultTableName,
		IndexName: defaultIndexName,
	}
}

// WithPrefix returns the default config with the table name prefixed by an
// environment prefix (e.g. "nrlf--dev-").
func WithPrefix(prefix string) Config {
	cfg := DefaultConfig()
	cfg.TableName = prefix + cfg.TableName
	return cfg
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = defaultTableName
	}
	if c.IndexName == "" {
		c.IndexName = defaultIndexName
	}
	if c.PageSize < 0 {
		c.PageSize = 0
	}
	if c.PageSize > maxPageSize {
		c.PageSize = maxPageSize
	}
}
