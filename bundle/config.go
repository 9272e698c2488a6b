package bundle

// Config holds configuration for the Stager.
type Config struct {
	// ResourceTable is the name of the table holding document version
	// rows. Partition key "id" (string, tenant scoped), sort key "vid"
	// (number).
	// Default: "sheaf_resources"
	ResourceTable string
}

// DefaultConfig returns the default table layout.
func DefaultConfig() Config {
	return Config{
		ResourceTable: "sheaf_resources",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.ResourceTable == "" {
		c.ResourceTable = "sheaf_resources"
	}
}
