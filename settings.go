package confluo

// Config holds the configuration settings for the service.
type Config struct {
	// DataFolder is where store data logs are kept.
	DataFolder string `mapstructure:"data_folder"`

	// Host is the host:port the HTTP API listens on.
	Host string `mapstructure:"host"`

	// AuthSecret, when non-empty, enables JWT bearer authentication on
	// the HTTP API using this HS256 signing key.
	AuthSecret string `mapstructure:"auth_secret"`
}

var globalConfig Config

func init() {
	globalConfig = Config{
		DataFolder: "./data",
		Host:       "0.0.0.0:9090",
	}
}

// Configure replaces the global configuration.
func Configure(cfg Config) {
	globalConfig = cfg
}

// GlobalConfig returns the current configuration.
func GlobalConfig() Config {
	return globalConfig
}
