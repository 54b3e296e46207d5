package loader

import (
	"os"
	"strings"
)

// EnvPrefix is the prefix of the tool's environment variables.
const EnvPrefix = "SCOPECFG_"

// EnvLoader loads bootstrap settings from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "SCOPECFG_")
	mapping map[string]string // Env var -> setting key
	lookup  func(string) (string, bool)
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "SCOPECFG_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		lookup:  os.LookupEnv,
	}
}

// NewEnvLoaderWithMapping creates a loader with custom environment variable mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		lookup:  os.LookupEnv,
	}
}

// defaultEnvMapping returns the default environment variable mappings.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "PREFIX":           "prefix",
		prefix + "USER_CONFIG_PATH": "user_dir",
		prefix + "PLATFORM":         "platform",
		prefix + "SCOPES_FILE":      "scopes_file",
		prefix + "LOG_LEVEL":        "log_level",
	}
}

// WithLookup replaces the environment lookup function. Tests use it to avoid
// touching the process environment.
func (l *EnvLoader) WithLookup(lookup func(string) (string, bool)) *EnvLoader {
	l.lookup = lookup
	return l
}

// Load reads the mapped environment variables and returns them keyed by
// setting. Empty values are treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, key := range l.mapping {
		val, ok := l.lookup(env)
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		config[key] = val
	}

	return config, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, key string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = key
}
