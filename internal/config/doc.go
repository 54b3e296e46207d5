// Package config provides scoped, schema-validated configuration.
//
// Configuration is split into sections (compilers, mirrors, repos, packages,
// modules, config). Each scope is a directory holding one YAML file per
// section; scopes are ranked and higher scopes override lower ones:
//
//	┌──────────────────────────────┐
//	│  user/<platform>             │  ← Highest priority
//	├──────────────────────────────┤
//	│  user      ~/.scopecfg       │
//	├──────────────────────────────┤
//	│  site/<platform>             │
//	├──────────────────────────────┤
//	│  site      <prefix>/etc/...  │
//	├──────────────────────────────┤
//	│  defaults/<platform>         │
//	├──────────────────────────────┤
//	│  defaults                    │  ← Lowest priority
//	└──────────────────────────────┘
//
// A scope's file blends with lower scopes: mappings merge key by key and
// lists are prepended. A root key written with a trailing "::" instead
// replaces everything below it:
//
//	# ~/.scopecfg/config.yaml
//	config::
//	  build_jobs: 8
//
// # Sub-packages
//
//   - tree: ordered configuration trees with source positions
//   - schema: JSON Schema validation with default injection
//   - registry: the set of known sections and their schemas
//   - loader: YAML section files, TOML scope manifests, environment
//   - scope: scopes, their caches, precedence and merging
//   - watcher: file watching for cache invalidation
//   - notify: change notification and observer pattern
//
// # Basic Usage
//
//	cfg, err := config.Open(config.Bootstrap{})
//	if err != nil {
//	    return err
//	}
//
//	packages, err := cfg.Resolve("packages", "")
//	jobs, err := cfg.GetInt("config.build_jobs")
//
// # Error Handling
//
//   - ErrUnknownSection: section name is not registered
//   - ErrUnknownScope, ErrNoScopes: scope cannot be selected
//   - FileError: a section path exists but cannot be read or written
//   - ParseError: malformed YAML, with file and line
//   - SchemaValidationError: schema violation, with field path and line
//
// A section file whose root key is neither the section name nor its
// override form is skipped with a MalformedScopeWarning.
package config
