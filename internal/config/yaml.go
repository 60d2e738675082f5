// Package config loads flag defaults from YAML files for kong.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong.ConfigurationLoader reading a flat mapping of flag names
// to values, e.g.
//
//	server: https://admin.example.com
//	timeout: 20s
//	postgres_host: db.internal
//
// Keys match the flag name with either dashes or underscores. Flags set on
// the command line or through the environment take precedence.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}

	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return kong.ResolverFunc(func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, key := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[key]; ok {
				return v, nil
			}
		}
		return nil, nil
	}), nil
}

// DefaultPath is ~/.admindash/config.yaml. Missing files are ignored by
// kong.Configuration.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".admindash", "config.yaml")
}
