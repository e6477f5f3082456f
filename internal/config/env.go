// ABOUTME: Environment and .env overrides for command-line flags
// ABOUTME: Flags not given on the command line fall back to PREFIX_FLAG_NAME variables
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvName maps a flag name to its environment variable, e.g.
// ("AUDIOSTREAM", "max-buffer-seconds") -> "AUDIOSTREAM_MAX_BUFFER_SECONDS"
func EnvName(prefix, flagName string) string {
	name := strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// ApplyEnv sets every flag of fs that was not given on the command line
// from the environment, then from the .env files in order. Missing files
// are skipped. Must be called after fs.Parse.
func ApplyEnv(fs *flag.FlagSet, prefix string, files ...string) error {
	fileValues := make(map[string]string)
	for _, file := range files {
		if file == "" {
			continue
		}
		values, err := godotenv.Read(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			if _, ok := fileValues[k]; !ok {
				fileValues[k] = v
			}
		}
	}

	given := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })

	var errs []error
	fs.VisitAll(func(f *flag.Flag) {
		if given[f.Name] {
			return
		}
		key := EnvName(prefix, f.Name)
		value, ok := os.LookupEnv(key)
		if !ok {
			value, ok = fileValues[key]
		}
		if !ok {
			return
		}
		if err := fs.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	})
	return errors.Join(errs...)
}
