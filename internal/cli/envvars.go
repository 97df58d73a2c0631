// Package cli parses command line flags that can also be provided as environment variables.
package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// EnvVarPrefix is prepended to the upper-cased flag name to derive its environment variable.
const EnvVarPrefix = "VOICETRUST_"

// ParseFlagsWithEnvVars parses the command line using the flags' environment variables as defaults
// and sets up logging.
func ParseFlagsWithEnvVars(flags *flag.FlagSet) {
	err := parseFlags(flags, os.Args[1:], os.Environ())
	if err != nil {
		flags.Usage()
		slog.Error(err.Error())
		os.Exit(2)
	}

	SetupLogging()
}

func parseFlags(flags *flag.FlagSet, args, environ []string) error {
	addLogFlags(flags)

	supportedEnvVars := map[string]struct{}{}
	env := map[string]string{}

	for _, entry := range environ {
		if k, v, ok := strings.Cut(entry, "="); ok && strings.HasPrefix(k, EnvVarPrefix) {
			env[k] = v
		}
	}

	var err error

	flags.VisitAll(func(f *flag.Flag) {
		envVarName := envVarName(f.Name)
		f.Usage = fmt.Sprintf("%s (%s)", f.Usage, envVarName)
		supportedEnvVars[envVarName] = struct{}{}

		if value := env[envVarName]; value != "" && err == nil {
			f.DefValue = value
			if e := f.Value.Set(value); e != nil {
				err = fmt.Errorf("invalid environment variable %s value provided: %w", envVarName, e)
			}
		}
	})
	if err != nil {
		return err
	}

	for k := range env {
		if _, ok := supportedEnvVars[k]; !ok {
			return fmt.Errorf("unsupported environment variable provided: %s", k)
		}
	}

	return flags.Parse(args)
}

func envVarName(flagName string) string {
	return EnvVarPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
