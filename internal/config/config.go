// Package config loads CLI settings from an optional .flarum-cli.yml and
// FLARUM_CLI_* environment variables. Flags bound with BindFlags win over
// both.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/flarum/flarum-cli-sub000/internal/codemerge"
)

const (
	// FileName is the config file name, without extension.
	FileName  = ".flarum-cli"
	EnvPrefix = "FLARUM_CLI"
)

// Keys.
const (
	KeyVerbose          = "verbose"
	KeyNoInteraction    = "no_interaction"
	KeySubsystemCommand = "subsystem.command"
	KeySubsystemArgs    = "subsystem.args"
	KeyExtendImport     = "extend.import"
	KeyExtendCollection = "extend.collection"
	KeyMonorepoPackages = "monorepo.packages"
)

// DefaultSubsystemCommand runs the language subsystem.
const DefaultSubsystemCommand = "flarum-cli-lang"

// Config holds the resolved settings.
type Config struct {
	Verbose       bool
	NoInteraction bool

	// Subsystem is the command answering language subsystem requests.
	SubsystemCommand string
	SubsystemArgs    []string

	// ExtendImport and ExtendCollection locate extender registrations.
	ExtendImport     string
	ExtendCollection string

	// MonorepoPackages lists sub-projects, relative to the monorepo root,
	// that commands fan out over.
	MonorepoPackages []string

	// File is the config file that was read, if any.
	File string
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyNoInteraction, false)
	v.SetDefault(KeySubsystemCommand, DefaultSubsystemCommand)
	v.SetDefault(KeySubsystemArgs, []string{})
	v.SetDefault(KeyExtendImport, codemerge.DefaultExtendImport)
	v.SetDefault(KeyExtendCollection, codemerge.DefaultCollection)
	v.SetDefault(KeyMonorepoPackages, []string{})
	return v
}

// BindFlags lets flags override the config file. Flags missing from fs are
// ignored.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, flag := range map[string]string{
		KeyVerbose:       "verbose",
		KeyNoInteraction: "no-interaction",
	} {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the config. An explicit file must exist; otherwise the first
// .flarum-cli.yml found in dirs is used, and having none is fine.
func Load(v *viper.Viper, explicit string, dirs ...string) (*Config, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if explicit != "" || len(dirs) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if explicit != "" || !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Verbose:          v.GetBool(KeyVerbose),
		NoInteraction:    v.GetBool(KeyNoInteraction),
		SubsystemCommand: v.GetString(KeySubsystemCommand),
		SubsystemArgs:    v.GetStringSlice(KeySubsystemArgs),
		ExtendImport:     v.GetString(KeyExtendImport),
		ExtendCollection: v.GetString(KeyExtendCollection),
		MonorepoPackages: v.GetStringSlice(KeyMonorepoPackages),
		File:             v.ConfigFileUsed(),
	}

	if cfg.ExtendImport == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyExtendImport)
	}
	if cfg.ExtendCollection == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyExtendCollection)
	}
	for _, pkg := range cfg.MonorepoPackages {
		if strings.HasPrefix(pkg, "/") || strings.HasPrefix(pkg, "..") {
			return nil, fmt.Errorf("%s: %q must be relative to the monorepo root", KeyMonorepoPackages, pkg)
		}
	}
	return cfg, nil
}
