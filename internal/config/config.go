// Package config reads option defaults from an INI file.
//
// The file holds one section per subcommand. Keys are long flag names:
//
//	[setup]
//	wifi_ssid = mywifi
//	wifi_pass = my secure password with spaces
//	apps = https://marketplace-dev.allizom.org/manifest.webapp
//	    https://example.com/manifest.webapp
//
//	[flash]
//	flash_url = ...
//
// Indented continuation lines make multi-line values, which become lists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"

	"github.com/kumar303/ezboot/internal/viper"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "ezboot.ini"

// File is a parsed config file. The zero value is an empty config.
type File struct {
	Path string
	ini  *ini.File
}

// Load parses the file at path. A missing file is not an error: the returned File is empty and Exists
// reports false.
func Load(path string) (*File, error) {
	path = ExpandHome(path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No config file")
		return &File{Path: path}, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &File{Path: path, ini: f}, nil
}

// Exists reports whether a config file was read.
func (f *File) Exists() bool {
	return f != nil && f.ini != nil
}

// Section returns the values of the named section. Multi-line values are returned as []string.
func (f *File) Section(name string) map[string]interface{} {
	values := map[string]interface{}{}
	if !f.Exists() {
		return values
	}

	sec, err := f.ini.GetSection(name)
	if err != nil {
		return values
	}
	for _, key := range sec.Keys() {
		values[key.Name()] = value(key.Value())
	}
	return values
}

// Layers returns the sections in increasing precedence: the default section, every other section in
// file order, and finally the section named after the invoked command.
func (f *File) Layers(command string) []map[string]interface{} {
	if !f.Exists() {
		return nil
	}

	var layers []map[string]interface{}
	for _, sec := range f.ini.Sections() {
		if sec.Name() == command {
			continue
		}
		layers = append(layers, f.Section(sec.Name()))
	}
	return append(layers, f.Section(command))
}

func value(raw string) interface{} {
	if !strings.Contains(raw, "\n") {
		return raw
	}

	var items []string
	for _, ln := range strings.Split(strings.TrimSpace(raw), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			items = append(items, ln)
		}
	}
	return items
}

// Unmarshal decodes the options of command into out. Flags set on the command line win over the config
// file, which wins over flag defaults. out's fields are matched by their mapstructure tags.
func (f *File) Unmarshal(command string, flags *pflag.FlagSet, out interface{}) error {
	v, err := viper.Layered(flags, f.Layers(command)...)
	if err != nil {
		return err
	}

	return v.Unmarshal(out, func(decodeCfg *mapstructure.DecoderConfig) {
		decodeCfg.TagName = "mapstructure"
		// Lists hold one item per line. A single line becomes a one item list, commas and all.
		decodeCfg.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
		decodeCfg.WeaklyTypedInput = true
	})
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
