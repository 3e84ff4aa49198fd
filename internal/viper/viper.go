// Package viper provides convenience functions over the official spf13/viper library.
// In particular, it satisfies the need of providing pre-configured viper instances.
package viper

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// KeyDelimiter separates nested keys. Flag names contain dots and dashes, so neither can be used.
const KeyDelimiter = "::"

// New returns a pre-configured instance of viper.
func New() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))
}

// Layered returns an instance in which flags explicitly set on the command line take precedence over
// the given layers. Later layers take precedence over earlier ones. Flag defaults apply last.
func Layered(flags *pflag.FlagSet, layers ...map[string]interface{}) (*viper.Viper, error) {
	v := New()
	for _, layer := range layers {
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, err
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}
	return v, nil
}
