package schema

import (
	"fmt"
	"io"

	"github.com/spf13/viper"
)

type file struct {
	Defaults struct {
		RowsPerPage int  `mapstructure:"rows_per_page"`
		Remote      bool `mapstructure:"remote"`
	} `mapstructure:"defaults"`
	Tables []Table `mapstructure:"tables"`
}

// Load reads table definitions from a YAML file.
func Load(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read grid definitions: %w", err)
	}
	return decode(v)
}

// Read reads table definitions from r in the given format ("yaml", "json").
func Read(r io.Reader, format string) (*Registry, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read grid definitions: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Registry, error) {
	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decode grid definitions: %w", err)
	}

	reg := NewRegistry()
	for _, t := range f.Tables {
		if t.RowsPerPage == 0 {
			t.RowsPerPage = f.Defaults.RowsPerPage
		}
		if !t.Remote {
			t.Remote = f.Defaults.Remote
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
