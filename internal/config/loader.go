package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

// FileEnv names the optional config file. Environment variables override
// values read from it.
const FileEnv = "CONFIG_FILE"

// Load reads configuration from the environment and, when CONFIG_FILE is
// set, from that file. Defaults fill unset values and the result is
// validated.
func Load() (*Config, error) {
	v := viper.New()
	if err := bindStruct(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("config bind: %w", err)
	}

	if err := v.BindEnv("config_file", FileEnv); err != nil {
		return nil, fmt.Errorf("config bind: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := loadStruct(v, reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// bindStruct registers every tagged field of t with v: its env variable,
// the alternate name and the default.
func bindStruct(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := prefix + snakeCase(field.Name)

		if field.Type.Kind() == reflect.Struct {
			if err := bindStruct(v, field.Type, key+"."); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		names := []string{key, envName}
		if alt := field.Tag.Get("envAlt"); alt != "" {
			names = append(names, alt)
		}
		if err := v.BindEnv(names...); err != nil {
			return err
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
		}
	}
	return nil
}

// loadStruct populates struct fields from the values bound in v.
func loadStruct(v *viper.Viper, rv reflect.Value, prefix string) error {
	t := rv.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := rv.Field(i)
		key := prefix + snakeCase(field.Name)

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(v, fieldVal, key+"."); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required setting %s is not set", envName)
			}
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}
	return nil
}

// setField parses value into a string, integer, duration or bool field.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(value)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(int64(n))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// snakeCase turns a Go field name into a config key: RowsPerPage becomes
// rows_per_page and URL becomes url.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (unicode.IsLower(runes[i-1]) || nextLower) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation (only when a database is configured)
	if c.Database.Enabled() {
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Grid validation
	if c.Grid.Definitions == "" {
		errs = append(errs, "GRID_DEFINITIONS is required")
	}
	if c.Grid.RowsPerPage < 0 {
		errs = append(errs, "GRID_ROWS_PER_PAGE must be non-negative")
	}
	if c.Grid.PagesToDisplay <= 0 {
		errs = append(errs, "GRID_PAGES_TO_DISPLAY must be positive")
	}
	if c.Grid.FetchTimeout <= 0 {
		errs = append(errs, "FETCH_TIMEOUT must be positive")
	}
	if c.Grid.MaxViews <= 0 {
		errs = append(errs, "GRID_MAX_VIEWS must be positive")
	}
	if c.Grid.ViewWait <= 0 {
		errs = append(errs, "GRID_VIEW_WAIT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	dbURL := "[NONE]"
	if c.Database.Enabled() {
		dbURL = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		dbURL, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Grid: {Definitions: %q, RowsPerPage: %d, PagesToDisplay: %d, Remote: %v, FetchTimeout: %s}, ",
		c.Grid.Definitions, c.Grid.RowsPerPage, c.Grid.PagesToDisplay, c.Grid.Remote, c.Grid.FetchTimeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
