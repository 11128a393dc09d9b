package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

type JwtConfig struct {
	TokenLifetime  Duration `json:"token_lifetime"`
	PrivateKeyPath string   `json:"private_key_path"`
	PublicKeyPath  string   `json:"public_key_path"`
}

type Config struct {
	Mode         string    `json:"mode"`
	Addr         string    `json:"addr"`
	Domain       string    `json:"domain"`
	DatabasePath string    `json:"database_path"`
	LogPath      string    `json:"log_path"`
	RoomsPerMin  int       `json:"rooms_per_min"`
	Jwt          JwtConfig `json:"jwt"`
}

func Default() *Config {
	return &Config{
		Mode:         "development",
		Addr:         ":8080",
		DatabasePath: "minelink.db",
		RoomsPerMin:  10,
		Jwt: JwtConfig{
			TokenLifetime: Duration{24 * time.Hour * 30},
		},
	}
}

// Read loads the JSON config at path over the defaults. A handful of env
// variables override the file, which keeps container deployments simple.
func Read(path string) (*Config, error) {
	c := Default()
	if b, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("unable to read config %s: %w", path, err)
	} else if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("unable to parse config %s: %w", path, err)
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	if addr, ok := os.LookupEnv("MINELINK_ADDR"); ok {
		c.Addr = addr
	}
	if db, ok := os.LookupEnv("MINELINK_DB"); ok {
		c.DatabasePath = db
	}
	if mode, ok := os.LookupEnv("MINELINK_MODE"); ok {
		c.Mode = mode
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return !c.Production()
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":               c.Mode,
		"addr":               c.Addr,
		"domain":             c.Domain,
		"database_path":      c.DatabasePath,
		"log_path":           c.LogPath,
		"rooms_per_min":      c.RoomsPerMin,
		"jwt_token_lifetime": c.Jwt.TokenLifetime.Duration.String(),
	}
}
