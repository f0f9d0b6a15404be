package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/ezimage/ezimage"
)

// ConfigFilename is the per-user connection settings file, looked up in the
// home directory unless a directory is given explicitly.
const ConfigFilename = ".ezimage"

// ConnectionParams holds everything needed to reach a remote image server.
// Zero-valued fields are filled from EZIMAGE_* environment variables and
// then from the TOML config file; see Connect.
type ConnectionParams struct {
	User   string `toml:"user"`
	Group  string `toml:"group"`
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	Secure bool   `toml:"secure"`

	// Password is never read from or written to the config file.
	Password string `toml:"-"`

	// Set distinguishes an explicit Secure=false from an unset one.
	SecureSet bool `toml:"-"`
}

// LoadConnectionParams reads stored connection settings from the config file
// in configDir, or the user's home directory if configDir is empty.  A
// missing file is not an error; the zero params are returned.
func LoadConnectionParams(configDir string) (ConnectionParams, error) {
	var params ConnectionParams
	path, err := configPath(configDir)
	if err != nil {
		return params, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return params, nil
	}
	if _, err := toml.DecodeFile(path, &params); err != nil {
		return params, fmt.Errorf("could not decode config file %q: %v", path, err)
	}
	params.SecureSet = true
	return params, nil
}

// StoreConnectionParams saves connection settings to the config file in
// configDir, or the user's home directory if configDir is empty.  Passwords
// are deliberately not persisted.
func StoreConnectionParams(params ConnectionParams, configDir string) error {
	path, err := configPath(configDir)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("could not create config file %q: %v", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(params); err != nil {
		return fmt.Errorf("could not write config file %q: %v", path, err)
	}
	ezimage.Infof("Connection settings saved to %s\n", path)
	return nil
}

func configPath(configDir string) (string, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %v", err)
		}
		configDir = home
	}
	info, err := os.Stat(configDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("config directory %q is not a valid directory: %w",
			configDir, ezimage.ErrInvalidArgument)
	}
	return filepath.Join(configDir, ConfigFilename), nil
}

// resolve fills unset fields from the environment and then from the config
// file, so explicit parameters always win.
func (p ConnectionParams) resolve(configDir string) (ConnectionParams, error) {
	stored, err := LoadConnectionParams(configDir)
	if err != nil {
		return p, err
	}
	if p.User == "" {
		p.User = envOr("EZIMAGE_USER", stored.User)
	}
	if p.Password == "" {
		// Passwords come from the caller or the environment only.
		p.Password = os.Getenv("EZIMAGE_PASS")
	}
	if p.Group == "" {
		p.Group = envOr("EZIMAGE_GROUP", stored.Group)
	}
	if p.Host == "" {
		p.Host = envOr("EZIMAGE_HOST", stored.Host)
	}
	if p.Port == 0 {
		if s := os.Getenv("EZIMAGE_PORT"); s != "" {
			port, err := strconv.Atoi(s)
			if err != nil {
				return p, fmt.Errorf("EZIMAGE_PORT %q is not an integer: %w",
					s, ezimage.ErrInvalidArgument)
			}
			p.Port = port
		} else {
			p.Port = stored.Port
		}
	}
	if !p.SecureSet {
		if s := os.Getenv("EZIMAGE_SECURE"); s != "" {
			secure, err := strconv.ParseBool(s)
			if err != nil {
				return p, fmt.Errorf("EZIMAGE_SECURE %q is not a boolean: %w",
					s, ezimage.ErrInvalidArgument)
			}
			p.Secure = secure
		} else {
			p.Secure = stored.Secure
		}
		p.SecureSet = true
	}
	return p, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
