// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files
// and from dotenv files. Each file in the directory is one secret: the
// filename is the key name and the trimmed contents are the value.
//
// Supported key files: google-places-api-key, database-url.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// Key names recognised by Apply.
const (
	PlacesAPIKey = "google-places-api-key"
	DatabaseURL  = "database-url"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged at warn and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv exports the variables of each dotenv file into the process
// environment. Variables already set are left alone and missing files
// are skipped, so a bare checkout runs without a .env.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Apply back-fills empty credential fields of cfg from s. Values already
// set by config file, environment or flags win.
func Apply(cfg *types.Config, s map[string]string) {
	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = s[PlacesAPIKey]
	}
	if cfg.Store.DSN == "" && cfg.Store.Driver == types.DriverPostgres {
		cfg.Store.DSN = s[DatabaseURL]
	}
}
