// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the name and the trimmed file
// contents are the value.
//
// Supported files: census-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// CensusAPIKey is the file holding the data.census.gov API key.
const CensusAPIKey = "census-api-key"

// Store maps secret names to values.
type Store map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty Store. Unreadable files are logged and
// skipped.
func Load(dir string, log logrus.FieldLogger) (Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Store)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.WithError(err).WithField("secret", name).Warn("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Lookup returns override when set, otherwise the stored value of name.
func (s Store) Lookup(name, override string) string {
	if override != "" {
		return override
	}
	return s[name]
}

// Names returns the stored secret names, sorted. Values are never listed.
func (s Store) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
