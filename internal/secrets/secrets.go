// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads oracle credentials from a directory of plain-text
// files. The filename is the key name and the trimmed contents are the
// value.
//
// Recognized files: anthropic-api-key, gemini-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/rentsense/pkg/types"
)

// DefaultDir is where the CLI looks for secrets.
const DefaultDir = ".secrets"

// Key file names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	GeminiAPIKey    = "gemini-api-key"
)

var providerKeys = map[types.OracleProvider]string{
	types.ProviderClaude: AnthropicAPIKey,
	types.ProviderGemini: GeminiAPIKey,
}

// Set maps key names to values.
type Set map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set. Unreadable files are skipped with a warning.
func Load(dir string, log *zap.Logger) (Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}

// APIKey returns the key for provider, if present.
func (s Set) APIKey(p types.OracleProvider) (string, bool) {
	name, ok := providerKeys[p]
	if !ok {
		return "", false
	}
	v, ok := s[name]
	return v, ok
}

// Apply fills cfg.APIKey from the set when the config does not already
// carry one.
func (s Set) Apply(cfg *types.OracleConfig) {
	if cfg.APIKey != "" {
		return
	}
	if v, ok := s.APIKey(cfg.Provider); ok {
		cfg.APIKey = v
	}
}
