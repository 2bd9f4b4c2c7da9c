package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/models"
)

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join(".donor-mapper", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".donor-mapper", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// LoadRules reads the rule extensions from filename. An empty filename or a
// missing file yields an empty configuration.
func LoadRules(filename string, logger logging.Logger) (models.RulesConfig, error) {
	logger = logging.OrDiscard(logger)
	if filename == "" {
		return models.RulesConfig{}, nil
	}

	path, err := FindConfigFile(filename)
	if err != nil {
		logger.Warn("Rules file not found, using built-in rules",
			logging.Field{Key: logging.FieldFile, Value: filename})
		return models.RulesConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.RulesConfig{}, fmt.Errorf("error reading rules file: %w", err)
	}

	var rules models.RulesConfig
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return models.RulesConfig{}, fmt.Errorf("error parsing rules file %s: %w", path, err)
	}

	logger.Debug("Loaded rules file",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(rules.Currencies) + len(rules.HeaderPhrases) + len(rules.FieldPatterns) + len(rules.CategoryKeywords)})
	return rules, nil
}
