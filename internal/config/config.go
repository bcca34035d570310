// Package config loads the labrec configuration file: the paths of the
// per-kind databases and the default attachment export directory.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked for in the working directory
// when no --config flag is given.
const DefaultFile = "labrec.yaml"

// Config holds the file layout of the record keeper. Every key is
// optional; unset keys keep their defaults.
type Config struct {
	// PublicationsDB is the SQLite file backing the publication store.
	PublicationsDB string `yaml:"publications_db"`

	// SequencesDB is the SQLite file backing the sequence store.
	SequencesDB string `yaml:"sequences_db"`

	// PublicationsJSON is the document file backing the JSON
	// publication store variant.
	PublicationsJSON string `yaml:"publications_json"`

	// DownloadsDir is where exported attachments land when no
	// destination path is given.
	DownloadsDir string `yaml:"downloads_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PublicationsDB:   "publications.db",
		SequencesDB:      "sequences.db",
		PublicationsJSON: "publications_db.json",
		DownloadsDir:     "downloads",
	}
}

// Load reads the config file at path, filling unset keys with
// defaults. An empty path means DefaultFile, and then a missing file
// is not an error - the defaults apply. A file named explicitly must
// exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills any key the file left empty.
func (c Config) withDefaults() Config {
	def := Default()
	if c.PublicationsDB == "" {
		c.PublicationsDB = def.PublicationsDB
	}
	if c.SequencesDB == "" {
		c.SequencesDB = def.SequencesDB
	}
	if c.PublicationsJSON == "" {
		c.PublicationsJSON = def.PublicationsJSON
	}
	if c.DownloadsDir == "" {
		c.DownloadsDir = def.DownloadsDir
	}
	return c
}
