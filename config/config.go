package config

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tkscode/jupyterlab/labs/jupyterlabs"
)

// Environment variables that override the file.
const (
	EnvTrackingURI    = "MLFLOW_TRACKING_URI"
	EnvTrackingToken  = "MLFLOW_TRACKING_TOKEN"
	EnvNotebookRoot   = jupyterlabs.EnvNotebookRoot
	EnvConnectionFile = jupyterlabs.EnvConnectionFile
	EnvListenAddr     = "LISTEN_ADDR"
	EnvLogLevel       = "LOG_LEVEL"
)

type Config struct {
	TrackingURI     string `yaml:"trackingUri"`
	TrackingToken   string `yaml:"trackingToken"`
	NotebookRoot    string `yaml:"notebookRoot"`
	MirrorExtension string `yaml:"mirrorExtension"`
	ConnectionFile  string `yaml:"connectionFile"`
	GitRepoDir      string `yaml:"gitRepoDir"`
	GitAuthorName   string `yaml:"gitAuthorName"`
	GitAuthorEmail  string `yaml:"gitAuthorEmail"`
	ListenAddr      string `yaml:"listenAddr"`
	LogLevel        string `yaml:"logLevel"`
}

func Default() *Config {
	return &Config{
		TrackingURI:     "http://mlflow:5000",
		NotebookRoot:    jupyterlabs.DefaultNotebookRoot,
		MirrorExtension: jupyterlabs.DefaultMirrorExtension,
		GitRepoDir:      ".",
		GitAuthorName:   "jupyter",
		GitAuthorEmail:  "jupyter@localhost",
		ListenAddr:      "127.0.0.1:8080",
		LogLevel:        "info",
	}
}

// Load returns the defaults overlaid with the YAML file at path, if any, and
// then with the environment. An empty path skips the file.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvTrackingURI:    &c.TrackingURI,
		EnvTrackingToken:  &c.TrackingToken,
		EnvNotebookRoot:   &c.NotebookRoot,
		EnvConnectionFile: &c.ConnectionFile,
		EnvListenAddr:     &c.ListenAddr,
		EnvLogLevel:       &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}
