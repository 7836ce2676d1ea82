package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestFileName is the project manifest inside the .grns directory.
const ManifestFileName = "project.toml"

// Manifest is the per-project manifest written by init. It pins the project
// prefix and default source repo so every checkout agrees on them.
type Manifest struct {
	Prefix string `toml:"prefix"`
	DB     string `toml:"db,omitempty"`
	Repo   string `toml:"repo,omitempty"`
	Addr   string `toml:"addr,omitempty"`
}

// LoadManifest reads the manifest from a workspace directory. Returns nil
// with no error when the file does not exist.
func LoadManifest(workspaceDir string) (*Manifest, error) {
	path := filepath.Join(workspaceDir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// SaveManifest writes the manifest into a workspace directory.
func SaveManifest(workspaceDir string, m *Manifest) error {
	path := filepath.Join(workspaceDir, ManifestFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// ApplyManifest layers manifest values under the config singleton so flags
// and env vars still win.
func ApplyManifest(m *Manifest) {
	if m == nil || v == nil {
		return
	}
	if m.Prefix != "" {
		v.SetDefault("prefix", m.Prefix)
	}
	if m.DB != "" {
		v.SetDefault("db", m.DB)
	}
	if m.Repo != "" {
		v.SetDefault("repo", m.Repo)
	}
	if m.Addr != "" {
		v.SetDefault("addr", m.Addr)
	}
}
