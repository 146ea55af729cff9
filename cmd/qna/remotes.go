package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/qna/internal/i18n"
)

// RemotesConfig is the on-disk list of boards this machine talks to.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is one board server. Token is the identity this machine uses there;
// it is filled in on first sign-in. Lang picks the board language when no
// --lang flag is given.
type Remote struct {
	URL         string `toml:"url"`
	GRPCAddr    string `toml:"grpc_addr,omitempty"`
	Token       string `toml:"token,omitempty"`
	Lang        string `toml:"lang,omitempty"`
	Description string `toml:"description,omitempty"`
}

// defaultRemoteName is created on first sign-in when no remote is active.
const defaultRemoteName = "default"

// Set adds or replaces name. A replacement without a token keeps the stored
// one, and the first remote ever added becomes active.
func (c *RemotesConfig) Set(name string, r Remote) {
	if prev, ok := c.Remotes[name]; ok && r.Token == "" {
		r.Token = prev.Token
	}
	c.Remotes[name] = r
	if c.Active == "" {
		c.Active = name
	}
}

func (c *RemotesConfig) Remove(name string) error {
	if _, ok := c.Remotes[name]; !ok {
		return fmt.Errorf("remote %q not found", name)
	}
	delete(c.Remotes, name)
	if c.Active == name {
		c.Active = ""
	}
	return nil
}

// Use makes name the active remote; an empty name clears the selection.
func (c *RemotesConfig) Use(name string) error {
	if _, ok := c.Remotes[name]; name != "" && !ok {
		return fmt.Errorf("remote %q not found", name)
	}
	c.Active = name
	return nil
}

// Names returns the remote names in sorted order.
func (c *RemotesConfig) Names() []string {
	names := make([]string, 0, len(c.Remotes))
	for name := range c.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "qna")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return RemotesConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// updateRemotes loads the config, applies fn and saves the result. Nothing
// is written when fn fails.
func updateRemotes(fn func(*RemotesConfig) error) error {
	cfg, err := loadRemotesConfig()
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return saveRemotesConfig(cfg)
}

// Active remote, loaded once per process.
var (
	remoteOnce   sync.Once
	cachedRemote Remote
	haveRemote   bool
)

func activeRemote() (Remote, bool) {
	remoteOnce.Do(func() {
		cfg, err := loadRemotesConfig()
		if err != nil || cfg.Active == "" {
			return
		}
		cachedRemote, haveRemote = cfg.Remotes[cfg.Active]
	})
	return cachedRemote, haveRemote
}

// saveActiveToken stores tok on the active remote, creating a default
// remote for the current server flags when none is active.
func saveActiveToken(tok string) error {
	return updateRemotes(func(cfg *RemotesConfig) error {
		r, ok := cfg.Remotes[cfg.Active]
		if !ok {
			cfg.Active = defaultRemoteName
			r = Remote{URL: httpURL, GRPCAddr: serverAddr}
		}
		r.Token = tok
		cfg.Remotes[cfg.Active] = r
		return nil
	})
}

// boardLang resolves the display language: the --lang flag when given, then
// the active remote's preference, then the default.
func boardLang(cmd *cobra.Command) i18n.Lang {
	if f := cmd.Flags().Lookup("lang"); f != nil && f.Changed {
		return i18n.ParseLang(f.Value.String())
	}
	if r, ok := activeRemote(); ok && r.Lang != "" {
		return i18n.ParseLang(r.Lang)
	}
	return i18n.Default
}
