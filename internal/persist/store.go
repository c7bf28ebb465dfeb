// Package persist stores engine state on disk: the custom blocklist as a
// plain text file; the active profile, toggles, reported phishing domains
// and profile site additions as JSON.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/blocklist"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/engine"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
	"github.com/BigJoe84g/Krill-Browser/internal/shared/paths"
)

// stateVersion is bumped when the state file layout changes. Version 1
// files lack the phishing and profile-site fields and still load.
const stateVersion = 2

const blocklistHeader = "# Krill custom blocklist, one domain per line\n"

// State is the content of state.json
type State struct {
	Version      int                          `json:"version"`
	Profile      profile.ID                   `json:"profile"`
	Toggles      engine.Toggles               `json:"toggles"`
	Phishing     []string                     `json:"phishing,omitempty"`
	ProfileSites map[profile.ID]profile.Sites `json:"profile_sites,omitempty"`
	SavedAt      time.Time                    `json:"saved_at"`
}

// Store writes snapshots into a data directory. It implements
// engine.Persister.
type Store struct {
	mu     sync.Mutex
	layout paths.Layout
	logger *zap.Logger
	now    func() time.Time
}

// New creates a store rooted at layout
func New(layout paths.Layout, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{layout: layout, logger: logger, now: time.Now}
}

// Save writes the custom blocklist and the state file
func (s *Store) Save(snap engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.layout.Ensure(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(blocklistHeader)
	for _, domain := range snap.CustomBlocklist {
		buf.WriteString(domain)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(s.layout.Blocklist(), buf.Bytes()); err != nil {
		return fmt.Errorf("save blocklist: %w", err)
	}

	data, err := sonic.MarshalIndent(State{
		Version:      stateVersion,
		Profile:      snap.Profile,
		Toggles:      snap.Toggles,
		Phishing:     snap.CustomPhishing,
		ProfileSites: snap.ProfileSites,
		SavedAt:      s.now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := writeFileAtomic(s.layout.State(), data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	s.logger.Debug("state saved",
		zap.String("profile", string(snap.Profile)),
		zap.Int("custom_domains", len(snap.CustomBlocklist)),
		zap.Int("phishing_domains", len(snap.CustomPhishing)),
	)
	return nil
}

// LoadState reads state.json. A missing file returns ok == false.
func (s *Store) LoadState() (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.layout.State())
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := sonic.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("decode state %s: %w", s.layout.State(), err)
	}
	if st.Version > stateVersion {
		return State{}, false, fmt.Errorf("state %s: unsupported version %d", s.layout.State(), st.Version)
	}
	return st, true, nil
}

// LoadBlocklist reads the custom blocklist. A missing file yields nil.
func (s *Store) LoadBlocklist() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return blocklist.LoadFile(s.layout.Blocklist())
}

// Restore sets the saved profile and toggles on opts and returns the user
// additions for the engine's Load methods. Unreadable files are logged and
// skipped.
func (s *Store) Restore(opts *engine.Options) engine.Snapshot {
	var saved engine.Snapshot

	st, ok, err := s.LoadState()
	switch {
	case err != nil:
		s.logger.Warn("ignoring saved state", zap.Error(err))
	case ok:
		if pid, perr := profile.ParseID(string(st.Profile)); perr != nil {
			s.logger.Warn("ignoring saved profile", zap.String("profile", string(st.Profile)))
		} else {
			opts.Profile = pid
			toggles := st.Toggles
			opts.Toggles = &toggles
			saved.Profile = pid
			saved.Toggles = toggles
		}
		saved.CustomPhishing = st.Phishing
		saved.ProfileSites = st.ProfileSites
	}

	domains, err := s.LoadBlocklist()
	if err != nil {
		s.logger.Warn("ignoring custom blocklist", zap.Error(err))
		return saved
	}
	saved.CustomBlocklist = domains
	return saved
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
