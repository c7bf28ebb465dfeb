package profile

import (
	"fmt"
	"strings"
	"sync"
)

// Sites lists the tokens added to a profile at runtime.
type Sites struct {
	Allowed []string `json:"allowed,omitempty"`
	Blocked []string `json:"blocked,omitempty"`
}

// Store holds the per-profile settings built from the profile table.
// Site lists may be extended at runtime; all access is guarded.
type Store struct {
	mu       sync.RWMutex
	settings map[ID]*Settings
	added    map[ID]*Sites
	order    []ID
}

// NewStore builds a store from the profile table
func NewStore() *Store {
	s := &Store{
		settings: make(map[ID]*Settings, len(table)),
		added:    make(map[ID]*Sites),
	}
	for _, def := range table {
		cp := def.clone()
		s.settings[def.ID] = &cp
		s.order = append(s.order, def.ID)
	}
	return s
}

// Get returns a copy of the settings for id
func (s *Store) Get(id ID) (Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[id]
	if !ok {
		return Settings{}, false
	}
	return settings.clone(), true
}

// List returns copies of all profiles in display order
func (s *Store) List() []Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Settings, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.settings[id].clone())
	}
	return out
}

// ShouldBlockSite reports whether the profile blocks url. An allowed-site
// token anywhere in the URL wins over any blocked-site token.
func (s *Store) ShouldBlockSite(id ID, url string) bool {
	_, blocked := s.BlockedSite(id, url)
	return blocked
}

// BlockedSite returns the blocked-site token that matched url.
func (s *Store) BlockedSite(id ID, url string) (string, bool) {
	lower := strings.ToLower(url)

	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[id]
	if !ok {
		return "", false
	}
	if containsAny(lower, settings.AllowedSites) {
		return "", false
	}
	for _, site := range settings.BlockedSites {
		if strings.Contains(lower, site) {
			return site, true
		}
	}
	return "", false
}

// IsAllowedSite reports whether url matches the profile's allow list
func (s *Store) IsAllowedSite(id ID, url string) bool {
	lower := strings.ToLower(url)

	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[id]
	return ok && containsAny(lower, settings.AllowedSites)
}

// BlockMessage returns the user-facing text for a profile block
func (s *Store) BlockMessage(id ID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if settings, ok := s.settings[id]; ok && settings.BlockMessage != "" {
		return settings.BlockMessage
	}
	return DefaultBlockMessage
}

// AddBlockedSite appends a token to the profile's block list
func (s *Store) AddBlockedSite(id ID, site string) error {
	return s.addSite(id, site, false)
}

// AddAllowedSite appends a token to the profile's allow list
func (s *Store) AddAllowedSite(id ID, site string) error {
	return s.addSite(id, site, true)
}

func (s *Store) addSite(id ID, site string, allow bool) error {
	site = strings.ToLower(strings.TrimSpace(site))
	if site == "" {
		return fmt.Errorf("add site to %s: empty site", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	added, ok := s.added[id]
	if !ok {
		added = &Sites{}
		s.added[id] = added
	}
	if allow {
		settings.AllowedSites = appendUnique(settings.AllowedSites, site)
		added.Allowed = appendUnique(added.Allowed, site)
	} else {
		settings.BlockedSites = appendUnique(settings.BlockedSites, site)
		added.Blocked = appendUnique(added.Blocked, site)
	}
	return nil
}

// Added returns copies of the site tokens added since construction, keyed
// by profile. It is nil when nothing was added.
func (s *Store) Added() map[ID]Sites {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.added) == 0 {
		return nil
	}
	out := make(map[ID]Sites, len(s.added))
	for id, sites := range s.added {
		out[id] = Sites{
			Allowed: append([]string(nil), sites.Allowed...),
			Blocked: append([]string(nil), sites.Blocked...),
		}
	}
	return out
}

func containsAny(lower string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
