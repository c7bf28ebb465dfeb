package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/blocklist"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/download"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/phishing"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/tracking"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/urlx"
	"github.com/BigJoe84g/Krill-Browser/internal/shared/id"
)

const (
	// DefaultSearchURL receives queries that do not look like hosts
	DefaultSearchURL = "https://duckduckgo.com/?q=%s"
	// DefaultPhishingThreshold blocks known-bad and substitution hits
	DefaultPhishingThreshold = 90
)

// ErrNoClearer is returned by PanicClear when no clearer is configured
var ErrNoClearer = errors.New("no clearer configured")

// ClearReason tells the clearer why browsing data is being wiped
type ClearReason string

const (
	ClearPanic ClearReason = "panic"
	ClearExit  ClearReason = "exit"
)

// Clearer wipes history, bookmarks and cookies owned by the browser shell.
type Clearer interface {
	Clear(ctx context.Context, reason ClearReason) error
}

// Persister stores state after every mutation.
type Persister interface {
	Save(snap Snapshot) error
}

// Recorder receives evaluation metrics.
type Recorder interface {
	RecordDecision(action, category string, duration time.Duration)
	RecordDownload(kind string, dangerous bool)
	RecordProfileSwitch(profile string)
}

// Options wires an Engine. Nil components are replaced by defaults.
type Options struct {
	Logger     *zap.Logger
	Blocklist  *blocklist.Matcher
	Stripper   *tracking.Stripper
	Detector   *phishing.Detector
	Classifier *download.Classifier
	Profiles   *profile.Store
	Clearer    Clearer
	Persister  Persister
	Recorder   Recorder

	// Profile is the initial active profile (default when empty)
	Profile profile.ID
	// Toggles restores saved switches; nil derives them from Profile
	Toggles *Toggles

	SearchURL         string
	PhishingThreshold int
}

type counters struct {
	evaluations        atomic.Uint64
	allowed            atomic.Uint64
	rewritten          atomic.Uint64
	blocked            atomic.Uint64
	httpsOnlyBlocks    atomic.Uint64
	profileBlocks      atomic.Uint64
	trackersBlocked    atomic.Uint64
	phishingBlocked    atomic.Uint64
	phishingWarnings   atomic.Uint64
	httpsUpgrades      atomic.Uint64
	paramsStripped     atomic.Uint64
	downloadsChecked   atomic.Uint64
	dangerousDownloads atomic.Uint64
	profileSwitches    atomic.Uint64
	panicClears        atomic.Uint64
}

// Engine owns the policy state and answers navigation and download
// questions. Evaluate holds the read lock for its whole run so it always
// sees a consistent profile, toggles and blocklist.
type Engine struct {
	mu      sync.RWMutex
	active  profile.ID
	toggles Toggles

	blocklist  *blocklist.Matcher
	stripper   *tracking.Stripper
	detector   *phishing.Detector
	classifier *download.Classifier
	profiles   *profile.Store

	clearer   Clearer
	persister Persister
	recorder  Recorder
	logger    *zap.Logger

	// seq orders snapshots; persistMu serializes saves so an older
	// snapshot never overwrites a newer one.
	seq       atomic.Uint64
	persistMu sync.Mutex
	persisted uint64

	searchURL         string
	phishingThreshold int

	stats counters
}

// New creates an engine
func New(opts Options) (*Engine, error) {
	e := &Engine{
		blocklist:         opts.Blocklist,
		stripper:          opts.Stripper,
		detector:          opts.Detector,
		classifier:        opts.Classifier,
		profiles:          opts.Profiles,
		clearer:           opts.Clearer,
		persister:         opts.Persister,
		recorder:          opts.Recorder,
		logger:            opts.Logger,
		searchURL:         opts.SearchURL,
		phishingThreshold: opts.PhishingThreshold,
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.blocklist == nil {
		e.blocklist = blocklist.NewDefault()
	}
	if e.stripper == nil {
		e.stripper = tracking.NewDefault()
	}
	if e.detector == nil {
		e.detector = phishing.NewDefault()
	}
	if e.classifier == nil {
		e.classifier = download.NewClassifier()
	}
	if e.profiles == nil {
		e.profiles = profile.NewStore()
	}
	if e.searchURL == "" {
		e.searchURL = DefaultSearchURL
	}
	if e.phishingThreshold <= 0 {
		e.phishingThreshold = DefaultPhishingThreshold
	}

	active := opts.Profile
	if active == "" {
		active = profile.Default
	}
	settings, ok := e.profiles.Get(active)
	if !ok {
		return nil, fmt.Errorf("create engine: %w: %q", profile.ErrUnknownProfile, active)
	}
	e.active = active

	if opts.Toggles != nil {
		e.toggles = *opts.Toggles
	} else {
		e.toggles = DefaultToggles()
		e.toggles.applyProfile(settings)
	}
	return e, nil
}

// Evaluate decides whether a navigation to raw may proceed. It never fails:
// malformed input flows through unchanged.
func (e *Engine) Evaluate(raw string) Decision {
	start := time.Now()

	e.mu.RLock()
	d := e.evaluateLocked(raw)
	e.mu.RUnlock()

	e.observe(d, time.Since(start))
	return d
}

func (e *Engine) evaluateLocked(raw string) Decision {
	d := Decision{
		ID:       id.NewDecisionID().String(),
		Original: raw,
		Profile:  e.active,
	}

	target := e.normalize(raw)
	d.URL = target

	if e.toggles.HTTPSOnly && urlx.IsInsecure(target) {
		return e.block(d, CategoryHTTPSOnly, ReasonHTTPSOnly, "")
	}

	// Allow-list tokens are matched against the cleaned URL so a stripped
	// parameter cannot grant the exemption.
	if e.toggles.ForceHTTPS && urlx.IsInsecure(target) &&
		!e.profiles.IsAllowedSite(e.active, e.stripper.Clean(target)) {
		target = urlx.UpgradeToHTTPS(target)
		d.Upgraded = true
	}

	target, d.ParamsStripped = e.stripper.Strip(target)
	d.URL = target

	if site, blocked := e.profiles.BlockedSite(e.active, target); blocked {
		return e.block(d, CategoryProfile, e.profiles.BlockMessage(e.active), site)
	}

	if e.toggles.BlockTrackers || e.toggles.BlockAds {
		if entry, hit := e.blocklist.Match(target); hit {
			return e.block(d, CategoryBlocklist, ReasonTracker, entry)
		}
	}

	if v := e.detector.Check(target); v.IsPhishing {
		d.Phishing = &v
		if v.Confidence >= e.phishingThreshold {
			return e.block(d, CategoryPhishing, v.Reason, v.Host)
		}
	}

	return e.allow(d)
}

func (e *Engine) block(d Decision, category Category, reason, match string) Decision {
	d.Action = ActionBlock
	d.Category = category
	d.Reason = reason
	d.Match = match
	return d
}

func (e *Engine) allow(d Decision) Decision {
	d.Action = ActionAllow
	if d.URL != d.Original {
		d.Action = ActionRewrite
	}
	return d
}

// Normalize turns address-bar text into a navigable URL: bare hosts get
// https://, anything else becomes a search.
func (e *Engine) Normalize(raw string) string {
	return e.normalize(raw)
}

func (e *Engine) normalize(raw string) string {
	input := strings.TrimSpace(raw)
	if urlx.HasHTTPScheme(input) {
		return input
	}
	if strings.Contains(input, ".") && !strings.Contains(input, " ") {
		return "https://" + input
	}

	query := url.QueryEscape(input)
	if strings.Contains(e.searchURL, "%s") {
		return strings.Replace(e.searchURL, "%s", query, 1)
	}
	return e.searchURL + query
}

func (e *Engine) observe(d Decision, elapsed time.Duration) {
	e.stats.evaluations.Add(1)
	if d.Upgraded {
		e.stats.httpsUpgrades.Add(1)
	}
	if d.ParamsStripped > 0 {
		e.stats.paramsStripped.Add(uint64(d.ParamsStripped))
	}
	if d.Phishing != nil && !d.Blocked() {
		e.stats.phishingWarnings.Add(1)
	}

	switch d.Action {
	case ActionBlock:
		e.stats.blocked.Add(1)
		switch d.Category {
		case CategoryHTTPSOnly:
			e.stats.httpsOnlyBlocks.Add(1)
		case CategoryProfile:
			e.stats.profileBlocks.Add(1)
		case CategoryBlocklist:
			e.stats.trackersBlocked.Add(1)
		case CategoryPhishing:
			e.stats.phishingBlocked.Add(1)
		}
		e.logger.Info("Navigation blocked",
			zap.String("url", d.URL),
			zap.String("category", string(d.Category)),
			zap.String("reason", d.Reason),
			zap.String("match", d.Match),
			zap.String("profile", string(d.Profile)),
			zap.String("decision_id", d.ID))
	case ActionRewrite:
		e.stats.rewritten.Add(1)
		e.logger.Debug("Navigation rewritten",
			zap.String("original", d.Original),
			zap.String("url", d.URL),
			zap.Int("params_stripped", d.ParamsStripped),
			zap.Bool("upgraded", d.Upgraded))
	default:
		e.stats.allowed.Add(1)
	}

	if e.recorder != nil {
		e.recorder.RecordDecision(string(d.Action), string(d.Category), elapsed)
	}
}

// SecurityLevel classifies url for the address-bar indicator
func (e *Engine) SecurityLevel(raw string) Level {
	if strings.TrimSpace(raw) == "" {
		return LevelUnknown
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.blocklist.IsBlocked(raw) || e.detector.IsKnown(urlx.BareHost(raw)) {
		return LevelDangerous
	}
	switch {
	case strings.HasPrefix(strings.ToLower(raw), "https://"):
		return LevelSecure
	case urlx.IsInsecure(raw):
		return LevelInsecure
	default:
		return LevelUnknown
	}
}

// ClassifyDownload scores a download by filename
func (e *Engine) ClassifyDownload(filename string) download.Verdict {
	v := e.classifier.Classify(filename)
	e.observeDownload(filename, v)
	return v
}

// InspectDownload scores a download by filename and its first bytes
func (e *Engine) InspectDownload(filename string, head []byte) download.Verdict {
	v := e.classifier.Inspect(filename, head)
	e.observeDownload(filename, v)
	return v
}

func (e *Engine) observeDownload(filename string, v download.Verdict) {
	e.stats.downloadsChecked.Add(1)
	if v.IsDangerous {
		e.stats.dangerousDownloads.Add(1)
		e.logger.Info("Dangerous download",
			zap.String("filename", filename),
			zap.String("kind", string(v.Kind)),
			zap.String("mime", v.MIME))
	}
	if e.recorder != nil {
		e.recorder.RecordDownload(string(v.Kind), v.IsDangerous)
	}
}

// CheckPhishing runs the phishing detector on raw
func (e *Engine) CheckPhishing(raw string) phishing.Verdict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.detector.Check(raw)
}

// AddPhishingDomain extends the known-bad set with a user report
func (e *Engine) AddPhishingDomain(domain string) bool {
	e.mu.Lock()
	added := e.detector.Add(domain)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if added {
		e.logger.Info("Phishing domain added", zap.String("domain", domain))
		e.persist(snap)
	}
	return added
}

// LoadPhishingDomains restores user-reported domains without persisting
func (e *Engine) LoadPhishingDomains(domains []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, domain := range domains {
		if e.detector.Add(domain) {
			n++
		}
	}
	return n
}

// PhishingDomains lists the known-bad set
func (e *Engine) PhishingDomains() []string {
	return e.detector.Known()
}

// SwitchProfile activates id and re-applies every switch it owns in a
// single transition.
func (e *Engine) SwitchProfile(pid profile.ID) error {
	e.mu.Lock()
	settings, ok := e.profiles.Get(pid)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("switch profile: %w: %q", profile.ErrUnknownProfile, pid)
	}
	e.active = pid
	e.toggles.applyProfile(settings)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.stats.profileSwitches.Add(1)
	if e.recorder != nil {
		e.recorder.RecordProfileSwitch(string(pid))
	}
	e.logger.Info("Switched profile",
		zap.String("profile", string(pid)),
		zap.String("display_name", settings.DisplayName))
	e.persist(snap)
	return nil
}

// Profile returns the active profile id
func (e *Engine) Profile() profile.ID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// ActiveProfile returns the settings of the active profile
func (e *Engine) ActiveProfile() profile.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	settings, _ := e.profiles.Get(e.active)
	return settings
}

// Profiles lists every profile
func (e *Engine) Profiles() []profile.Settings {
	return e.profiles.List()
}

// AddProfileSite extends a profile's block list, or its allow list when
// allow is set.
func (e *Engine) AddProfileSite(pid profile.ID, site string, allow bool) error {
	e.mu.Lock()
	var err error
	if allow {
		err = e.profiles.AddAllowedSite(pid, site)
	} else {
		err = e.profiles.AddBlockedSite(pid, site)
	}
	if err != nil {
		e.mu.Unlock()
		return err
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("Profile site added",
		zap.String("profile", string(pid)),
		zap.String("site", site),
		zap.Bool("allow", allow))
	e.persist(snap)
	return nil
}

// LoadProfileSites restores runtime site additions without persisting.
// Entries for unknown profiles are skipped.
func (e *Engine) LoadProfileSites(sites map[profile.ID]profile.Sites) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for pid, s := range sites {
		for _, site := range s.Allowed {
			if err := e.profiles.AddAllowedSite(pid, site); err != nil {
				e.logger.Warn("Skipping saved profile site", zap.String("profile", string(pid)), zap.Error(err))
				continue
			}
			n++
		}
		for _, site := range s.Blocked {
			if err := e.profiles.AddBlockedSite(pid, site); err != nil {
				e.logger.Warn("Skipping saved profile site", zap.String("profile", string(pid)), zap.Error(err))
				continue
			}
			n++
		}
	}
	return n
}

// Toggles returns the current switches
func (e *Engine) Toggles() Toggles {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toggles
}

// UpdateToggles applies a partial update and returns the result
func (e *Engine) UpdateToggles(p TogglePatch) Toggles {
	if p.Empty() {
		return e.Toggles()
	}

	e.mu.Lock()
	p.applyTo(&e.toggles)
	updated := e.toggles
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("Toggles updated", zap.Any("toggles", updated))
	e.persist(snap)
	return updated
}

// SetForceHTTPS toggles upgrading http:// navigations
func (e *Engine) SetForceHTTPS(on bool) { e.UpdateToggles(TogglePatch{ForceHTTPS: &on}) }

// SetHTTPSOnly toggles refusing http:// navigations outright
func (e *Engine) SetHTTPSOnly(on bool) { e.UpdateToggles(TogglePatch{HTTPSOnly: &on}) }

// SetPrivateMode toggles private browsing
func (e *Engine) SetPrivateMode(on bool) { e.UpdateToggles(TogglePatch{PrivateMode: &on}) }

// SetClearOnExit toggles wiping browsing data at shutdown
func (e *Engine) SetClearOnExit(on bool) { e.UpdateToggles(TogglePatch{ClearOnExit: &on}) }

// SetBlockTrackers toggles the blocklist for tracker entries
func (e *Engine) SetBlockTrackers(on bool) { e.UpdateToggles(TogglePatch{BlockTrackers: &on}) }

// SetBlockAds toggles the blocklist for ad entries
func (e *Engine) SetBlockAds(on bool) { e.UpdateToggles(TogglePatch{BlockAds: &on}) }

// SetJavaScriptEnabled toggles script execution in pages
func (e *Engine) SetJavaScriptEnabled(on bool) {
	e.UpdateToggles(TogglePatch{JavaScriptEnabled: &on})
}

// SetBlockReferrer selects between no-referrer and strict-origin
func (e *Engine) SetBlockReferrer(on bool) { e.UpdateToggles(TogglePatch{BlockReferrer: &on}) }

// SetSendDoNotTrack toggles the DNT header
func (e *Engine) SetSendDoNotTrack(on bool) { e.UpdateToggles(TogglePatch{SendDoNotTrack: &on}) }

// SetBlockThirdPartyCookies toggles third-party cookie blocking
func (e *Engine) SetBlockThirdPartyCookies(on bool) {
	e.UpdateToggles(TogglePatch{BlockThirdPartyCookies: &on})
}

// ReferrerPolicy returns the Referrer-Policy the shell should send
func (e *Engine) ReferrerPolicy() string {
	if e.Toggles().BlockReferrer {
		return ReferrerNone
	}
	return ReferrerStrictOrigin
}

// JavaScriptAllowed reports whether pages may run scripts
func (e *Engine) JavaScriptAllowed() bool {
	return e.Toggles().JavaScriptEnabled
}

// DoNotTrack reports whether the DNT header should be sent
func (e *Engine) DoNotTrack() bool {
	return e.Toggles().SendDoNotTrack
}

// AddBlockedDomain adds a user entry to the blocklist
func (e *Engine) AddBlockedDomain(domain string) bool {
	e.mu.Lock()
	added := e.blocklist.Add(domain)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if added {
		e.logger.Info("Domain blocked", zap.String("domain", domain))
		e.persist(snap)
	}
	return added
}

// RemoveBlockedDomain deletes an entry from the blocklist
func (e *Engine) RemoveBlockedDomain(domain string) bool {
	e.mu.Lock()
	removed := e.blocklist.Remove(domain)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if removed {
		e.logger.Info("Domain unblocked", zap.String("domain", domain))
		e.persist(snap)
	}
	return removed
}

// LoadBlocklist merges externally sourced entries (saved custom list,
// feeds) without persisting.
func (e *Engine) LoadBlocklist(domains []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocklist.AddAll(domains)
}

// MergeBlocklist adds entries from remote feeds. They are not part of the
// custom list and are never persisted.
func (e *Engine) MergeBlocklist(domains []string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocklist.Merge(domains)
}

// Blocklist returns every entry
func (e *Engine) Blocklist() []string {
	return e.blocklist.List()
}

// CustomBlocklist returns the user-added entries
func (e *Engine) CustomBlocklist() []string {
	return e.blocklist.Custom()
}

// Snapshot returns the persistable state
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Profile:         e.active,
		Toggles:         e.toggles,
		CustomBlocklist: e.blocklist.Custom(),
		CustomPhishing:  e.detector.Custom(),
		ProfileSites:    e.profiles.Added(),
		seq:             e.seq.Add(1),
	}
}

// persist saves snap unless a newer snapshot is already on disk.
func (e *Engine) persist(snap Snapshot) {
	if e.persister == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if snap.seq <= e.persisted {
		return
	}
	if err := e.persister.Save(snap); err != nil {
		e.logger.Warn("Failed to persist policy state", zap.Error(err))
		return
	}
	e.persisted = snap.seq
}

// PanicClear instructs the clearer to wipe all browsing data
func (e *Engine) PanicClear(ctx context.Context) error {
	e.stats.panicClears.Add(1)
	e.logger.Warn("Panic clear requested")

	if e.clearer == nil {
		return ErrNoClearer
	}
	if err := e.clearer.Clear(ctx, ClearPanic); err != nil {
		return fmt.Errorf("panic clear: %w", err)
	}
	return nil
}

// Shutdown saves state and, when clear-on-exit is set, wipes browsing data.
func (e *Engine) Shutdown(ctx context.Context) error {
	snap := e.Snapshot()
	e.persist(snap)

	if !snap.Toggles.ClearOnExit || e.clearer == nil {
		return nil
	}
	if err := e.clearer.Clear(ctx, ClearExit); err != nil {
		return fmt.Errorf("clear on exit: %w", err)
	}
	return nil
}

// Stats returns a copy of the counters
func (e *Engine) Stats() Stats {
	return Stats{
		Evaluations:        e.stats.evaluations.Load(),
		Allowed:            e.stats.allowed.Load(),
		Rewritten:          e.stats.rewritten.Load(),
		Blocked:            e.stats.blocked.Load(),
		HTTPSOnlyBlocks:    e.stats.httpsOnlyBlocks.Load(),
		ProfileBlocks:      e.stats.profileBlocks.Load(),
		TrackersBlocked:    e.stats.trackersBlocked.Load(),
		PhishingBlocked:    e.stats.phishingBlocked.Load(),
		PhishingWarnings:   e.stats.phishingWarnings.Load(),
		HTTPSUpgrades:      e.stats.httpsUpgrades.Load(),
		ParamsStripped:     e.stats.paramsStripped.Load(),
		DownloadsChecked:   e.stats.downloadsChecked.Load(),
		DangerousDownloads: e.stats.dangerousDownloads.Load(),
		ProfileSwitches:    e.stats.profileSwitches.Load(),
		PanicClears:        e.stats.panicClears.Load(),
	}
}
