package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigJoe84g/Krill-Browser/internal/policy/download"
	"github.com/BigJoe84g/Krill-Browser/internal/policy/profile"
)

type fakePersister struct {
	mu    sync.Mutex
	saved []Snapshot
	err   error
}

func (p *fakePersister) Save(snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, snap)
	return p.err
}

func (p *fakePersister) last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved[len(p.saved)-1]
}

type fakeClearer struct {
	reasons []ClearReason
	err     error
}

func (c *fakeClearer) Clear(_ context.Context, reason ClearReason) error {
	c.reasons = append(c.reasons, reason)
	return c.err
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions map[string]int
	downloads int
	switches  []string
}

func (r *fakeRecorder) RecordDecision(action, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decisions == nil {
		r.decisions = make(map[string]int)
	}
	r.decisions[action]++
}

func (r *fakeRecorder) RecordDownload(string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads++
}

func (r *fakeRecorder) RecordProfileSwitch(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switches = append(r.switches, p)
}

func newEngine(t *testing.T, pid profile.ID) *Engine {
	t.Helper()
	e, err := New(Options{Profile: pid})
	require.NoError(t, err)
	return e
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		profile  profile.ID
		input    string
		action   Action
		url      string
		category Category
		reason   string
	}{
		{"https only blocks http", profile.Secure, "http://example.com", ActionBlock, "http://example.com", CategoryHTTPSOnly, ReasonHTTPSOnly},
		{"https only allows https", profile.Secure, "https://example.com", ActionAllow, "https://example.com", CategoryNone, ""},
		{"coding allows localhost over http", profile.Coding, "http://localhost:3000", ActionAllow, "http://localhost:3000", CategoryNone, ""},
		{"bare host gets scheme", profile.Default, "example.com", ActionRewrite, "https://example.com", CategoryNone, ""},
		{"search query", profile.Default, "golang generics", ActionRewrite, "https://duckduckgo.com/?q=golang+generics", CategoryNone, ""},
		{"search escapes", profile.Default, "a&b", ActionRewrite, "https://duckduckgo.com/?q=a%26b", CategoryNone, ""},
		{"upgrade and strip", profile.Default, "http://example.com/page?utm_source=x&id=5", ActionRewrite, "https://example.com/page?id=5", CategoryNone, ""},
		{"coding does not upgrade", profile.Coding, "http://example.com/", ActionAllow, "http://example.com/", CategoryNone, ""},
		{"profile block after strip", profile.Gaming, "https://reddit.com/?utm_source=x", ActionBlock, "https://reddit.com/", CategoryProfile, "Gaming Mode: This site is blocked to minimize distractions. Focus on your game!"},
		{"profile beats blocklist", profile.Gaming, "https://www.facebook.com/tr?id=1", ActionBlock, "https://www.facebook.com/tr?id=1", CategoryProfile, "Gaming Mode: This site is blocked to minimize distractions. Focus on your game!"},
		{"blocklist", profile.Default, "https://doubleclick.net/ad", ActionBlock, "https://doubleclick.net/ad", CategoryBlocklist, ReasonTracker},
		{"ads still blocked in coding", profile.Coding, "https://doubleclick.net/ad", ActionBlock, "https://doubleclick.net/ad", CategoryBlocklist, ReasonTracker},
		{"allowed token in query does not skip blocklist", profile.Coding, "https://doubleclick.net/ad?next=github.com", ActionBlock, "https://doubleclick.net/ad?next=github.com", CategoryBlocklist, ReasonTracker},
		{"stripped allowed token does not skip blocklist", profile.Coding, "https://doubleclick.net/ad?ref=github.com", ActionBlock, "https://doubleclick.net/ad", CategoryBlocklist, ReasonTracker},
		{"allowed token in query does not skip phishing", profile.Coding, "https://paypa1.com/login?next=localhost", ActionBlock, "https://paypa1.com/login?next=localhost", CategoryPhishing, "Possible paypal impersonation (character substitution)"},
		{"video whitelisted", profile.Default, "https://www.youtube.com/watch?v=1&utm_source=x", ActionRewrite, "https://www.youtube.com/watch?v=1", CategoryNone, ""},
		{"work blocks video", profile.Work, "https://www.youtube.com/watch?v=1", ActionBlock, "https://www.youtube.com/watch?v=1", CategoryProfile, "Work Mode: This site is blocked for productivity. Get back to work!"},
		{"phishing blocked", profile.Default, "https://paypa1.com/login", ActionBlock, "https://paypa1.com/login", CategoryPhishing, "Possible paypal impersonation (character substitution)"},
		{"malformed fails open", profile.Default, "https://example.com/%zz?utm_source=x", ActionAllow, "https://example.com/%zz?utm_source=x", CategoryNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.profile)

			d := e.Evaluate(tt.input)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.url, d.URL)
			assert.Equal(t, tt.category, d.Category)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.input, d.Original)
			assert.Equal(t, tt.profile, d.Profile)
			assert.NotEmpty(t, d.ID)
		})
	}
}

func TestAllowedSiteSkipsUpgrade(t *testing.T) {
	e := newEngine(t, profile.Default)
	require.NoError(t, e.AddProfileSite(profile.Default, "intranet.example", true))

	d := e.Evaluate("http://intranet.example/")
	assert.Equal(t, ActionAllow, d.Action)
	assert.False(t, d.Upgraded)

	d = e.Evaluate("http://example.com/?ref=intranet.example")
	assert.Equal(t, ActionRewrite, d.Action)
	assert.Equal(t, "https://example.com/", d.URL)
	assert.True(t, d.Upgraded)
}

func TestEvaluateEmptyInput(t *testing.T) {
	e := newEngine(t, profile.Default)

	d := e.Evaluate("")
	assert.False(t, d.Blocked())
	assert.Equal(t, "https://duckduckgo.com/?q=", d.URL)
}

func TestPhishingWarning(t *testing.T) {
	e := newEngine(t, profile.Default)

	d := e.Evaluate("http://192.168.1.1/")
	assert.Equal(t, ActionRewrite, d.Action)
	assert.Equal(t, "https://192.168.1.1/", d.URL)
	assert.True(t, d.Upgraded)
	require.NotNil(t, d.Phishing)
	assert.Equal(t, 75, d.Phishing.Confidence)

	coding := newEngine(t, profile.Coding)
	d = coding.Evaluate("http://127.0.0.1:8080/")
	assert.Equal(t, ActionAllow, d.Action)
	require.NotNil(t, d.Phishing)
	assert.Equal(t, 75, d.Phishing.Confidence)

	assert.Equal(t, uint64(1), e.Stats().PhishingWarnings)
}

func TestPhishingThreshold(t *testing.T) {
	e, err := New(Options{PhishingThreshold: 70})
	require.NoError(t, err)

	d := e.Evaluate("https://example.com/secure/login")
	assert.Equal(t, ActionBlock, d.Action)
	assert.Equal(t, CategoryPhishing, d.Category)

	lenient, err := New(Options{PhishingThreshold: 101})
	require.NoError(t, err)
	assert.False(t, lenient.Evaluate("https://g00gle.com/").Blocked())
}

func TestBlocklistToggles(t *testing.T) {
	e := newEngine(t, profile.Default)
	require.True(t, e.Evaluate("https://doubleclick.net").Blocked())

	e.SetBlockTrackers(false)
	require.True(t, e.Evaluate("https://doubleclick.net").Blocked())

	e.SetBlockAds(false)
	assert.False(t, e.Evaluate("https://doubleclick.net").Blocked())
}

func TestSwitchProfile(t *testing.T) {
	persister := &fakePersister{}
	recorder := &fakeRecorder{}
	e, err := New(Options{Persister: persister, Recorder: recorder})
	require.NoError(t, err)

	assert.Equal(t, ReferrerStrictOrigin, e.ReferrerPolicy())

	require.NoError(t, e.SwitchProfile(profile.Secure))
	assert.Equal(t, ReferrerNone, e.ReferrerPolicy())
	tg := e.Toggles()
	assert.True(t, tg.HTTPSOnly)
	assert.False(t, tg.JavaScriptEnabled)
	assert.True(t, tg.BlockReferrer)
	assert.True(t, tg.ForceHTTPS)
	assert.False(t, e.JavaScriptAllowed())
	assert.Equal(t, profile.Secure, e.Profile())
	assert.Equal(t, "Secure", e.ActiveProfile().DisplayName)

	require.NoError(t, e.SwitchProfile(profile.Coding))
	tg = e.Toggles()
	assert.False(t, tg.HTTPSOnly)
	assert.False(t, tg.ForceHTTPS)
	assert.False(t, tg.BlockTrackers)
	assert.True(t, tg.BlockAds)
	assert.True(t, tg.JavaScriptEnabled)
	assert.False(t, tg.BlockReferrer)
	assert.Equal(t, ReferrerStrictOrigin, e.ReferrerPolicy())

	err = e.SwitchProfile("turbo")
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)
	assert.Equal(t, profile.Coding, e.Profile())

	require.Len(t, persister.saved, 2)
	assert.Equal(t, profile.Coding, persister.last().Profile)
	assert.Equal(t, []string{"secure", "coding"}, recorder.switches)
	assert.Equal(t, uint64(2), e.Stats().ProfileSwitches)
}

func TestSwitchKeepsUnownedToggles(t *testing.T) {
	e := newEngine(t, profile.Default)
	e.SetPrivateMode(true)
	e.SetClearOnExit(true)
	e.SetSendDoNotTrack(false)

	require.NoError(t, e.SwitchProfile(profile.Work))
	tg := e.Toggles()
	assert.True(t, tg.PrivateMode)
	assert.True(t, tg.ClearOnExit)
	assert.False(t, tg.SendDoNotTrack)
	assert.False(t, e.DoNotTrack())
}

func TestConsistentSnapshotUnderSwitching(t *testing.T) {
	e := newEngine(t, profile.Default)
	profiles := []profile.ID{profile.Default, profile.Secure, profile.Coding}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			_ = e.SwitchProfile(profiles[i%len(profiles)])
		}
	}()

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				d := e.Evaluate("http://example.com/")
				switch d.Profile {
				case profile.Secure:
					assert.Equal(t, CategoryHTTPSOnly, d.Category)
				case profile.Coding:
					assert.Equal(t, "http://example.com/", d.URL)
					assert.False(t, d.Blocked())
				case profile.Default:
					assert.Equal(t, "https://example.com/", d.URL)
					assert.True(t, d.Upgraded)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(1200), e.Stats().Evaluations)
}

func TestUpdateToggles(t *testing.T) {
	persister := &fakePersister{}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	on := true
	off := false
	got := e.UpdateToggles(TogglePatch{HTTPSOnly: &on, BlockThirdPartyCookies: &off})
	assert.True(t, got.HTTPSOnly)
	assert.False(t, got.BlockThirdPartyCookies)
	assert.True(t, got.BlockAds)

	assert.True(t, e.Evaluate("http://example.com").Blocked())

	e.UpdateToggles(TogglePatch{})
	assert.Len(t, persister.saved, 1)
}

func TestRestoredToggles(t *testing.T) {
	saved := DefaultToggles()
	saved.HTTPSOnly = true

	e, err := New(Options{Profile: profile.Gaming, Toggles: &saved})
	require.NoError(t, err)
	assert.Equal(t, profile.Gaming, e.Profile())
	assert.True(t, e.Toggles().HTTPSOnly)

	_, err = New(Options{Profile: "turbo"})
	assert.ErrorIs(t, err, profile.ErrUnknownProfile)
}

func TestBlockedDomains(t *testing.T) {
	persister := &fakePersister{}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	assert.False(t, e.Evaluate("https://annoying.example/").Blocked())
	assert.True(t, e.AddBlockedDomain("Annoying.Example"))
	assert.False(t, e.AddBlockedDomain("annoying.example"))

	d := e.Evaluate("https://annoying.example/")
	assert.Equal(t, CategoryBlocklist, d.Category)
	assert.Equal(t, "annoying.example", d.Match)
	assert.Equal(t, []string{"annoying.example"}, persister.last().CustomBlocklist)
	assert.Equal(t, []string{"annoying.example"}, e.CustomBlocklist())
	assert.Contains(t, e.Blocklist(), "doubleclick.net")

	assert.True(t, e.RemoveBlockedDomain("annoying.example"))
	assert.False(t, e.RemoveBlockedDomain("annoying.example"))
	assert.Empty(t, persister.last().CustomBlocklist)
	assert.Len(t, persister.saved, 2)

	assert.Equal(t, 2, e.LoadBlocklist([]string{"one.example", "two.example", "doubleclick.net"}))
	assert.True(t, e.Evaluate("https://two.example").Blocked())
	assert.Len(t, persister.saved, 2)

	assert.Equal(t, 1, e.MergeBlocklist([]string{"feed.example", "one.example"}))
	assert.True(t, e.Evaluate("https://feed.example").Blocked())
	assert.NotContains(t, e.CustomBlocklist(), "feed.example")
	assert.Len(t, persister.saved, 2)
}

type slowPersister struct {
	fakePersister
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *slowPersister) Save(snap Snapshot) error {
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.started)
		<-p.release
	}
	return p.fakePersister.Save(snap)
}

func TestConcurrentMutationsPersistNewestState(t *testing.T) {
	persister := &slowPersister{started: make(chan struct{}), release: make(chan struct{})}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.AddBlockedDomain("first.example")
	}()
	<-persister.started

	go func() {
		defer wg.Done()
		e.AddBlockedDomain("second.example")
	}()
	require.Eventually(t, func() bool {
		return len(e.CustomBlocklist()) == 2
	}, time.Second, time.Millisecond)

	close(persister.release)
	wg.Wait()

	assert.Equal(t, []string{"first.example", "second.example"}, persister.last().CustomBlocklist)
}

func TestStaleSnapshotIsDropped(t *testing.T) {
	persister := &fakePersister{}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	older := e.Snapshot()
	e.AddBlockedDomain("newer.example")
	e.persist(older)

	require.Len(t, persister.saved, 1)
	assert.Equal(t, []string{"newer.example"}, persister.last().CustomBlocklist)
}

func TestUserAdditionsArePersisted(t *testing.T) {
	persister := &fakePersister{}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	assert.True(t, e.AddPhishingDomain("fake-login.example"))
	assert.Equal(t, []string{"fake-login.example"}, persister.last().CustomPhishing)
	assert.False(t, e.AddPhishingDomain("fake-login.example"))
	assert.Len(t, persister.saved, 1)

	require.NoError(t, e.AddProfileSite(profile.Work, "news.example", false))
	assert.Equal(t, []string{"news.example"}, persister.last().ProfileSites[profile.Work].Blocked)
	assert.Equal(t, []string{"fake-login.example"}, persister.last().CustomPhishing)

	require.Error(t, e.AddProfileSite(profile.Work, " ", false))
	assert.Len(t, persister.saved, 2)
}

func TestLoadUserAdditions(t *testing.T) {
	persister := &fakePersister{}
	e, err := New(Options{Persister: persister})
	require.NoError(t, err)

	assert.Equal(t, 1, e.LoadPhishingDomains([]string{"fake-login.example", "g00gle.com"}))
	assert.Equal(t, 1, e.LoadProfileSites(map[profile.ID]profile.Sites{
		profile.Gaming: {Allowed: []string{"speedrun.example"}},
		"turbo":        {Blocked: []string{"x.example"}},
	}))
	assert.Empty(t, persister.saved)

	assert.Equal(t, CategoryPhishing, e.Evaluate("https://fake-login.example").Category)
	assert.Equal(t, []string{"fake-login.example"}, e.Snapshot().CustomPhishing)
	assert.Contains(t, e.Snapshot().ProfileSites[profile.Gaming].Allowed, "speedrun.example")
}

func TestPersistFailureIsLogged(t *testing.T) {
	e, err := New(Options{Persister: &fakePersister{err: errors.New("disk full")}})
	require.NoError(t, err)

	assert.True(t, e.AddBlockedDomain("x.example"))
	assert.True(t, e.Evaluate("https://x.example").Blocked())
}

func TestPhishingDomains(t *testing.T) {
	e := newEngine(t, profile.Default)

	assert.False(t, e.CheckPhishing("https://login-helper.example").IsPhishing)
	assert.True(t, e.AddPhishingDomain("login-helper.example"))
	assert.Equal(t, 100, e.CheckPhishing("https://login-helper.example").Confidence)
	assert.Contains(t, e.PhishingDomains(), "login-helper.example")
	assert.Equal(t, CategoryPhishing, e.Evaluate("login-helper.example").Category)
}

func TestSecurityLevel(t *testing.T) {
	e := newEngine(t, profile.Default)

	assert.Equal(t, LevelDangerous, e.SecurityLevel("https://doubleclick.net"))
	assert.Equal(t, LevelDangerous, e.SecurityLevel("https://g00gle.com/"))
	assert.Equal(t, LevelSecure, e.SecurityLevel("https://example.com"))
	assert.Equal(t, LevelSecure, e.SecurityLevel("https://www.youtube.com"))
	assert.Equal(t, LevelInsecure, e.SecurityLevel("http://example.com"))
	assert.Equal(t, LevelUnknown, e.SecurityLevel("ftp://example.com"))
	assert.Equal(t, LevelUnknown, e.SecurityLevel(""))
}

func TestDownloads(t *testing.T) {
	recorder := &fakeRecorder{}
	e, err := New(Options{Recorder: recorder})
	require.NoError(t, err)

	v := e.ClassifyDownload("resume.pdf.exe")
	assert.True(t, v.IsDangerous)
	assert.Equal(t, download.KindHiddenExtension, v.Kind)

	v = e.InspectDownload("notes.txt", []byte("plain words"))
	assert.False(t, v.ShowWarning)

	s := e.Stats()
	assert.Equal(t, uint64(2), s.DownloadsChecked)
	assert.Equal(t, uint64(1), s.DangerousDownloads)
	assert.Equal(t, 2, recorder.downloads)
}

func TestPanicClear(t *testing.T) {
	e := newEngine(t, profile.Default)
	assert.ErrorIs(t, e.PanicClear(context.Background()), ErrNoClearer)

	clearer := &fakeClearer{}
	e, err := New(Options{Clearer: clearer})
	require.NoError(t, err)
	require.NoError(t, e.PanicClear(context.Background()))
	assert.Equal(t, []ClearReason{ClearPanic}, clearer.reasons)

	clearer.err = errors.New("hook down")
	err = e.PanicClear(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, clearer.err)
	assert.Equal(t, uint64(2), e.Stats().PanicClears)
}

func TestShutdown(t *testing.T) {
	clearer := &fakeClearer{}
	persister := &fakePersister{}
	e, err := New(Options{Clearer: clearer, Persister: persister})
	require.NoError(t, err)

	require.NoError(t, e.Shutdown(context.Background()))
	assert.Empty(t, clearer.reasons)
	assert.Len(t, persister.saved, 1)

	e.SetClearOnExit(true)
	require.NoError(t, e.Shutdown(context.Background()))
	assert.Equal(t, []ClearReason{ClearExit}, clearer.reasons)
	assert.True(t, persister.last().Toggles.ClearOnExit)
}

func TestStats(t *testing.T) {
	recorder := &fakeRecorder{}
	e, err := New(Options{Recorder: recorder})
	require.NoError(t, err)

	e.Evaluate("https://example.com")
	e.Evaluate("http://example.com/?utm_source=a&utm_medium=b")
	e.Evaluate("https://doubleclick.net")

	s := e.Stats()
	assert.Equal(t, uint64(3), s.Evaluations)
	assert.Equal(t, uint64(1), s.Allowed)
	assert.Equal(t, uint64(1), s.Rewritten)
	assert.Equal(t, uint64(1), s.Blocked)
	assert.Equal(t, uint64(1), s.TrackersBlocked)
	assert.Equal(t, uint64(1), s.HTTPSUpgrades)
	assert.Equal(t, uint64(2), s.ParamsStripped)
	assert.Equal(t, map[string]int{"allow": 1, "rewrite": 1, "block": 1}, recorder.decisions)
}

func TestCustomSearchURL(t *testing.T) {
	e, err := New(Options{SearchURL: "https://search.example/?s="})
	require.NoError(t, err)
	assert.Equal(t, "https://search.example/?s=krill+browser", e.Normalize("krill browser"))
	assert.Equal(t, "https://a.b", e.Normalize("  a.b "))
	assert.Equal(t, "HTTP://A.B", e.Normalize("HTTP://A.B"))
}
