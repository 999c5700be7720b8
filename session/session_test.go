package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/netquality"
	"github.com/anisan-cli/anistream/provider"
	"github.com/anisan-cli/anistream/source"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSource struct {
	mu        sync.Mutex
	mirrors   map[string][]source.Mirror
	findErr   error
	manifests map[string]source.Manifest
	failures  map[string]int
	blocked   map[string]bool
	started   chan string
	calls     map[string]int
	finds     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		mirrors: map[string][]source.Mirror{
			"100": {
				{ID: "a", ManifestRef: "A", Language: "es", Quality: "1080p", Seeds: 50, Peers: 5},
				{ID: "b", ManifestRef: "B", Language: "en", Quality: "720p", Seeds: 20, Peers: 2},
			},
			"200": {
				{ID: "c", ManifestRef: "C", Language: "en", Quality: "1080p", Seeds: 5},
			},
		},
		manifests: map[string]source.Manifest{
			"A": {Ref: "A", Files: []source.File{{ID: 0, Name: "a.nfo"}, {ID: 1, Name: "a.mkv", Size: 10 << 30}}},
			"B": {Ref: "B", Files: []source.File{{ID: 3, Name: "b.mp4", Size: 3 << 30}}},
			"C": {Ref: "C", Files: []source.File{{ID: 0, Name: "c.avi", Size: 1 << 30}}},
		},
		failures: make(map[string]int),
		blocked:  make(map[string]bool),
		started:  make(chan string, 8),
		calls:    make(map[string]int),
	}
}

func (f *fakeSource) FindMirrors(_ context.Context, contentID, _ string) ([]source.Mirror, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	mirrors, ok := f.mirrors[contentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown content", source.ErrSourceUnavailable)
	}
	return mirrors, nil
}

func (f *fakeSource) FetchManifest(ctx context.Context, ref string) (source.Manifest, error) {
	f.mu.Lock()
	f.calls[ref]++
	blocked := f.blocked[ref]
	f.mu.Unlock()

	if blocked {
		f.started <- ref
		<-ctx.Done()
		return source.Manifest{}, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.failures[ref]; n != 0 {
		if n > 0 {
			f.failures[ref] = n - 1
		}
		return source.Manifest{}, fmt.Errorf("%w: %s", source.ErrManifestUnavailable, ref)
	}
	return f.manifests[ref], nil
}

func (f *fakeSource) ResolveStreamURL(ref string, fileID int) string {
	return fmt.Sprintf("http://mirror.test/stream/%s/%d", ref, fileID)
}

func (f *fakeSource) callsTo(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

type fakeBackup struct {
	streams []source.BackupStream
	err     error
	calls   atomic.Int32
}

func (b *fakeBackup) Streams(context.Context, string) ([]source.BackupStream, error) {
	b.calls.Add(1)
	return b.streams, b.err
}

type fakeDetails struct{ language string }

func (d fakeDetails) PreferredLanguage(context.Context, string) (string, error) {
	return d.language, nil
}

func TestResolveAgainstMirrorService(t *testing.T) {
	Convey("Given a mirror service whose first manifest fails twice", t, func() {
		const (
			hashA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
			hashB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
		)
		var manifestA, manifestB atomic.Int32

		mux := http.NewServeMux()
		mux.HandleFunc("/movies/tmdb", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `[
				{"id": "a", "language": "es", "quality": "1080p", "seeds": 50, "peers": 5, "magnet": "magnet:?xt=urn:btih:%s"},
				{"id": "b", "language": "en", "quality": "720p", "seeds": 20, "peers": 2, "magnet": "magnet:?xt=urn:btih:%s"}
			]`, hashA, hashB)
		})
		mux.HandleFunc("/torrent/", func(w http.ResponseWriter, r *http.Request) {
			ref := strings.TrimPrefix(r.URL.Path, "/torrent/")
			if ref == hashB {
				manifestB.Add(1)
			}
			if ref == hashA && manifestA.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprintf(w, `{"Name": "Movie", "InfoHash": "%s", "Files": [
				{"ID": 0, "Name": "poster.jpg", "Size": 1000},
				{"ID": 1, "Name": "Movie.1080p.mkv", "Size": 9663676416},
				{"ID": 2, "Name": "Sample.mkv", "Size": 1000}
			], "CreatedAt": "2024-03-01T10:00:00Z"}`, ref)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		c := New(Options{
			Source:    provider.New(provider.Options{BaseURL: server.URL, HTTPClient: server.Client()}),
			BaseDelay: time.Millisecond,
		})

		state, err := c.Resolve(context.Background(), "100", Preferences{Language: "es", Quality: "1080p"})

		So(err, ShouldBeNil)
		So(state.StreamURL, ShouldEqual, server.URL+"/stream/"+hashA+"/1")
		So(state.Mirror.ID, ShouldEqual, "a")
		So(state.Video.Quality, ShouldEqual, "1080p")
		So(state.Loading, ShouldBeFalse)
		So(state.Exhausted, ShouldBeFalse)
		So(manifestA.Load(), ShouldEqual, 3)
		So(manifestB.Load(), ShouldEqual, 0)
	})
}

func TestResolveWhileDiscoveryIsInFlight(t *testing.T) {
	Convey("Given a mirror service that is slow to list mirrors", t, func() {
		const hashA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		var discoveries atomic.Int32
		listing := make(chan struct{}, 1)

		mux := http.NewServeMux()
		mux.HandleFunc("/movies/tmdb", func(w http.ResponseWriter, r *http.Request) {
			discoveries.Add(1)
			listing <- struct{}{}
			time.Sleep(300 * time.Millisecond)
			fmt.Fprintf(w, `[{"id": "a", "language": "es", "quality": "1080p", "seeds": 50, "magnet": "magnet:?xt=urn:btih:%s"}]`, hashA)
		})
		mux.HandleFunc("/torrent/", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"Name": "Movie", "Files": [{"ID": 1, "Name": "Movie.mkv", "Size": 9663676416}]}`)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		c := New(Options{
			Source:    provider.New(provider.Options{BaseURL: server.URL, HTTPClient: server.Client()}),
			BaseDelay: time.Millisecond,
		})
		ctx := context.Background()
		prefs := Preferences{Language: "es", Quality: "1080p"}

		Convey("A second resolve of the same id takes over instead of failing", func() {
			done := make(chan error, 1)
			go func() {
				_, err := c.Resolve(ctx, "100", prefs)
				done <- err
			}()
			<-listing

			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Exhausted, ShouldBeFalse)
			So(state.StreamURL, ShouldEqual, server.URL+"/stream/"+hashA+"/1")

			So(errors.Is(<-done, ErrStaleSession), ShouldBeTrue)
			So(discoveries.Load(), ShouldEqual, 1)
		})
	})
}

func TestController(t *testing.T) {
	Convey("Given a controller over two mirrors", t, func() {
		src := newFakeSource()
		var (
			mu      sync.Mutex
			changes []State
			records []history.Record
		)
		opts := Options{
			Source:    src,
			BaseDelay: time.Millisecond,
			OnChange: func(s State) {
				mu.Lock()
				changes = append(changes, s)
				mu.Unlock()
			},
			Record: func(r history.Record) error {
				records = append(records, r)
				return nil
			},
		}
		ctx := context.Background()
		prefs := Preferences{Language: "es", Quality: "1080p"}

		Convey("The preferred mirror is resolved and reported", func() {
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.StreamURL, ShouldEqual, "http://mirror.test/stream/A/1")
			So(state.Tier, ShouldNotBeEmpty)
			So(c.State(), ShouldResemble, state)

			So(changes[0].Loading, ShouldBeTrue)
			So(changes[len(changes)-1].StreamURL, ShouldEqual, state.StreamURL)
			So(records, ShouldHaveLength, 1)
			So(records[0].ManifestRef, ShouldEqual, "A")
		})

		Convey("Playback errors fail over and eventually restart the walk", func() {
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "A")

			state, err = c.ReportPlaybackError(ctx)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "B")
			So(state.Exhausted, ShouldBeFalse)

			state, err = c.ReportPlaybackError(ctx)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "A")
			So(state.Exhausted, ShouldBeTrue)
			So(state.StreamURL, ShouldEqual, "http://mirror.test/stream/A/1")
		})

		Convey("A mirror whose manifest keeps failing is abandoned after the attempt cap", func() {
			src.failures["A"] = -1
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "B")
			So(src.callsTo("A"), ShouldEqual, DefaultMaxAttempts)
		})

		Convey("A manifest without video files is skipped", func() {
			src.manifests["A"] = source.Manifest{Ref: "A", Files: []source.File{{Name: "a.srt"}}}
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "B")
			So(src.callsTo("A"), ShouldEqual, 1)
		})

		Convey("When every mirror fails", func() {
			src.failures["A"] = -1
			src.failures["B"] = -1
			opts.MaxAttempts = 2

			Convey("Without a backup the session reports no sources", func() {
				c := New(opts)
				state, err := c.Resolve(ctx, "100", prefs)
				So(errors.Is(err, source.ErrNoSources), ShouldBeTrue)
				So(state.Exhausted, ShouldBeTrue)
				So(state.Playable(), ShouldBeFalse)
				So(src.callsTo("A"), ShouldEqual, 2)
				So(src.callsTo("B"), ShouldEqual, 2)
				So(records, ShouldBeEmpty)
			})

			Convey("The backup provider is used", func() {
				backup := &fakeBackup{streams: []source.BackupStream{
					{URL: "http://backup.test/720.m3u8", Quality: "720p"},
					{URL: "http://backup.test/1080.m3u8", Quality: "1080p", Language: "es"},
				}}
				opts.Backup = backup
				c := New(opts)
				state, err := c.Resolve(ctx, "100", prefs)
				So(err, ShouldBeNil)
				So(state.Backup, ShouldBeTrue)
				So(state.Exhausted, ShouldBeTrue)
				So(state.StreamURL, ShouldEqual, "http://backup.test/1080.m3u8")
				So(records[0].Backup, ShouldBeTrue)
			})

			Convey("A failing backup still reports no sources", func() {
				opts.Backup = &fakeBackup{err: source.ErrSourceUnavailable}
				c := New(opts)
				_, err := c.Resolve(ctx, "100", prefs)
				So(errors.Is(err, source.ErrNoSources), ShouldBeTrue)
			})
		})

		Convey("Discovery failure goes straight to the backup", func() {
			src.findErr = fmt.Errorf("%w: down", source.ErrSourceUnavailable)
			backup := &fakeBackup{streams: []source.BackupStream{{URL: "http://backup.test/any.m3u8"}}}
			opts.Backup = backup
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Backup, ShouldBeTrue)
			So(state.Exhausted, ShouldBeFalse)
			So(state.StreamURL, ShouldEqual, "http://backup.test/any.m3u8")
		})

		Convey("Offline short-circuits every fetch", func() {
			c := New(opts)
			c.SetOnline(false)
			state, err := c.Resolve(ctx, "100", prefs)
			So(errors.Is(err, source.ErrOffline), ShouldBeTrue)
			So(state.Offline, ShouldBeTrue)
			So(state.Score, ShouldEqual, 0)
			So(src.finds, ShouldEqual, 0)
		})

		Convey("Details supply the language when none is given", func() {
			opts.Details = fakeDetails{language: "English"}
			c := New(opts)
			state, err := c.Resolve(ctx, "100", Preferences{Quality: "720p"})
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "B")
			So(state.Language, ShouldEqual, "en")
		})

		Convey("Switching content makes the previous resolution stale", func() {
			src.blocked["A"] = true
			c := New(opts)

			done := make(chan error, 1)
			go func() {
				_, err := c.Resolve(ctx, "100", prefs)
				done <- err
			}()
			So(<-src.started, ShouldEqual, "A")

			state, err := c.Resolve(ctx, "200", prefs)
			So(err, ShouldBeNil)
			So(state.ContentID, ShouldEqual, "200")
			So(state.Mirror.ManifestRef, ShouldEqual, "C")

			So(errors.Is(<-done, ErrStaleSession), ShouldBeTrue)
			So(c.State().ContentID, ShouldEqual, "200")
			So(src.callsTo("B"), ShouldEqual, 0)
		})

		Convey("Telemetry updates the tier without touching the stream", func() {
			c := New(opts)
			resolved, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)

			for i := 0; i < 3; i++ {
				c.ReportSample(netquality.Sample{Bandwidth: 30e6})
			}
			state := c.ReportBufferState(120, 10)
			So(state.Tier, ShouldEqual, "full")
			So(state.StreamURL, ShouldEqual, resolved.StreamURL)

			state = c.ReportStall(2 * time.Second)
			So(state.Score, ShouldBeLessThan, 1)

			c.ReportBuffering()
			So(c.Estimator().BufferingEvents(), ShouldEqual, 1)
		})

		Convey("Mirrors are rediscovered on every resolution", func() {
			c := New(opts)
			state, err := c.Resolve(ctx, "100", prefs)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "A")

			src.mu.Lock()
			src.mirrors["100"] = append(src.mirrors["100"],
				source.Mirror{ID: "d", ManifestRef: "D", Language: "es", Quality: "1080p", Seeds: 10})
			src.manifests["D"] = source.Manifest{Ref: "D", Files: []source.File{{ID: 2, Name: "d.mkv", Size: 9 << 30}}}
			src.mu.Unlock()

			state, err = c.ReportPlaybackError(ctx)
			So(err, ShouldBeNil)
			So(state.Mirror.ManifestRef, ShouldEqual, "D")
			So(src.finds, ShouldEqual, 2)
		})

		Convey("Reporting an error without a session fails", func() {
			c := New(opts)
			_, err := c.ReportPlaybackError(ctx)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMonitorConnectivity(t *testing.T) {
	Convey("Given a controller watching a flaky link", t, func() {
		var down atomic.Bool
		ping := func(context.Context) error {
			if down.Load() {
				return errors.New("connection refused")
			}
			return nil
		}

		var (
			mu      sync.Mutex
			offline []bool
		)
		c := New(Options{
			Source: newFakeSource(),
			OnChange: func(s State) {
				mu.Lock()
				offline = append(offline, s.Offline)
				mu.Unlock()
			},
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			c.MonitorConnectivity(ctx, ping, 5*time.Millisecond)
			close(done)
		}()

		Convey("Only transitions are recorded", func() {
			time.Sleep(50 * time.Millisecond)
			So(c.Estimator().Online(), ShouldBeTrue)

			down.Store(true)
			time.Sleep(50 * time.Millisecond)
			So(c.Estimator().Online(), ShouldBeFalse)
			So(c.State().Offline, ShouldBeTrue)

			down.Store(false)
			time.Sleep(50 * time.Millisecond)
			So(c.Estimator().Online(), ShouldBeTrue)

			cancel()
			<-done

			mu.Lock()
			defer mu.Unlock()
			So(offline, ShouldResemble, []bool{true, false})
		})

		Reset(func() {
			cancel()
			<-done
		})
	})
}
