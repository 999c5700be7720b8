package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anisan-cli/anistream/cache"
	"github.com/anisan-cli/anistream/source"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	hashA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	hashB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

func magnet(hash, name string) string {
	return fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s&tr=udp://tracker.example:1337", hash, name)
}

type fakeService struct {
	mirrorCalls   atomic.Int32
	manifestCalls atomic.Int32
	mirrorsBody   string
	manifestCode  int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/movies/tmdb", func(w http.ResponseWriter, r *http.Request) {
		f.mirrorCalls.Add(1)
		if r.URL.Query().Get("tmdbId") != "100" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(f.mirrorsBody))
	})
	mux.HandleFunc("/torrent/", func(w http.ResponseWriter, r *http.Request) {
		f.manifestCalls.Add(1)
		if f.manifestCode != 0 {
			w.WriteHeader(f.manifestCode)
			return
		}
		_, _ = w.Write([]byte(`{
			"Name": "Movie",
			"InfoHash": "` + hashA + `",
			"Files": [
				{"ID": 0, "Name": "sample.nfo", "Size": 1024, "Progress": 0},
				{"ID": 1, "Name": "Movie.1080p.mkv", "Size": 9663676416, "Progress": 0.5}
			],
			"CreatedAt": "2024-03-01T10:00:00Z"
		}`))
	})
	return mux
}

func TestClient(t *testing.T) {
	Convey("Given a mirror service", t, func() {
		svc := &fakeService{
			mirrorsBody: `[
				{"id": "a", "language": "es", "quality": "1080p", "seeds": 50, "peers": 10, "magnet": "` + magnet(hashA, "Movie.ES") + `"},
				{"id": "b", "language": "en", "quality": "720p", "seeds": 20, "peers": 5, "magnet": "` + magnet(hashB, "Movie.EN") + `"}
			]`,
		}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		client := New(Options{BaseURL: server.URL + "/", HTTPClient: server.Client()})
		ctx := context.Background()

		Convey("FindMirrors decodes every mirror", func() {
			mirrors, err := client.FindMirrors(ctx, "100", "es")
			So(err, ShouldBeNil)
			So(mirrors, ShouldHaveLength, 2)
			So(mirrors[0].ID, ShouldEqual, "a")
			So(mirrors[0].ManifestRef, ShouldEqual, hashA)
			So(mirrors[0].Fingerprint, ShouldEqual, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
			So(mirrors[0].DisplayName, ShouldEqual, "Movie.ES")
			So(mirrors[0].Trackers, ShouldEqual, 1)
			So(mirrors[1].Language, ShouldEqual, "en")
			So(mirrors[1].Seeds, ShouldEqual, 20)

			Convey("And a repeated lookup is served from the cache", func() {
				again, err := client.FindMirrors(ctx, "100", "es")
				So(err, ShouldBeNil)
				So(again, ShouldResemble, mirrors)
				So(svc.mirrorCalls.Load(), ShouldEqual, 1)
			})

			Convey("And a different language hint is a separate entry", func() {
				_, err := client.FindMirrors(ctx, "100", "en")
				So(err, ShouldBeNil)
				So(svc.mirrorCalls.Load(), ShouldEqual, 2)
			})
		})

		Convey("A single mirror object is accepted", func() {
			svc.mirrorsBody = `{"id": "solo", "quality": "720p", "seeds": 1, "magnet": "` + magnet(hashB, "Solo") + `"}`
			mirrors, err := client.FindMirrors(ctx, "100", "fr")
			So(err, ShouldBeNil)
			So(mirrors, ShouldHaveLength, 1)
			So(mirrors[0].Language, ShouldEqual, "fr")
		})

		Convey("A descriptor without a digest is a source failure", func() {
			svc.mirrorsBody = `[{"id": "x", "magnet": "not a magnet"}]`
			_, err := client.FindMirrors(ctx, "100", "es")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)

			Convey("And the failure is not cached", func() {
				svc.mirrorsBody = `[{"id": "x", "magnet": "` + magnet(hashA, "X") + `"}]`
				mirrors, err := client.FindMirrors(ctx, "100", "es")
				So(err, ShouldBeNil)
				So(mirrors, ShouldHaveLength, 1)
			})
		})

		Convey("An empty listing is a source failure", func() {
			svc.mirrorsBody = `[]`
			_, err := client.FindMirrors(ctx, "100", "es")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})

		Convey("An unknown content id is a source failure", func() {
			_, err := client.FindMirrors(ctx, "404", "es")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})

		Convey("FetchManifest decodes the file listing", func() {
			manifest, err := client.FetchManifest(ctx, hashA)
			So(err, ShouldBeNil)
			So(manifest.Ref, ShouldEqual, hashA)
			So(manifest.Files, ShouldHaveLength, 2)
			So(manifest.Files[1].Size, ShouldEqual, int64(9663676416))
			So(manifest.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)

			_, err = client.FetchManifest(ctx, hashA)
			So(err, ShouldBeNil)
			So(svc.manifestCalls.Load(), ShouldEqual, 1)
		})

		Convey("A manifest HTTP error is a manifest failure", func() {
			svc.manifestCode = http.StatusBadGateway
			_, err := client.FetchManifest(ctx, hashB)
			So(errors.Is(err, source.ErrManifestUnavailable), ShouldBeTrue)
			So(source.Failover(err), ShouldBeTrue)
		})

		Convey("ResolveStreamURL templates without I/O", func() {
			So(client.ResolveStreamURL(hashA, 1), ShouldEqual, server.URL+"/stream/"+hashA+"/1")
		})

		Convey("Ping accepts any HTTP answer", func() {
			So(client.Ping(ctx), ShouldBeNil)

			Convey("And fails once the service is gone", func() {
				server.Close()
				So(client.Ping(ctx), ShouldNotBeNil)
			})
		})
	})
}

func TestDescriptor(t *testing.T) {
	Convey("Given descriptor strings", t, func() {
		Convey("A bare digest token is enough", func() {
			d, err := parseDescriptor("xt=urn:btih:abc123")
			So(err, ShouldBeNil)
			So(d.ref, ShouldEqual, "abc123")
			So(d.fingerprint, ShouldEqual, "abc123")
		})

		Convey("A missing digest is rejected", func() {
			_, err := parseDescriptor("magnet:?dn=nothing")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})
	})
}

func TestBackup(t *testing.T) {
	Convey("Given a backup provider", t, func() {
		var body string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/movie/100" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		}))
		defer server.Close()

		backup := NewBackup(BackupOptions{BaseURL: server.URL, HTTPClient: server.Client()})

		Convey("Streams with a url are returned", func() {
			body = `{"title": "Movie", "sources": [
				{"url": "https://cdn.example/movie.m3u8", "quality": "1080p", "language": "en"},
				{"url": "", "quality": "720p"}
			]}`
			streams, err := backup.Streams(context.Background(), "100")
			So(err, ShouldBeNil)
			So(streams, ShouldResemble, []source.BackupStream{
				{URL: "https://cdn.example/movie.m3u8", Quality: "1080p", Language: "en"},
			})
		})

		Convey("No streams is a source failure", func() {
			body = `{"title": "Movie", "sources": []}`
			_, err := backup.Streams(context.Background(), "100")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})

		Convey("An unknown id is a source failure", func() {
			_, err := backup.Streams(context.Background(), "7")
			So(errors.Is(err, source.ErrSourceUnavailable), ShouldBeTrue)
		})
	})
}

func TestCollectGarbage(t *testing.T) {
	Convey("Given a provider with expired and fresh entries", t, func() {
		p := &Provider{
			mirrors:   cache.New[[]source.Mirror](),
			manifests: cache.New[source.Manifest](),
		}
		p.mirrors.Set("mirrors:100:en", []source.Mirror{{ManifestRef: hashA}}, time.Nanosecond)
		p.manifests.Set("manifest:"+hashA, source.Manifest{Ref: hashA}, time.Nanosecond)
		p.manifests.Set("manifest:"+hashB, source.Manifest{Ref: hashB}, time.Hour)
		time.Sleep(time.Millisecond)

		Convey("Sweeping evicts only the expired ones", func() {
			So(p.sweep(), ShouldEqual, 2)
			So(p.manifests.Len(), ShouldEqual, 1)
		})

		Convey("The collector stops with its context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				p.CollectGarbage(ctx, time.Millisecond)
				close(done)
			}()

			time.Sleep(20 * time.Millisecond)
			cancel()
			<-done
			So(p.mirrors.Len(), ShouldEqual, 0)
		})
	})
}
