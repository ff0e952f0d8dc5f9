package player

import (
	"math"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/karaline/internal/clock"
	"karolbroda.com/karaline/internal/track"
)

var _ clock.Source = (*Service)(nil)
var _ clock.Source = (*Session)(nil)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time          { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestService() (*Service, *fakeTime) {
	ft := &fakeTime{t: time.Unix(1_700_000_000, 0)}
	return newService(nil, "org.mpris.MediaPlayer2.test", ft.now), ft
}

func metadata(title, artist, id string) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"xesam:title":   dbus.MakeVariant(title),
		"xesam:artist":  dbus.MakeVariant([]string{artist}),
		"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath(id)),
		"mpris:length":  dbus.MakeVariant(int64(180_000_000)),
	}
}

func propertiesChanged(props map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []any{mprisPlayerIface, props, []string{}},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTrackFromMetadata(t *testing.T) {
	md := metadata("Freaks", "Surf Curse", "/org/mpris/track/1")
	md["xesam:album"] = dbus.MakeVariant("Buds")
	md["mpris:artUrl"] = dbus.MakeVariant("file:///tmp/cover.png")

	info := trackFromMetadata(md)
	want := track.Info{
		Title:      "Freaks",
		Artist:     "Surf Curse",
		Album:      "Buds",
		Duration:   180,
		ArtworkURL: "file:///tmp/cover.png",
		TrackID:    "/org/mpris/track/1",
	}
	if *info != want {
		t.Errorf("Expected %+v, got %+v", want, *info)
	}
}

func TestExtractors_Variants(t *testing.T) {
	md := map[string]dbus.Variant{
		"artists": dbus.MakeVariant([]string{"a", "b"}),
		"artist":  dbus.MakeVariant("solo"),
		"id":      dbus.MakeVariant("spotify:track:1"),
		"len32":   dbus.MakeVariant(int32(-5)),
		"lenu":    dbus.MakeVariant(uint64(2_500_000)),
		"wrong":   dbus.MakeVariant(42),
	}

	if got := extractArtist(md, "artists"); got != "a, b" {
		t.Errorf("Expected joined artists, got %q", got)
	}
	if got := extractArtist(md, "artist"); got != "solo" {
		t.Errorf("Expected solo, got %q", got)
	}
	if got := extractTrackID(md, "id"); got != "spotify:track:1" {
		t.Errorf("Expected plain string id, got %q", got)
	}
	if got := extractDuration(md, "len32"); got != 0 {
		t.Errorf("Expected negative length to clamp, got %v", got)
	}
	if got := extractDuration(md, "lenu"); got != 2.5 {
		t.Errorf("Expected 2.5, got %v", got)
	}
	if got := extractString(md, "wrong"); got != "" {
		t.Errorf("Expected empty for wrong type, got %q", got)
	}
	if got := extractString(nil, "missing"); got != "" {
		t.Errorf("Expected empty for nil map, got %q", got)
	}
}

func TestService_Extrapolates(t *testing.T) {
	s, ft := newTestService()

	s.handleSignal(propertiesChanged(map[string]dbus.Variant{
		"Metadata":       dbus.MakeVariant(metadata("Freaks", "Surf Curse", "/t/1")),
		"PlaybackStatus": dbus.MakeVariant("Playing"),
	}))

	ft.advance(1500 * time.Millisecond)
	if !approx(s.Elapsed(), 1.5) {
		t.Errorf("Expected 1.5s, got %v", s.Elapsed())
	}
	if !s.IsPlaying() {
		t.Error("Expected playing")
	}

	s.handleSignal(propertiesChanged(map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant("Paused"),
	}))
	ft.advance(10 * time.Second)
	if !approx(s.Elapsed(), 1.5) {
		t.Errorf("Expected paused clock to hold 1.5s, got %v", s.Elapsed())
	}
}

func TestService_Seeked(t *testing.T) {
	s, ft := newTestService()
	s.setStatus("Playing")

	s.handleSignal(&dbus.Signal{Name: mprisPlayerIface + ".Seeked", Body: []any{int64(42_000_000)}})
	ft.advance(time.Second)
	if !approx(s.Elapsed(), 43) {
		t.Errorf("Expected 43s, got %v", s.Elapsed())
	}

	select {
	case ev := <-s.Events():
		// the status change comes first
		if ev.Type != EventPlaybackStateChanged {
			t.Errorf("Expected a playback event first, got %v", ev.Type)
		}
	default:
		t.Fatal("Expected events")
	}
	select {
	case ev := <-s.Events():
		if ev.Type != EventSeeked || ev.Position != 42 {
			t.Errorf("Unexpected seek event %+v", ev)
		}
	default:
		t.Error("Expected a seek event")
	}
}

func TestService_SmallDriftIgnored(t *testing.T) {
	s, ft := newTestService()
	s.setStatus("Playing")
	s.setPosition(10_000_000, true)

	ft.advance(2 * time.Second)
	// a poll reporting slightly behind must not pull the clock back
	s.setPosition(11_700_000, false)
	if !approx(s.Elapsed(), 12) {
		t.Errorf("Expected extrapolated 12s, got %v", s.Elapsed())
	}

	s.setPosition(30_000_000, false)
	if !approx(s.Elapsed(), 30) {
		t.Errorf("Expected large drift to be taken, got %v", s.Elapsed())
	}
}

func TestSession_CompletesOnTrackChange(t *testing.T) {
	s, _ := newTestService()
	first := trackFromMetadata(metadata("Freaks", "Surf Curse", "/t/1"))
	s.setTrack(first, 0)
	s.setStatus("Playing")

	session := s.Follow(first)
	if session.IsComplete() {
		t.Fatal("Did not expect a fresh session to be complete")
	}

	s.handleSignal(propertiesChanged(map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(metadata("Disco", "Surf Curse", "/t/2")),
	}))
	if !session.IsComplete() {
		t.Error("Expected the session to complete after a track change")
	}
	if s.State().Track.Title != "Disco" {
		t.Errorf("Expected Disco, got %q", s.State().Track.Title)
	}
}

func TestSession_CompletesOnStop(t *testing.T) {
	s, _ := newTestService()
	trk := trackFromMetadata(metadata("Freaks", "Surf Curse", "/t/1"))
	s.setTrack(trk, 0)
	session := s.Follow(trk)

	s.setStatus("Stopped")
	if !session.IsComplete() || !s.IsComplete() {
		t.Error("Expected stop to complete the session")
	}
}

func TestHandleSignal_IgnoresOtherInterfaces(t *testing.T) {
	s, _ := newTestService()
	s.handleSignal(&dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []any{"org.example.Other", map[string]dbus.Variant{"PlaybackStatus": dbus.MakeVariant("Playing")}},
	})
	s.handleSignal(nil)
	if s.IsPlaying() {
		t.Error("Expected foreign interface to be ignored")
	}
}
