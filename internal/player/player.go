package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"

	"karolbroda.com/karaline/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPrefix      = "org.mpris.MediaPlayer2."
)

type Event int

const (
	EventTrackChanged Event = iota
	EventSeeked
	EventPlaybackStateChanged
)

type EventData struct {
	Type     Event
	Track    *track.Info
	Position float64
	Playing  bool
}

// State is a snapshot of what the player last told us.
type State struct {
	Track    *track.Info
	Position float64
	Playing  bool
	Stopped  bool
}

// Service follows one MPRIS player over the session bus. Position is
// extrapolated between reports so readers get a smooth clock.
type Service struct {
	bus     *dbus.Conn
	service string
	now     func() time.Time

	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData

	mu        sync.RWMutex
	track     *track.Info
	position  time.Duration
	updatedAt time.Time
	playing   bool
	stopped   bool
}

func NewService(bus *dbus.Conn, mprisService string) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}
	return newService(bus, mprisService, time.Now), nil
}

func newService(bus *dbus.Conn, name string, now func() time.Time) *Service {
	return &Service{
		bus:       bus,
		service:   name,
		now:       now,
		stopChan:  make(chan struct{}),
		eventChan: make(chan EventData, 16),
	}
}

func (s *Service) Name() string { return s.service }

// Start subscribes to property and seek signals.
func (s *Service) Start() error {
	s.signalChan = make(chan *dbus.Signal, 10)
	s.bus.Signal(s.signalChan)

	matches := []string{
		fmt.Sprintf(
			"type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
			s.service, mprisPath,
		),
		fmt.Sprintf(
			"type='signal',sender='%s',interface='%s',member='Seeked',path='%s'",
			s.service, mprisPlayerIface, mprisPath,
		),
	}
	for _, match := range matches {
		if err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			return fmt.Errorf("failed to add match: %w", err)
		}
	}

	go s.signalLoop()
	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

// Run polls the player until ctx ends. Signals keep the state fresh between
// polls, polling catches players that never emit them.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Poll(); err != nil {
			log.Debug("poll failed", "service", s.service, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) property(name string) (dbus.Variant, error) {
	obj := s.bus.Object(s.service, mprisPath)
	if obj == nil {
		return dbus.Variant{}, errors.New("nil dbus object")
	}
	return obj.GetProperty(mprisPlayerIface + "." + name)
}

func (s *Service) GetCurrentTrack() (*track.Info, error) {
	prop, err := s.property("Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := trackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in metadata (title=%q, artist=%q)", info.Title, info.Artist)
	}
	return info, nil
}

// GetCurrentPosition asks the player directly, in microseconds.
func (s *Service) GetCurrentPosition() (int64, error) {
	prop, err := s.property("Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}
	us, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	return max(us, 0), nil
}

func (s *Service) GetPlaybackStatus() (string, error) {
	prop, err := s.property("PlaybackStatus")
	if err != nil {
		return "", fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected playback status type %T", prop.Value())
	}
	return status, nil
}

// Poll refreshes track, status and position in one go.
func (s *Service) Poll() error {
	trk, err := s.GetCurrentTrack()
	if err != nil {
		return err
	}
	us, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}
	status, err := s.GetPlaybackStatus()
	if err != nil {
		return err
	}

	s.setTrack(trk, us)
	s.setStatus(status)
	s.setPosition(us, false)
	return nil
}

func (s *Service) setTrack(trk *track.Info, us int64) {
	s.mu.Lock()
	if trk.IsSameTrack(s.track) {
		s.mu.Unlock()
		return
	}
	s.track = trk
	s.position = time.Duration(us) * time.Microsecond
	s.updatedAt = s.now()
	s.mu.Unlock()

	log.Debug("track changed", "track", trk.String())
	s.emitEvent(EventData{Type: EventTrackChanged, Track: trk, Position: float64(us) / 1e6})
}

func (s *Service) setStatus(status string) {
	playing := status == "Playing"
	stopped := status == "Stopped"

	s.mu.Lock()
	if s.playing == playing && s.stopped == stopped {
		s.mu.Unlock()
		return
	}
	s.position = s.positionLocked()
	s.updatedAt = s.now()
	s.playing = playing
	s.stopped = stopped
	s.mu.Unlock()

	s.emitEvent(EventData{Type: EventPlaybackStateChanged, Playing: playing})
}

// setPosition accepts a reported position. Polls that land within a
// second of the extrapolated value are dropped so the clock does not jitter
// with bus latency.
func (s *Service) setPosition(us int64, seeked bool) {
	reported := time.Duration(us) * time.Microsecond

	s.mu.Lock()
	drift := reported - s.positionLocked()
	if !seeked && drift < time.Second && drift > -time.Second && !s.updatedAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.position = reported
	s.updatedAt = s.now()
	s.mu.Unlock()

	if seeked || drift > 3*time.Second || drift < -3*time.Second {
		s.emitEvent(EventData{Type: EventSeeked, Position: reported.Seconds()})
	}
}

func (s *Service) positionLocked() time.Duration {
	if !s.playing || s.updatedAt.IsZero() {
		return s.position
	}
	return s.position + s.now().Sub(s.updatedAt)
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Position: s.positionLocked().Seconds(),
		Playing:  s.playing,
		Stopped:  s.stopped,
	}
	if s.track != nil {
		copied := *s.track
		st.Track = &copied
	}
	return st
}

func (s *Service) Elapsed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positionLocked().Seconds()
}

func (s *Service) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

func (s *Service) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// Follow returns a clock that completes as soon as the player moves away
// from trk or stops.
func (s *Service) Follow(trk *track.Info) *Session {
	return &Session{svc: s, track: trk}
}

// Session is the playback clock of one track.
type Session struct {
	svc   *Service
	track *track.Info
}

func (f *Session) Track() *track.Info { return f.track }

func (f *Session) Elapsed() float64 { return f.svc.Elapsed() }

func (f *Session) IsPlaying() bool { return f.svc.IsPlaying() }

func (f *Session) IsComplete() bool {
	f.svc.mu.RLock()
	defer f.svc.mu.RUnlock()
	return f.svc.stopped || !f.track.IsSameTrack(f.svc.track)
}

// Seek asks the player to jump by delta seconds.
func (s *Service) Seek(delta float64) error {
	obj := s.bus.Object(s.service, mprisPath)
	if err := obj.Call(mprisPlayerIface+".Seek", 0, int64(delta*1e6)).Err; err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

func (s *Service) PlayPause() error {
	obj := s.bus.Object(s.service, mprisPath)
	if err := obj.Call(mprisPlayerIface+".PlayPause", 0).Err; err != nil {
		return fmt.Errorf("failed to toggle playback: %w", err)
	}
	return nil
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		if len(sig.Body) < 1 {
			return
		}
		if us, ok := sig.Body[0].(int64); ok && us >= 0 {
			s.setPosition(us, true)
		}
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != mprisPlayerIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	if v, ok := changed["Metadata"]; ok {
		if metadata, ok := v.Value().(map[string]dbus.Variant); ok {
			if info := trackFromMetadata(metadata); info.IsValid() {
				// new tracks start from the top unless the player says otherwise
				s.setTrack(info, 0)
			}
		}
	}

	if v, ok := changed["PlaybackStatus"]; ok {
		if status, ok := v.Value().(string); ok {
			s.setStatus(status)
		}
	}
}

func (s *Service) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
	}
}

// ListPlayers returns the bus names of every running MPRIS player.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players, nil
}

// Identity is the player's human readable name, empty if it has none.
func Identity(bus *dbus.Conn, service string) string {
	variant, err := bus.Object(service, mprisPath).GetProperty(mprisRootIface + ".Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}

func trackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractTrackID(metadata, "mpris:trackid"),
		Duration:   extractDuration(metadata, "mpris:length"),
	}
}

func lookup(metadata map[string]dbus.Variant, key string) any {
	if metadata == nil {
		return nil
	}
	variant, ok := metadata[key]
	if !ok {
		return nil
	}
	return variant.Value()
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	text, _ := lookup(metadata, key).(string)
	return text
}

// trackid is an object path per the mpris spec but plenty of players send
// a plain string.
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	switch typed := lookup(metadata, key).(type) {
	case dbus.ObjectPath:
		return string(typed)
	case string:
		return typed
	}
	return ""
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	switch typed := lookup(metadata, key).(type) {
	case []string:
		return strings.Join(typed, ", ")
	case string:
		return typed
	}
	return ""
}

// extractDuration reads mpris:length, microseconds, as seconds.
func extractDuration(metadata map[string]dbus.Variant, key string) float64 {
	switch typed := lookup(metadata, key).(type) {
	case int64:
		return float64(max(typed, 0)) / 1e6
	case uint64:
		return float64(typed) / 1e6
	case int32:
		return float64(max(typed, 0)) / 1e6
	}
	return 0
}
