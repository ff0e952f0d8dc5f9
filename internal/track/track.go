package track

import (
	"fmt"

	"karolbroda.com/karaline/internal/lyrics"
)

// Info describes the song a player reports.
type Info struct {
	Title      string
	Artist     string
	Album      string
	Duration   float64
	ArtworkURL string
	TrackID    string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return t.Title != "" && t.Artist != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

func (t *Info) String() string {
	if t == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// Params is the lyrics lookup for this track.
func (t *Info) Params() *lyrics.TrackParams {
	return &lyrics.TrackParams{
		Title:        t.Title,
		Artist:       t.Artist,
		Album:        t.Album,
		DurationSecs: int64(t.Duration),
	}
}
