package models

import "time"

// PlayerState is a snapshot of everything the quick-controls menu renders.
//
// Snapshots are owned by the state observer and rebuilt wholesale on every
// observed change; consumers must treat them as read-only values.
type PlayerState struct {
	IsPlaying      bool       `json:"is_playing"`
	IsPaused       bool       `json:"is_paused"`
	RepeatMode     RepeatMode `json:"repeat_mode"`
	IsShuffled     bool       `json:"is_shuffled"`
	IsLiked        bool       `json:"is_liked"`
	CanLike        bool       `json:"can_like"`
	HasCurrentSong bool       `json:"has_current_song"`
}

// Equal reports whether two snapshots match field by field. The observer and
// the platform adapters both rely on this to suppress redundant rebuilds.
func (s PlayerState) Equal(other PlayerState) bool {
	return s == other
}

// SongInfo is the payload of the song metadata feed.
type SongInfo struct {
	Title    string        `json:"title"`
	Artist   string        `json:"artist"`
	Album    string        `json:"album,omitempty"`
	VideoID  string        `json:"videoId"`
	IsPaused bool          `json:"isPaused"`
	Duration time.Duration `json:"songDuration"`
	Elapsed  time.Duration `json:"elapsedSeconds"`
	URL      string        `json:"url,omitempty"`
}

// WatchURL returns the canonical watch page for the song, falling back to the
// videoId when the feed did not carry an explicit URL.
func (s SongInfo) WatchURL() string {
	if s.URL != "" {
		return s.URL
	}
	if s.VideoID == "" {
		return ""
	}
	return "https://music.youtube.com/watch?v=" + s.VideoID
}

// LyricLine is a single timed line of a synced lyric sheet.
type LyricLine struct {
	At   time.Duration `json:"at"`
	Text string        `json:"text"`
}

// Lyrics holds the lyric sheet fetched for one song.
type Lyrics struct {
	VideoID string      `json:"video_id"`
	Title   string      `json:"title"`
	Artist  string      `json:"artist"`
	Source  string      `json:"source"`
	Synced  bool        `json:"synced"`
	Lines   []LyricLine `json:"lines"`
}

// LineAt returns the index of the line active at the given playback position,
// or -1 before the first line. Positions past the last line stick to it.
func (l *Lyrics) LineAt(pos time.Duration) int {
	idx := -1
	for i, line := range l.Lines {
		if line.At > pos {
			break
		}
		idx = i
	}
	return idx
}
