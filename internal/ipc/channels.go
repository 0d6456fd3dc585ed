// package ipc implements the companion's message plane: named channels shared
// with the renderer process, an in-process bus with send/on/invoke semantics,
// and a websocket bridge that carries the same frames across the process
// boundary.
package ipc

import "github.com/desertthunder/ytmd/internal/models"

// Channel names are the wire contract with the renderer and are reproduced
// verbatim from the ytmd protocol.
const (
	ChanGetLikeStatus        = "ytmd:get-like-status"
	ChanRefreshLikeStatus    = "ytmd:refresh-like-status"
	ChanLikeStatusChanged    = "ytmd:like-status-changed"
	ChanRefreshRepeatStatus  = "ytmd:refresh-repeat-status"
	ChanRepeatChanged        = "ytmd:repeat-changed"
	ChanRefreshShuffleStatus = "ytmd:refresh-shuffle-status"
	ChanShuffleChanged       = "ytmd:shuffle-changed"
	ChanRefreshTrayMenu      = "ytmd:refresh-tray-menu"
	ChanLanguageChanged      = "ytmd:language-changed"
)

// Media command channels mirror the host's playback API; menu actions publish
// on these and the renderer simulates the corresponding player control.
const (
	ChanPlayPause     = "ytmd:play-pause"
	ChanPrevious      = "ytmd:previous"
	ChanNext          = "ytmd:next"
	ChanToggleLike    = "ytmd:toggle-like"
	ChanToggleShuffle = "ytmd:toggle-shuffle"
	ChanSwitchRepeat  = "ytmd:switch-repeat"
	ChanShowWindow    = "ytmd:show-window"
)

// ChanGetLyrics is the invoke channel answering lyric lookups for the
// current song. The reply payload is a [models.Lyrics].
const ChanGetLyrics = "ytmd:get-lyrics"

// ChanOpenExternal asks the shortcuts plugin to open the current song on an
// external service in the default browser.
const ChanOpenExternal = "ytmd:open-external"

// OpenExternal is the payload of ytmd:open-external.
type OpenExternal struct {
	Service string `json:"service"`
}

// LikeStatus is the payload of ytmd:like-status-changed and the reply of
// ytmd:get-like-status.
type LikeStatus struct {
	VideoID string `json:"videoId"`
	IsLiked bool   `json:"isLiked"`
}

// RepeatChanged is the payload of ytmd:repeat-changed.
type RepeatChanged struct {
	Mode string `json:"mode"`
}

// RepeatMode parses the wire mode name.
func (r RepeatChanged) RepeatMode() (models.RepeatMode, error) {
	return models.ParseRepeatMode(r.Mode)
}

// ShuffleChanged is the payload of ytmd:shuffle-changed.
type ShuffleChanged struct {
	IsShuffled bool `json:"isShuffled"`
}

// LanguageChanged is the payload of ytmd:language-changed.
type LanguageChanged struct {
	Locale string `json:"locale"`
}
