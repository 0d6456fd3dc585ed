// package menu turns a PlayerState and the quick-controls configuration into
// an ordered list of menu item descriptors. Building is pure: the same
// (state, config) pair always yields the same descriptor list, and the tree
// is regenerated wholesale on every rebuild rather than patched in place.
package menu

import (
	"strings"
	"sync"

	"github.com/desertthunder/ytmd/internal/models"
	"github.com/desertthunder/ytmd/internal/shared"
)

// ItemType selects the native widget an item renders as.
type ItemType int

const (
	Normal ItemType = iota
	Checkbox
	Radio
	Separator
)

// Item describes one menu entry. Submenu items carry their own descriptors;
// Action is a zero-argument side-effecting callback bound at build time.
type Item struct {
	ID          string
	Label       string
	Type        ItemType
	Enabled     bool
	Checked     bool
	Accelerator string
	Submenu     []Item
	Action      func()
}

// Item IDs, stable across rebuilds so adapters and tests can address entries.
const (
	IDPlayPause = "playPause"
	IDPrevious  = "previous"
	IDNext      = "next"
	IDLike      = "like"
	IDShuffle   = "shuffle"
	IDRepeat    = "repeat"
	IDRepeatOff = "repeatOff"
	IDRepeatOne = "repeatOne"
	IDRepeatAll = "repeatAll"
)

// Commands receives the player actions menu items dispatch. The quick
// controls plugin implements it on top of the message bus.
type Commands interface {
	PlayPause()
	Previous()
	Next()
	ToggleLike()
	ToggleShuffle()
	// SwitchRepeat presses the host's forward-only repeat toggle n times.
	SwitchRepeat(n int)
}

// Labels holds the strings rendered into menu entries.
type Labels struct {
	Play      string
	Pause     string
	Previous  string
	Next      string
	Like      string
	Unlike    string
	Shuffle   string
	Repeat    string
	RepeatOff string
	RepeatOne string
	RepeatAll string

	ShowWindow string
	Exit       string
}

// DefaultLabels returns the English label set.
func DefaultLabels() Labels {
	return Labels{
		Play:      "Play",
		Pause:     "Pause",
		Previous:  "Previous",
		Next:      "Next",
		Like:      "Like",
		Unlike:    "Unlike",
		Shuffle:   "Shuffle",
		Repeat:    "Repeat",
		RepeatOff: "Off",
		RepeatOne: "One",
		RepeatAll: "All",

		ShowWindow: "Show Window",
		Exit:       "Exit",
	}
}

// localeLabels maps primary language subtags to translated label sets.
var localeLabels = map[string]Labels{
	"es": {
		Play:      "Reproducir",
		Pause:     "Pausa",
		Previous:  "Anterior",
		Next:      "Siguiente",
		Like:      "Me gusta",
		Unlike:    "Quitar me gusta",
		Shuffle:   "Aleatorio",
		Repeat:    "Repetir",
		RepeatOff: "No",
		RepeatOne: "Una",
		RepeatAll: "Todas",

		ShowWindow: "Mostrar ventana",
		Exit:       "Salir",
	},
	"de": {
		Play:      "Wiedergabe",
		Pause:     "Pause",
		Previous:  "Zurück",
		Next:      "Weiter",
		Like:      "Mag ich",
		Unlike:    "Mag ich nicht mehr",
		Shuffle:   "Zufallswiedergabe",
		Repeat:    "Wiederholen",
		RepeatOff: "Aus",
		RepeatOne: "Ein Titel",
		RepeatAll: "Alle",

		ShowWindow: "Fenster anzeigen",
		Exit:       "Beenden",
	},
	"fr": {
		Play:      "Lecture",
		Pause:     "Pause",
		Previous:  "Précédent",
		Next:      "Suivant",
		Like:      "J'aime",
		Unlike:    "Je n'aime plus",
		Shuffle:   "Aléatoire",
		Repeat:    "Répéter",
		RepeatOff: "Désactivé",
		RepeatOne: "Un titre",
		RepeatAll: "Tous",

		ShowWindow: "Afficher la fenêtre",
		Exit:       "Quitter",
	},
}

// LabelsFor returns the label set for a BCP-47 locale, matching on the
// primary subtag and falling back to English.
func LabelsFor(locale string) Labels {
	lang := locale
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		lang = locale[:i]
	}
	if labels, ok := localeLabels[strings.ToLower(lang)]; ok {
		return labels
	}
	return DefaultLabels()
}

// Builder derives descriptor lists from snapshots.
type Builder struct {
	config shared.QuickControlsConfig
	cmds   Commands

	mu     sync.RWMutex
	labels Labels
}

// NewBuilder creates a Builder with the given static configuration.
func NewBuilder(config shared.QuickControlsConfig, cmds Commands, labels Labels) *Builder {
	return &Builder{config: config, cmds: cmds, labels: labels}
}

// SetLabels replaces the label set used by subsequent builds. Safe to call
// while another goroutine builds.
func (b *Builder) SetLabels(labels Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels = labels
}

// Labels returns the label set currently in effect. Adapters read it at
// rebuild time for entries they append beyond the built list.
func (b *Builder) Labels() Labels {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.labels
}

// Build produces the full descriptor list for a snapshot. Output order is
// fixed: playback controls, separator, like, shuffle, repeat, each gated by
// its config flag and never reordered.
func (b *Builder) Build(state models.PlayerState) []Item {
	labels := b.Labels()

	var items []Item

	if b.config.ShowPlaybackControls {
		items = append(items, b.playbackItems(state, labels)...)
	}

	advanced := b.config.ShowLikeButton || b.config.ShowShuffleControl || b.config.ShowRepeatControl
	if advanced {
		items = append(items, Item{Type: Separator})
	}

	if b.config.ShowLikeButton {
		items = append(items, b.likeItem(state, labels))
	}
	if b.config.ShowShuffleControl {
		items = append(items, b.shuffleItem(state, labels))
	}
	if b.config.ShowRepeatControl {
		items = append(items, b.repeatItem(state, labels))
	}

	return items
}

func (b *Builder) playbackItems(state models.PlayerState, labels Labels) []Item {
	playPauseLabel := labels.Play
	if state.IsPlaying {
		playPauseLabel = labels.Pause
	}

	return []Item{
		{
			ID:          IDPlayPause,
			Label:       playPauseLabel,
			Type:        Normal,
			Enabled:     true,
			Accelerator: "Space",
			Action:      b.cmds.PlayPause,
		},
		{
			ID:          IDPrevious,
			Label:       labels.Previous,
			Type:        Normal,
			Enabled:     state.IsPlaying,
			Accelerator: "Ctrl+Left",
			Action:      b.cmds.Previous,
		},
		{
			ID:          IDNext,
			Label:       labels.Next,
			Type:        Normal,
			Enabled:     true,
			Accelerator: "Ctrl+Right",
			Action:      b.cmds.Next,
		},
	}
}

func (b *Builder) likeItem(state models.PlayerState, labels Labels) Item {
	label := labels.Like
	if state.IsLiked {
		label = labels.Unlike
	}

	return Item{
		ID:      IDLike,
		Label:   label,
		Type:    Normal,
		Enabled: state.CanLike && state.HasCurrentSong,
		Action:  b.cmds.ToggleLike,
	}
}

func (b *Builder) shuffleItem(state models.PlayerState, labels Labels) Item {
	return Item{
		ID:      IDShuffle,
		Label:   labels.Shuffle,
		Type:    Checkbox,
		Enabled: state.IsPlaying,
		Checked: state.IsShuffled,
		Action:  b.cmds.ToggleShuffle,
	}
}

// repeatItem renders the tri-state repeat toggle as a submenu of mutually
// exclusive radio entries. Selecting a non-current mode presses the host's
// forward-only toggle the minimal number of times to land on it.
func (b *Builder) repeatItem(state models.PlayerState, labels Labels) Item {
	entry := func(id, label string, target models.RepeatMode) Item {
		return Item{
			ID:      id,
			Label:   label,
			Type:    Radio,
			Enabled: true,
			Checked: state.RepeatMode == target,
			Action: func() {
				if steps := state.RepeatMode.StepsTo(target); steps > 0 {
					b.cmds.SwitchRepeat(steps)
				}
			},
		}
	}

	return Item{
		ID:      IDRepeat,
		Label:   labels.Repeat,
		Type:    Normal,
		Enabled: state.IsPlaying,
		Submenu: []Item{
			entry(IDRepeatOff, labels.RepeatOff, models.RepeatOff),
			entry(IDRepeatOne, labels.RepeatOne, models.RepeatOne),
			entry(IDRepeatAll, labels.RepeatAll, models.RepeatAll),
		},
	}
}
