// Package ui implements the lyrics overlay terminal interface using bubbletea's Elm architecture.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// It renders the current song's lyric sheet in a scrollable viewport; when the
// sheet is synced, the active line tracks the playback position reported over
// the song feed, and the viewport follows it until the user scrolls away.
//
// Keyboard navigation uses vim-style bindings (j/k, f to resume following, q to quit)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
