// package models defines the data model shared by the ytmd companion's
// plugins: player state snapshots, the repeat mode enum, song metadata
// payloads, and fetched lyrics.
package models
