// Package repositories implements SQLite persistence for lyric sheets.
//
// [LyricsRepository] caches fetched lyrics keyed by video ID so repeated
// plays of a song never hit a provider twice. Timed lines are stored as a
// JSON column; the schema lives in the shared migration scripts.
package repositories
