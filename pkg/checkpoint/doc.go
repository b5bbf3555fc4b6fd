// Package checkpoint persists run progress so interrupted runs can resume.
//
// A checkpoint tracks which profiles finished and which post shortcodes were
// already processed. Post-level progress is flushed every few records to keep
// disk writes bounded; profile completion is flushed immediately. All writes
// go through a temp file and rename, so a crash never leaves a corrupt
// checkpoint behind.
package checkpoint
