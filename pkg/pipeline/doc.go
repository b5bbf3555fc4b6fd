// Package pipeline orchestrates the profile processing run.
//
// Profiles are processed sequentially in input order. Within a profile the
// requested content types run in a fixed priority order (post, reel, story,
// IGTV) and share one cumulative video cap. Each fetch is wrapped in the
// retry controller, so transient failures back off and terminal failures
// surface immediately.
//
// Failure scoping follows the error classification: a profile-level failure
// such as a missing or private profile aborts the remaining content types of
// that profile, while any other terminal failure ends only the failing
// content type. Both produce a failure record in the dataset, and the run
// always continues with the next profile.
//
// Items that pass the content filter become dataset records. Depending on
// the storage method the record carries the direct video URL, a storage key
// for the downloaded binary, or both. Binary downloads go through a small
// worker pool; a failed download downgrades the record's download status
// instead of failing the run.
package pipeline
