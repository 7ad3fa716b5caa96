// Package reference selects one reference clip per speaker from a diarized
// recording.
//
// Segments are grouped by speaker and sliced from the source audio into
// candidates. Each candidate is measured and scored by package quality, and
// a Selector applies the selection policy: the best clip within the
// configured bounds, otherwise the best longer clip truncated to the maximum,
// otherwise a composition of short clips in score order. The Extractor runs
// this for every speaker in parallel and hands the results to a Writer,
// which stores WAV files and a JSON metadata document.
package reference
