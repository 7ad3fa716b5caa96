// Package audio holds the decoded PCM buffer shared by every extraction stage.
// It provides read-only slicing, prefix truncation and concatenation of mono
// 16-bit samples, and WAV decoding/encoding for the source and reference files.
package audio
