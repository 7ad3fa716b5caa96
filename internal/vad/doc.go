// Package vad provides energy-based voice activity classification.
// Each clip is split into fixed-size frames whose dBFS level is compared with
// a speech threshold derived from the clip's own lower-percentile energy.
package vad
