// Package quality measures how well a clip represents a speaker's voice and
// reduces the measurements to one comparable score.
package quality
