// Command refaudio selects one reference clip per speaker from a diarized
// recording.
//
// Usage:
//
//	refaudio extract --audio call.wav --segments segments.json --out refs/
//	refaudio analyze --audio call.wav --segments segments.json
//	refaudio version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
