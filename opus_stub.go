//go:build !(darwin || linux)

package webcodecs

// IsOpusAvailable reports whether libopus could be loaded. Dynamic
// loading is only supported on darwin and linux.
func IsOpusAvailable() bool { return false }

// OpusVersion returns the libopus version string, or "" when the library
// is unavailable.
func OpusVersion() string { return "" }
