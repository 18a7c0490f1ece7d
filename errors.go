package main

import "fmt"

// errMissingInput wraps a failure to read the source file, the one
// startup condition that is reported loudly rather than silently
// absorbed (see §7).
func errMissingInput(path string, cause error) error {
	return fmt.Errorf("wavec: cannot read %s: %w", path, cause)
}
