package fsmanager

import "fmt"

// NotEnoughFreeSpaceError reports that a path fell below its required free
// space and cleanup could not free enough to satisfy it.
type NotEnoughFreeSpaceError struct {
	Path      string
	Available int64
	Required  int64
}

func (e *NotEnoughFreeSpaceError) Error() string {
	return fmt.Sprintf("not enough free space at %s: available %s, required %s",
		e.Path, FormatBytes(e.Available), FormatBytes(e.Required))
}
