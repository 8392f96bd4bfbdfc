// Package validation checks collection names and document ids before they
// reach the filesystem-backed storage layer. Both become path components, so
// the rules reject anything that is not filesystem-safe on every platform.
package validation

import (
	"strings"

	"github.com/cyberpath-HQ/sentinel/sentinel/types"
)

// windowsReservedNames cannot be used as file or directory names on Windows.
var windowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

const maxNameLength = 255

// validNameChar allows alphanumerics, underscore, hyphen and optionally dot.
func validNameChar(ch rune, allowDot bool) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '_' || ch == '-':
		return true
	case ch == '.':
		return allowDot
	}
	return false
}

// CollectionName validates a collection name. Names become directory names:
// no path separators, control characters or Windows-reserved characters, no
// leading dot (hidden directories) and no trailing dot or space.
func CollectionName(name string) error {
	if name == "" {
		return types.Errorf(types.CodeInvalidArgument, "collection name cannot be empty")
	}
	if len(name) > maxNameLength {
		return types.Errorf(types.CodeInvalidArgument, "collection name too long (%d chars, max %d)", len(name), maxNameLength)
	}
	if strings.HasPrefix(name, ".") {
		return types.Errorf(types.CodeInvalidArgument, "collection name %q cannot start with a dot", name)
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return types.Errorf(types.CodeInvalidArgument, "collection name %q cannot end with a dot or space", name)
	}
	if windowsReservedNames[strings.ToUpper(name)] {
		return types.Errorf(types.CodeInvalidArgument, "collection name %q is reserved", name)
	}
	for _, ch := range name {
		if !validNameChar(ch, true) {
			return types.Errorf(types.CodeInvalidArgument, "collection name %q contains invalid character %q", name, ch)
		}
	}
	return nil
}

// DocumentID validates a document id. Ids become file names; dots are
// disallowed to keep them distinct from file extensions.
func DocumentID(id string) error {
	if id == "" {
		return types.Errorf(types.CodeInvalidArgument, "document id cannot be empty")
	}
	if len(id) > maxNameLength {
		return types.Errorf(types.CodeInvalidArgument, "document id too long (%d chars, max %d)", len(id), maxNameLength)
	}
	if windowsReservedNames[strings.ToUpper(id)] {
		return types.Errorf(types.CodeInvalidArgument, "document id %q is reserved", id)
	}
	for _, ch := range id {
		if !validNameChar(ch, false) {
			return types.Errorf(types.CodeInvalidArgument, "document id %q contains invalid character %q", id, ch)
		}
	}
	return nil
}
