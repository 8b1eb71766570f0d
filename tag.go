// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/drs

package drs

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TypeTag is the 4-byte resource type identifier as stored on disk.
//
// Tags are compared byte-for-byte in stored order. On-disk order is the
// reverse of the human-readable spelling: a table shown as "bina" stores
// the bytes "anib". Use ParseTypeTag to convert a readable spelling into
// a stored tag, and Display or String to go the other way.
type TypeTag [4]byte

// ParseTypeTag converts a human-readable tag spelling into its stored
// form: the string is right-padded with spaces to 4 bytes and reversed.
// Spellings longer than 4 bytes or empty are rejected.
func ParseTypeTag(s string) (TypeTag, error) {
	if s == "" {
		return TypeTag{}, fmt.Errorf("%w: empty tag", ErrInvalidTypeTag)
	}

	if len(s) > 4 {
		return TypeTag{}, fmt.Errorf("%w: %q is longer than 4 bytes", ErrInvalidTypeTag, s)
	}

	var tag TypeTag
	for i := range tag {
		tag[i] = ' '
	}

	for i := 0; i < len(s); i++ {
		tag[len(tag)-1-i] = s[i]
	}

	return tag, nil
}

// Display returns tag bytes in reversed, human-readable order.
func (t TypeTag) Display() [4]byte {
	var out [4]byte
	for i := range t {
		out[len(t)-1-i] = t[i]
	}

	return out
}

// String renders the display form of the tag. Printable ASCII bytes are
// kept as-is, anything else is escaped as \xNN.
func (t TypeTag) String() string {
	disp := t.Display()

	var b strings.Builder
	for _, c := range disp {
		if c >= 0x20 && c <= 0x7e {
			b.WriteByte(c)
			continue
		}

		fmt.Fprintf(&b, `\x%02x`, c)
	}

	return b.String()
}

// DirName returns a filesystem-safe lowercase directory name for the tag,
// used as extraction subdirectory and resource file extension. Space and
// NUL padding is trimmed from the display form and remaining bytes are
// lowercased with non-alphanumerics mapped to underscore. Tags with no
// usable bytes fall back to "tag_" plus hex of the stored bytes.
func (t TypeTag) DirName() string {
	disp := t.Display()
	trimmed := strings.TrimFunc(string(disp[:]), func(r rune) bool {
		return r == ' ' || r == 0
	})

	var b strings.Builder
	usable := false

	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-':
			b.WriteByte(c)
			usable = usable || c != '_'
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c - 'A' + 'a')
			usable = true
		default:
			b.WriteByte('_')
		}
	}

	if !usable {
		return "tag_" + hex.EncodeToString(t[:])
	}

	return b.String()
}
