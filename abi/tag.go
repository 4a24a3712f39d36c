package abi

// Tag is hb_tag_t: four bytes packed big-endian into a uint32, used for
// scripts, OpenType tables, features and variation axes.
type Tag uint32

const (
	TagNone      Tag = 0
	TagMax       Tag = 0xffffffff
	TagMaxSigned Tag = 0x7fffffff
)

// NewTag packs four byte values into a tag.
func NewTag(c1, c2, c3, c4 byte) Tag {
	return Tag(c1)<<24 | Tag(c2)<<16 | Tag(c3)<<8 | Tag(c4)
}

// TagFromString packs up to the first four bytes of s, padding with spaces
// the way hb_tag_from_string does. An empty string yields TagNone.
func TagFromString(s string) Tag {
	if s == "" {
		return TagNone
	}
	var b [4]byte
	for i := range b {
		if i < len(s) {
			b[i] = s[i]
		} else {
			b[i] = ' '
		}
	}
	return NewTag(b[0], b[1], b[2], b[3])
}

// String unpacks the tag into its four-character form.
func (t Tag) String() string {
	return string([]byte{
		byte(t >> 24),
		byte(t >> 16),
		byte(t >> 8),
		byte(t),
	})
}
