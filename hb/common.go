package hb

import (
	"context"

	"github.com/glyphlab/hbwasm/abi"
	hberrors "github.com/glyphlab/hbwasm/errors"
)

// Direction is hb_direction_t.
type Direction uint32

const (
	DirectionInvalid Direction = 0
	DirectionLTR     Direction = 4
	DirectionRTL     Direction = 5
	DirectionTTB     Direction = 6
	DirectionBTT     Direction = 7
)

// DirectionFromString parses a direction from its first letter, matching
// hb_direction_from_string.
func DirectionFromString(s string) Direction {
	if s == "" {
		return DirectionInvalid
	}
	switch s[0] {
	case 'l', 'L':
		return DirectionLTR
	case 'r', 'R':
		return DirectionRTL
	case 't', 'T':
		return DirectionTTB
	case 'b', 'B':
		return DirectionBTT
	}
	return DirectionInvalid
}

func (d Direction) IsValid() bool      { return d&^3 == 4 }
func (d Direction) IsHorizontal() bool { return d&^1 == 4 }
func (d Direction) IsVertical() bool   { return d&^1 == 6 }
func (d Direction) IsForward() bool    { return d&^2 == 4 }
func (d Direction) IsBackward() bool   { return d&^2 == 5 }

// Reverse flips the direction along its axis.
func (d Direction) Reverse() Direction {
	return d ^ 1
}

func (d Direction) String() string {
	switch d {
	case DirectionLTR:
		return "ltr"
	case DirectionRTL:
		return "rtl"
	case DirectionTTB:
		return "ttb"
	case DirectionBTT:
		return "btt"
	}
	return "invalid"
}

// Script is hb_script_t, an ISO 15924 tag.
type Script uint32

const (
	ScriptCommon    = Script(0x5a797979) // Zyyy
	ScriptInherited = Script(0x5a696e68) // Zinh
	ScriptUnknown   = Script(0x5a7a7a7a) // Zzzz
	ScriptInvalid   = Script(abi.TagNone)

	ScriptArabic     = Script(0x41726162) // Arab
	ScriptArmenian   = Script(0x41726d6e) // Armn
	ScriptBengali    = Script(0x42656e67) // Beng
	ScriptCyrillic   = Script(0x4379726c) // Cyrl
	ScriptDevanagari = Script(0x44657661) // Deva
	ScriptGeorgian   = Script(0x47656f72) // Geor
	ScriptGreek      = Script(0x4772656b) // Grek
	ScriptGujarati   = Script(0x47756a72) // Gujr
	ScriptGurmukhi   = Script(0x47757275) // Guru
	ScriptHangul     = Script(0x48616e67) // Hang
	ScriptHan        = Script(0x48616e69) // Hani
	ScriptHebrew     = Script(0x48656272) // Hebr
	ScriptHiragana   = Script(0x48697261) // Hira
	ScriptKannada    = Script(0x4b6e6461) // Knda
	ScriptKatakana   = Script(0x4b616e61) // Kana
	ScriptKhmer      = Script(0x4b686d72) // Khmr
	ScriptLao        = Script(0x4c616f6f) // Laoo
	ScriptLatin      = Script(0x4c61746e) // Latn
	ScriptMalayalam  = Script(0x4d6c796d) // Mlym
	ScriptMongolian  = Script(0x4d6f6e67) // Mong
	ScriptMyanmar    = Script(0x4d796d72) // Mymr
	ScriptOriya      = Script(0x4f727961) // Orya
	ScriptSinhala    = Script(0x53696e68) // Sinh
	ScriptSyriac     = Script(0x53797263) // Syrc
	ScriptTamil      = Script(0x54616d6c) // Taml
	ScriptTelugu     = Script(0x54656c75) // Telu
	ScriptThaana     = Script(0x54686161) // Thaa
	ScriptThai       = Script(0x54686169) // Thai
	ScriptTibetan    = Script(0x54696274) // Tibt
)

func (s Script) String() string {
	return abi.Tag(s).String()
}

// ScriptFromString canonicalizes a script string through the guest, matching
// hb_script_from_string's corrections for non-canonical spellings.
func (l *Library) ScriptFromString(ctx context.Context, s string) (Script, error) {
	var out uint64
	err := l.withCString(ctx, s, func(ptr uint32) error {
		var cerr error
		out, cerr = l.call(ctx, "hb_script_from_string", uint64(ptr), i32arg(-1))
		return cerr
	})
	return Script(uint32(out)), err
}

// ScriptHorizontalDirection returns the dominant horizontal direction for a
// script.
func (l *Library) ScriptHorizontalDirection(ctx context.Context, s Script) (Direction, error) {
	v, err := l.call(ctx, "hb_script_get_horizontal_direction", uint64(uint32(s)))
	return Direction(uint32(v)), err
}

// Language is an interned BCP 47 language. Languages are immortal on the
// guest side; the Library keeps one Go value per interned pointer.
type Language struct {
	ptr  uint32
	name string
}

func (lang *Language) String() string {
	if lang == nil {
		return ""
	}
	return lang.name
}

// LanguageFromString interns a BCP 47 language string.
func (l *Library) LanguageFromString(ctx context.Context, s string) (*Language, error) {
	var raw uint64
	err := l.withCString(ctx, s, func(ptr uint32) error {
		var cerr error
		raw, cerr = l.call(ctx, "hb_language_from_string", uint64(ptr), i32arg(-1))
		return cerr
	})
	if err != nil {
		return nil, err
	}
	return l.internLanguage(ctx, uint32(raw))
}

// DefaultLanguage returns the process default language.
func (l *Library) DefaultLanguage(ctx context.Context) (*Language, error) {
	raw, err := l.call(ctx, "hb_language_get_default")
	if err != nil {
		return nil, err
	}
	return l.internLanguage(ctx, uint32(raw))
}

func (l *Library) internLanguage(ctx context.Context, ptr uint32) (*Language, error) {
	if ptr == 0 {
		return nil, hberrors.InvalidHandle(hberrors.PhaseRegistry, "language")
	}

	l.langMu.Lock()
	if lang, ok := l.langByPtr[ptr]; ok {
		l.langMu.Unlock()
		return lang, nil
	}
	l.langMu.Unlock()

	strPtr, err := l.call(ctx, "hb_language_to_string", uint64(ptr))
	if err != nil {
		return nil, err
	}
	name, err := l.readCString(uint32(strPtr))
	if err != nil {
		return nil, err
	}

	l.langMu.Lock()
	defer l.langMu.Unlock()
	if lang, ok := l.langByPtr[ptr]; ok {
		return lang, nil
	}
	lang := &Language{ptr: ptr, name: name}
	l.langByPtr[ptr] = lang
	return lang, nil
}

// SegmentProperties describe the script run a buffer holds.
type SegmentProperties struct {
	Direction Direction
	Script    Script
	Language  *Language
}

func (l *Library) rawSegmentProperties(p SegmentProperties) abi.RawSegmentProperties {
	raw := abi.RawSegmentProperties{
		Direction: uint32(p.Direction),
		Script:    uint32(p.Script),
	}
	if p.Language != nil {
		raw.Language = p.Language.ptr
	}
	return raw
}

func (l *Library) segmentProperties(ctx context.Context, raw abi.RawSegmentProperties) (SegmentProperties, error) {
	props := SegmentProperties{
		Direction: Direction(raw.Direction),
		Script:    Script(raw.Script),
	}
	if raw.Language != 0 {
		lang, err := l.internLanguage(ctx, raw.Language)
		if err != nil {
			return props, err
		}
		props.Language = lang
	}
	return props, nil
}

// SegmentPropertiesEqual compares two property triples through the guest,
// which treats unset fields the way shaping does.
func (l *Library) SegmentPropertiesEqual(ctx context.Context, a, b SegmentProperties) (bool, error) {
	var equal bool
	err := l.withScratch(ctx, 2*abi.SegmentPropertiesSize, func(ptr uint32) error {
		if err := abi.WriteSegmentProperties(l.mem(), ptr, l.rawSegmentProperties(a)); err != nil {
			return err
		}
		if err := abi.WriteSegmentProperties(l.mem(), ptr+abi.SegmentPropertiesSize, l.rawSegmentProperties(b)); err != nil {
			return err
		}
		v, err := l.call(ctx, "hb_segment_properties_equal",
			uint64(ptr), uint64(ptr+abi.SegmentPropertiesSize))
		equal = v != 0
		return err
	})
	return equal, err
}

// SegmentPropertiesHash returns the guest's hash of a property triple,
// suitable for keying shape-plan caches.
func (l *Library) SegmentPropertiesHash(ctx context.Context, p SegmentProperties) (uint32, error) {
	var hash uint32
	err := l.withScratch(ctx, abi.SegmentPropertiesSize, func(ptr uint32) error {
		if err := abi.WriteSegmentProperties(l.mem(), ptr, l.rawSegmentProperties(p)); err != nil {
			return err
		}
		v, err := l.call(ctx, "hb_segment_properties_hash", uint64(ptr))
		hash = uint32(v)
		return err
	})
	return hash, err
}

// OT tag pairs for script and language lookups.

// OTTagsFromScriptAndLanguage converts a script and language to their
// OpenType tags.
func (l *Library) OTTagsFromScriptAndLanguage(ctx context.Context, script Script, lang *Language) (scriptTags, langTags []abi.Tag, err error) {
	// Layout: script count u32, 4 script tags, language count u32, 4 language tags.
	err = l.withScratch(ctx, 40, func(ptr uint32) error {
		mem := l.mem()
		if err := mem.WriteU32(ptr, 4); err != nil {
			return err
		}
		if err := mem.WriteU32(ptr+20, 4); err != nil {
			return err
		}
		var langPtr uint32
		if lang != nil {
			langPtr = lang.ptr
		}
		_, cerr := l.call(ctx, "hb_ot_tags_from_script_and_language",
			uint64(uint32(script)), uint64(langPtr),
			uint64(ptr), uint64(ptr+4),
			uint64(ptr+20), uint64(ptr+24))
		if cerr != nil {
			return cerr
		}

		nScripts, err := mem.ReadU32(ptr)
		if err != nil {
			return err
		}
		nLangs, err := mem.ReadU32(ptr + 20)
		if err != nil {
			return err
		}
		raw, err := abi.ReadU32Array(mem, ptr+4, nScripts)
		if err != nil {
			return err
		}
		for _, t := range raw {
			scriptTags = append(scriptTags, abi.Tag(t))
		}
		raw, err = abi.ReadU32Array(mem, ptr+24, nLangs)
		if err != nil {
			return err
		}
		for _, t := range raw {
			langTags = append(langTags, abi.Tag(t))
		}
		return nil
	})
	return scriptTags, langTags, err
}

// OTTagToScript converts an OpenType script tag back to a Script.
func (l *Library) OTTagToScript(ctx context.Context, tag abi.Tag) (Script, error) {
	v, err := l.call(ctx, "hb_ot_tag_to_script", uint64(uint32(tag)))
	return Script(uint32(v)), err
}

// OTTagFromLanguage converts an interned Language to its OpenType tag.
func (l *Library) OTTagFromLanguage(ctx context.Context, lang *Language) (abi.Tag, error) {
	var ptr uint32
	if lang != nil {
		ptr = lang.ptr
	}
	v, err := l.call(ctx, "hb_ot_tag_from_language", uint64(ptr))
	return abi.Tag(uint32(v)), err
}

// OTTagToLanguage converts an OpenType language tag to an interned Language.
func (l *Library) OTTagToLanguage(ctx context.Context, tag abi.Tag) (*Language, error) {
	raw, err := l.call(ctx, "hb_ot_tag_to_language", uint64(uint32(tag)))
	if err != nil {
		return nil, err
	}
	return l.internLanguage(ctx, uint32(raw))
}
