package hb

import (
	"context"

	hbwasm "github.com/glyphlab/hbwasm"
	"github.com/glyphlab/hbwasm/handle"
)

// GeneralCategory is hb_unicode_general_category_t.
type GeneralCategory uint32

const (
	CategoryControl GeneralCategory = iota
	CategoryFormat
	CategoryUnassigned
	CategoryPrivateUse
	CategorySurrogate
	CategoryLowercaseLetter
	CategoryModifierLetter
	CategoryOtherLetter
	CategoryTitlecaseLetter
	CategoryUppercaseLetter
	CategorySpacingMark
	CategoryEnclosingMark
	CategoryNonSpacingMark
	CategoryDecimalNumber
	CategoryLetterNumber
	CategoryOtherNumber
	CategoryConnectPunctuation
	CategoryDashPunctuation
	CategoryClosePunctuation
	CategoryFinalPunctuation
	CategoryInitialPunctuation
	CategoryOtherPunctuation
	CategoryOpenPunctuation
	CategoryCurrencySymbol
	CategoryModifierSymbol
	CategoryMathSymbol
	CategoryOtherSymbol
	CategoryLineSeparator
	CategoryParagraphSeparator
	CategorySpaceSeparator
)

// CombiningClass is hb_unicode_combining_class_t. Only the named stable
// values appear here; the full numeric space is valid.
type CombiningClass uint32

const (
	CombiningClassNotReordered  CombiningClass = 0
	CombiningClassOverlay       CombiningClass = 1
	CombiningClassNukta         CombiningClass = 7
	CombiningClassKanaVoicing   CombiningClass = 8
	CombiningClassVirama        CombiningClass = 9
	CombiningClassAttachedBelow CombiningClass = 202
	CombiningClassAttachedAbove CombiningClass = 214
	CombiningClassBelowLeft     CombiningClass = 218
	CombiningClassBelow         CombiningClass = 220
	CombiningClassBelowRight    CombiningClass = 222
	CombiningClassLeft          CombiningClass = 224
	CombiningClassRight         CombiningClass = 226
	CombiningClassAboveLeft     CombiningClass = 228
	CombiningClassAbove         CombiningClass = 230
	CombiningClassAboveRight    CombiningClass = 232
	CombiningClassDoubleBelow   CombiningClass = 233
	CombiningClassDoubleAbove   CombiningClass = 234
	CombiningClassIotaSubscript CombiningClass = 240
	CombiningClassInvalid       CombiningClass = 255
)

// UnicodeFuncs wraps hb_unicode_funcs_t, the Unicode property provider used
// during segmentation and normalization.
type UnicodeFuncs struct {
	lib *Library
	ptr handle.Ptr
}

// Unicode callback signatures. They must not call back into the Library.
type (
	CombiningClassFunc  func(r rune) CombiningClass
	GeneralCategoryFunc func(r rune) GeneralCategory
	MirroringFunc       func(r rune) rune
	ScriptFunc          func(r rune) Script
	ComposeFunc         func(a, b rune) (rune, bool)
	DecomposeFunc       func(ab rune) (a, b rune, ok bool)
)

// DefaultUnicodeFuncs returns the built-in Unicode property implementation.
func (l *Library) DefaultUnicodeFuncs(ctx context.Context) (*UnicodeFuncs, error) {
	raw, err := l.call(ctx, "hb_unicode_funcs_get_default")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_unicode_funcs_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapUnicodeFuncs(raw)
}

// NewUnicodeFuncs creates a unicode funcs table inheriting from parent.
// A nil parent inherits from the default implementation.
func (l *Library) NewUnicodeFuncs(ctx context.Context, parent *UnicodeFuncs) (*UnicodeFuncs, error) {
	var parentPtr handle.Ptr
	if parent != nil {
		parentPtr = parent.ptr
	} else {
		raw, err := l.call(ctx, "hb_unicode_funcs_get_default")
		if err != nil {
			return nil, err
		}
		parentPtr = handle.Ptr(uint32(raw))
	}
	raw, err := l.call(ctx, "hb_unicode_funcs_create", uint64(parentPtr))
	if err != nil {
		return nil, err
	}
	return l.wrapUnicodeFuncs(raw)
}

// EmptyUnicodeFuncs returns the canonical empty table, which reports every
// property as unknown.
func (l *Library) EmptyUnicodeFuncs(ctx context.Context) (*UnicodeFuncs, error) {
	raw, err := l.call(ctx, "hb_unicode_funcs_get_empty")
	if err != nil {
		return nil, err
	}
	if _, err := l.call(ctx, "hb_unicode_funcs_reference", raw); err != nil {
		return nil, err
	}
	return l.wrapUnicodeFuncs(raw)
}

// Parent returns the table this one inherits from.
func (u *UnicodeFuncs) Parent(ctx context.Context) (*UnicodeFuncs, error) {
	raw, err := u.lib.call(ctx, "hb_unicode_funcs_get_parent", uint64(u.ptr))
	if err != nil {
		return nil, err
	}
	if raw == 0 {
		return nil, nil
	}
	if _, err := u.lib.call(ctx, "hb_unicode_funcs_reference", raw); err != nil {
		return nil, err
	}
	return u.lib.wrapUnicodeFuncs(raw)
}

func (u *UnicodeFuncs) IsImmutable(ctx context.Context) (bool, error) {
	v, err := u.lib.call(ctx, "hb_unicode_funcs_is_immutable", uint64(u.ptr))
	return v != 0, err
}

func (u *UnicodeFuncs) MakeImmutable(ctx context.Context) error {
	_, err := u.lib.call(ctx, "hb_unicode_funcs_make_immutable", uint64(u.ptr))
	return err
}

// CombiningClass returns the canonical combining class of a codepoint.
func (u *UnicodeFuncs) CombiningClass(ctx context.Context, r rune) (CombiningClass, error) {
	v, err := u.lib.call(ctx, "hb_unicode_combining_class",
		uint64(u.ptr), uint64(uint32(r)))
	return CombiningClass(uint32(v)), err
}

// GeneralCategory returns the general category of a codepoint.
func (u *UnicodeFuncs) GeneralCategory(ctx context.Context, r rune) (GeneralCategory, error) {
	v, err := u.lib.call(ctx, "hb_unicode_general_category",
		uint64(u.ptr), uint64(uint32(r)))
	return GeneralCategory(uint32(v)), err
}

// Mirroring returns the mirrored codepoint, or r itself if none.
func (u *UnicodeFuncs) Mirroring(ctx context.Context, r rune) (rune, error) {
	v, err := u.lib.call(ctx, "hb_unicode_mirroring",
		uint64(u.ptr), uint64(uint32(r)))
	return rune(uint32(v)), err
}

// Script returns the script of a codepoint.
func (u *UnicodeFuncs) Script(ctx context.Context, r rune) (Script, error) {
	v, err := u.lib.call(ctx, "hb_unicode_script",
		uint64(u.ptr), uint64(uint32(r)))
	return Script(uint32(v)), err
}

// Compose canonically composes two codepoints.
func (u *UnicodeFuncs) Compose(ctx context.Context, a, b rune) (rune, bool, error) {
	var ab rune
	var ok bool
	err := u.lib.withScratch(ctx, 4, func(out uint32) error {
		v, err := u.lib.call(ctx, "hb_unicode_compose",
			uint64(u.ptr), uint64(uint32(a)), uint64(uint32(b)), uint64(out))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		raw, err := u.lib.mem().ReadU32(out)
		ab = rune(raw)
		return err
	})
	return ab, ok, err
}

// Decompose canonically decomposes a codepoint.
func (u *UnicodeFuncs) Decompose(ctx context.Context, ab rune) (a, b rune, ok bool, err error) {
	err = u.lib.withScratch(ctx, 8, func(out uint32) error {
		v, err := u.lib.call(ctx, "hb_unicode_decompose",
			uint64(u.ptr), uint64(uint32(ab)), uint64(out), uint64(out+4))
		if err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
		ok = true
		mem := u.lib.mem()
		av, err := mem.ReadU32(out)
		if err != nil {
			return err
		}
		bv, err := mem.ReadU32(out + 4)
		if err != nil {
			return err
		}
		a, b = rune(av), rune(bv)
		return nil
	})
	return a, b, ok, err
}

// install mirrors FontFuncs.install for unicode slots.
func (u *UnicodeFuncs) install(ctx context.Context, sym string, fn func(args []uint64, mem hbwasm.Memory) uint64) error {
	table := u.lib.f.Callbacks()
	token := table.Register(func(_ context.Context, mem hbwasm.Memory, args []uint64) uint64 {
		return fn(args, mem)
	})
	if _, err := u.lib.call(ctx, sym, uint64(u.ptr), uint64(uint32(token))); err != nil {
		table.Drop(token)
		return err
	}
	return nil
}

// SetCombiningClassFunc overrides combining class lookups.
func (u *UnicodeFuncs) SetCombiningClassFunc(ctx context.Context, fn CombiningClassFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_combining_class_func",
		func(args []uint64, _ hbwasm.Memory) uint64 {
			return uint64(fn(rune(uint32(args[1]))))
		})
}

// SetGeneralCategoryFunc overrides general category lookups.
func (u *UnicodeFuncs) SetGeneralCategoryFunc(ctx context.Context, fn GeneralCategoryFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_general_category_func",
		func(args []uint64, _ hbwasm.Memory) uint64 {
			return uint64(fn(rune(uint32(args[1]))))
		})
}

// SetMirroringFunc overrides mirroring lookups.
func (u *UnicodeFuncs) SetMirroringFunc(ctx context.Context, fn MirroringFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_mirroring_func",
		func(args []uint64, _ hbwasm.Memory) uint64 {
			return uint64(uint32(fn(rune(uint32(args[1])))))
		})
}

// SetScriptFunc overrides script lookups.
func (u *UnicodeFuncs) SetScriptFunc(ctx context.Context, fn ScriptFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_script_func",
		func(args []uint64, _ hbwasm.Memory) uint64 {
			return uint64(uint32(fn(rune(uint32(args[1])))))
		})
}

// SetComposeFunc overrides canonical composition.
func (u *UnicodeFuncs) SetComposeFunc(ctx context.Context, fn ComposeFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_compose_func",
		func(args []uint64, mem hbwasm.Memory) uint64 {
			ab, ok := fn(rune(uint32(args[1])), rune(uint32(args[2])))
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[3]), uint32(ab)); err != nil {
				return writeCallbackErr("compose", err)
			}
			return 1
		})
}

// SetDecomposeFunc overrides canonical decomposition.
func (u *UnicodeFuncs) SetDecomposeFunc(ctx context.Context, fn DecomposeFunc) error {
	return u.install(ctx, "hbw_unicode_funcs_set_decompose_func",
		func(args []uint64, mem hbwasm.Memory) uint64 {
			a, b, ok := fn(rune(uint32(args[1])))
			if !ok {
				return 0
			}
			if err := mem.WriteU32(uint32(args[2]), uint32(a)); err != nil {
				return writeCallbackErr("decompose", err)
			}
			if err := mem.WriteU32(uint32(args[3]), uint32(b)); err != nil {
				return writeCallbackErr("decompose", err)
			}
			return 1
		})
}
