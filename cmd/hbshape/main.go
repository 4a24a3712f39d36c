package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/hb"
)

func main() {
	var (
		wasmFile     = flag.String("wasm", "", "Path to HarfBuzz wasm module")
		fontFile     = flag.String("font", "", "Path to font file")
		faceIndex    = flag.Uint("face-index", 0, "Face index within the font file")
		text         = flag.String("text", "", "Text to shape")
		featuresStr  = flag.String("features", "", "Font features (kern,-liga,aalt=2)")
		directionStr = flag.String("direction", "", "Text direction (ltr, rtl, ttb, btt)")
		scriptStr    = flag.String("script", "", "Script, ISO 15924 tag (Latn, Arab, ...)")
		languageStr  = flag.String("language", "", "Language, BCP 47 tag (en-us, ...)")
		formatStr    = flag.String("format", "text", "Output format (text, json)")
		noNames      = flag.Bool("no-glyph-names", false, "Serialize glyph ids instead of names")
		cacheDir     = flag.String("cache", "", "Compilation cache directory")
		info         = flag.Bool("info", false, "Print font and module info and exit")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" || *fontFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: hbshape -wasm <harfbuzz.wasm> -font <font.ttf> -text <text> [options]")
		fmt.Fprintln(os.Stderr, "       hbshape -wasm <harfbuzz.wasm> -font <font.ttf> -info")
		fmt.Fprintln(os.Stderr, "       hbshape -wasm <harfbuzz.wasm> -font <font.ttf> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, *fontFile, *cacheDir, uint32(*faceIndex)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *fontFile, *text, *featuresStr, *directionStr, *scriptStr,
		*languageStr, *formatStr, *cacheDir, uint32(*faceIndex), *noNames, *info); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, fontFile, text, featuresStr, directionStr, scriptStr, languageStr,
	formatStr, cacheDir string, faceIndex uint32, noNames, infoOnly bool) error {
	ctx := context.Background()

	wasmBytes, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	lib, err := hb.Open(ctx, wasmBytes, hb.Config{CacheDir: cacheDir})
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer lib.Close(ctx)

	blob, err := lib.NewBlobFromFile(ctx, fontFile)
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	face, err := lib.NewFace(ctx, blob, faceIndex)
	if err != nil {
		return fmt.Errorf("create face: %w", err)
	}
	font, err := lib.NewFont(ctx, face)
	if err != nil {
		return fmt.Errorf("create font: %w", err)
	}

	if infoOnly {
		return printInfo(ctx, lib, face, fontFile)
	}

	if text == "" {
		return fmt.Errorf("no text to shape, use -text")
	}

	buf, err := lib.NewBuffer(ctx)
	if err != nil {
		return err
	}
	if err := buf.AddString(ctx, text); err != nil {
		return err
	}

	if directionStr != "" {
		if err := buf.SetDirection(ctx, hb.DirectionFromString(directionStr)); err != nil {
			return err
		}
	}
	if scriptStr != "" {
		script, err := lib.ScriptFromString(ctx, scriptStr)
		if err != nil {
			return err
		}
		if err := buf.SetScript(ctx, script); err != nil {
			return err
		}
	}
	if languageStr != "" {
		lang, err := lib.LanguageFromString(ctx, languageStr)
		if err != nil {
			return err
		}
		if err := buf.SetLanguage(ctx, lang); err != nil {
			return err
		}
	}
	if err := buf.GuessSegmentProperties(ctx); err != nil {
		return err
	}

	features, err := parseFeatures(ctx, lib, featuresStr)
	if err != nil {
		return err
	}

	if err := lib.Shape(ctx, font, buf, features); err != nil {
		return fmt.Errorf("shape: %w", err)
	}

	format := hb.SerializeFormatText
	if strings.EqualFold(formatStr, "json") {
		format = hb.SerializeFormatJSON
	}
	flags := hb.SerializeFlagDefault
	if noNames {
		flags |= hb.SerializeFlagNoGlyphNames
	}

	out, err := buf.SerializeGlyphs(ctx, font, format, flags)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	fmt.Println(out)
	return nil
}

func printInfo(ctx context.Context, lib *hb.Library, face *hb.Face, fontFile string) error {
	version, err := lib.VersionString(ctx)
	if err != nil {
		return err
	}
	upem, err := face.UPEM(ctx)
	if err != nil {
		return err
	}
	glyphs, err := face.GlyphCount(ctx)
	if err != nil {
		return err
	}
	tags, err := face.TableTags(ctx)
	if err != nil {
		return err
	}
	shapers, err := lib.ListShapers(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Font: %s\n", fontFile)
	fmt.Printf("HarfBuzz: %s\n", version)
	fmt.Printf("Units per em: %d\n", upem)
	fmt.Printf("Glyphs: %d\n", glyphs)
	fmt.Printf("Shapers: %s\n", strings.Join(shapers, ", "))

	fmt.Printf("\nTables (%d):\n", len(tags))
	for _, tag := range tags {
		fmt.Printf("  %s\n", tag)
	}
	return nil
}

func parseFeatures(ctx context.Context, lib *hb.Library, s string) ([]abi.Feature, error) {
	if s == "" {
		return nil, nil
	}
	var features []abi.Feature
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		f, err := lib.FeatureFromString(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", item, err)
		}
		features = append(features, f)
	}
	return features, nil
}
