package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/glyphlab/hbwasm/abi"
	"github.com/glyphlab/hbwasm/hb"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	glyphStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	clusterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type glyphRow struct {
	name     string
	cluster  uint32
	xAdvance abi.Position
	yAdvance abi.Position
	xOffset  abi.Position
	yOffset  abi.Position
}

type interactiveModel struct {
	err      error
	load     loadFn
	lib      *hb.Library
	font     *hb.Font
	fontFile string
	version  string
	rows     []glyphRow
	serial   string
	textIn   textinput.Model
	featIn   textinput.Model
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateInput modelState = iota
	stateShowResult
)

type loadFn func() (*hb.Library, *hb.Font, string, error)

func newInteractiveModel(fontFile string, load loadFn) *interactiveModel {
	textIn := textinput.New()
	textIn.Placeholder = "text to shape"
	textIn.Prompt = "text: "
	textIn.Width = 40
	textIn.Focus()

	featIn := textinput.New()
	featIn.Placeholder = "kern,-liga"
	featIn.Prompt = "features: "
	featIn.Width = 40

	return &interactiveModel{
		load:     load,
		fontFile: fontFile,
		textIn:   textIn,
		featIn:   featIn,
		state:    stateInput,
	}
}

type loadedMsg struct {
	err     error
	lib     *hb.Library
	font    *hb.Font
	version string
}

type shapedMsg struct {
	err    error
	rows   []glyphRow
	serial string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadLibrary
}

func (m *interactiveModel) loadLibrary() tea.Msg {
	lib, font, version, err := m.load()
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{lib: lib, font: font, version: version}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.lib != nil {
				m.lib.Close(context.Background())
			}
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateInput:
				return m, m.shape
			case stateShowResult:
				m.state = stateInput
				m.rows = nil
				m.serial = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInput {
				if m.focusIdx == 0 {
					m.textIn.Blur()
					m.featIn.Focus()
					m.focusIdx = 1
				} else {
					m.featIn.Blur()
					m.textIn.Focus()
					m.focusIdx = 0
				}
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateInput
				m.rows = nil
				m.serial = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.lib = msg.lib
		m.font = msg.font
		m.version = msg.version

	case shapedMsg:
		m.rows = msg.rows
		m.serial = msg.serial
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInput {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.textIn, cmd = m.textIn.Update(msg)
		cmds = append(cmds, cmd)
		m.featIn, cmd = m.featIn.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) shape() tea.Msg {
	ctx := context.Background()

	if m.lib == nil {
		return shapedMsg{err: fmt.Errorf("library not loaded")}
	}

	buf, err := m.lib.NewBuffer(ctx)
	if err != nil {
		return shapedMsg{err: err}
	}
	if err := buf.AddString(ctx, m.textIn.Value()); err != nil {
		return shapedMsg{err: err}
	}
	if err := buf.GuessSegmentProperties(ctx); err != nil {
		return shapedMsg{err: err}
	}

	features, err := parseFeatures(ctx, m.lib, m.featIn.Value())
	if err != nil {
		return shapedMsg{err: err}
	}

	if err := m.lib.Shape(ctx, m.font, buf, features); err != nil {
		return shapedMsg{err: err}
	}

	infos, err := buf.GlyphInfos(ctx)
	if err != nil {
		return shapedMsg{err: err}
	}
	positions, err := buf.GlyphPositions(ctx)
	if err != nil {
		return shapedMsg{err: err}
	}

	rows := make([]glyphRow, 0, len(infos))
	for i, info := range infos {
		name, err := m.font.GlyphToString(ctx, hb.Glyph(info.Codepoint))
		if err != nil || name == "" {
			name = fmt.Sprintf("gid%d", info.Codepoint)
		}
		row := glyphRow{name: name, cluster: info.Cluster}
		if i < len(positions) {
			row.xAdvance = positions[i].XAdvance
			row.yAdvance = positions[i].YAdvance
			row.xOffset = positions[i].XOffset
			row.yOffset = positions[i].YOffset
		}
		rows = append(rows, row)
	}

	serial, err := buf.SerializeGlyphs(ctx, m.font, hb.SerializeFormatText, hb.SerializeFlagDefault)
	if err != nil {
		return shapedMsg{err: err}
	}

	return shapedMsg{rows: rows, serial: serial}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	if m.lib == nil {
		return "Loading HarfBuzz module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("hbshape"))
	b.WriteString(" ")
	b.WriteString(m.fontFile)
	b.WriteString("  HarfBuzz ")
	b.WriteString(m.version)
	b.WriteString("\n\n")

	switch m.state {
	case stateInput:
		b.WriteString(m.textIn.View())
		b.WriteString("\n")
		b.WriteString(m.featIn.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("tab next field • enter shape • ctrl+c quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.serial))
			b.WriteString("\n\n")
			b.WriteString(fmt.Sprintf("%-16s %-8s %-10s %-10s %-8s %-8s\n",
				"glyph", "cluster", "x-advance", "y-advance", "x-off", "y-off"))
			for _, row := range m.rows {
				b.WriteString(fmt.Sprintf("%s %s %-10d %-10d %-8d %-8d\n",
					glyphStyle.Render(fmt.Sprintf("%-16s", row.name)),
					clusterStyle.Render(fmt.Sprintf("%-8d", row.cluster)),
					row.xAdvance, row.yAdvance, row.xOffset, row.yOffset))
			}
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter shape again • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(wasmFile, fontFile, cacheDir string, faceIndex uint32) error {
	load := func() (*hb.Library, *hb.Font, string, error) {
		ctx := context.Background()

		wasmBytes, err := os.ReadFile(wasmFile)
		if err != nil {
			return nil, nil, "", fmt.Errorf("read module: %w", err)
		}
		lib, err := hb.Open(ctx, wasmBytes, hb.Config{CacheDir: cacheDir})
		if err != nil {
			return nil, nil, "", fmt.Errorf("open library: %w", err)
		}

		blob, err := lib.NewBlobFromFile(ctx, fontFile)
		if err != nil {
			lib.Close(ctx)
			return nil, nil, "", fmt.Errorf("load font: %w", err)
		}
		face, err := lib.NewFace(ctx, blob, faceIndex)
		if err != nil {
			lib.Close(ctx)
			return nil, nil, "", err
		}
		font, err := lib.NewFont(ctx, face)
		if err != nil {
			lib.Close(ctx)
			return nil, nil, "", err
		}
		version, err := lib.VersionString(ctx)
		if err != nil {
			lib.Close(ctx)
			return nil, nil, "", err
		}
		return lib, font, version, nil
	}

	p := tea.NewProgram(newInteractiveModel(fontFile, load), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
