package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/tui/styles"
)

// Layout constants for inspector
const (
	InspectorBorderHeight     = 2
	InspectorScrollIndicators = 2
)

// inspectorContent holds the three-zone layout content
type inspectorContent struct {
	header string // fixed top
	body   string // scrollable middle
	footer string // fixed bottom
}

// Inspector displays details and live install status for the selected entry
type Inspector struct {
	item       *domain.Software
	status     domain.InstallStatus
	hasStatus  bool
	statusErr  error
	size       int64
	hasSize    bool
	width      int
	height     int
	offset     int // scroll offset
	maxVisible int
}

// NewInspector creates a new inspector component
func NewInspector() Inspector {
	return Inspector{}
}

// SetItem sets the entry to display and forgets per-entry state
func (i *Inspector) SetItem(sw *domain.Software) {
	if i.item != nil && sw != nil && i.item.Name == sw.Name {
		i.item = sw
		return
	}
	i.item = sw
	i.offset = 0
	i.hasStatus = false
	i.statusErr = nil
	i.hasSize = false
}

// Item returns the displayed entry, nil when none
func (i Inspector) Item() *domain.Software { return i.item }

// SetStatus records the latest status evaluation for the displayed entry
func (i *Inspector) SetStatus(status domain.InstallStatus, err error) {
	i.statusErr = err
	if err == nil {
		i.status = status
		i.hasStatus = true
	}
}

// Status returns the last successful status and whether one is known
func (i Inspector) Status() (domain.InstallStatus, bool) {
	return i.status, i.hasStatus
}

// SetDownloadSize records the download size of the displayed entry
func (i *Inspector) SetDownloadSize(size int64) {
	i.size = size
	i.hasSize = true
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
	i.maxVisible = max(height-InspectorBorderHeight-InspectorScrollIndicators-2, 1)
}

// ScrollDown moves the body one line down
func (i *Inspector) ScrollDown() { i.offset++ }

// ScrollUp moves the body one line up
func (i *Inspector) ScrollUp() { i.offset = max(i.offset-1, 0) }

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder
	contentWidth := max(i.width-3, 10)
	content := i.render(contentWidth)

	titleLine := styles.AccentStyle.Render(styles.Truncate("Details", contentWidth))

	headerLines := splitLines(content.header)
	footerLines := splitLines(content.footer)
	bodyLines := splitLines(content.body)

	availableForBody := max(i.maxVisible-len(headerLines)-len(footerLines), 1)
	offset := min(i.offset, max(len(bodyLines)-availableForBody, 0))
	end := min(offset+availableForBody, len(bodyLines))
	visibleBody := bodyLines[offset:end]

	up := " "
	if offset > 0 {
		up = styles.DimStyle.Render("↑ more")
	}
	down := " "
	if end < len(bodyLines) {
		down = styles.DimStyle.Render("↓ more")
	}

	parts := []string{titleLine, ""}
	if content.header != "" {
		parts = append(parts, content.header)
	}
	parts = append(parts, up)
	parts = append(parts, visibleBody...)
	for j := len(visibleBody); j < availableForBody; j++ {
		parts = append(parts, "")
	}
	parts = append(parts, down)
	if content.footer != "" {
		parts = append(parts, content.footer)
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(max(i.width-frameW, 0)).
		Height(max(i.height-frameH, 0)).
		Render(strings.Join(parts, "\n"))
}

func (i Inspector) render(width int) inspectorContent {
	if i.item == nil {
		return inspectorContent{body: styles.DimStyle.Render("No app selected")}
	}
	return inspectorContent{
		header: i.renderHeader(*i.item, width),
		body:   renderBody(*i.item, width),
		footer: i.renderFooter(*i.item, width),
	}
}

func (i Inspector) renderHeader(sw domain.Software, width int) string {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(styles.Truncate(sw.Title(), width)))
	b.WriteString("\n")
	if sw.Info.Slogan != "" {
		b.WriteString(styles.SubtitleStyle.Render(styles.Truncate(sw.Info.Slogan, width)))
		b.WriteString("\n")
	}

	// Meta line: category · author · source
	var meta []string
	for _, s := range []string{sw.Info.Category, sw.Info.Author, sw.Info.Source.String()} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	b.WriteString(styles.DimStyle.Render(styles.Truncate(strings.Join(meta, " · "), width)))
	b.WriteString("\n")

	var statusParts []string
	if sw.Stat != nil {
		var ratingStyle lipgloss.Style
		switch {
		case sw.Stat.Score >= 4:
			ratingStyle = lipgloss.NewStyle().Foreground(styles.Green)
		case sw.Stat.Score >= 2.5:
			ratingStyle = lipgloss.NewStyle().Foreground(styles.Amber)
		default:
			ratingStyle = lipgloss.NewStyle().Foreground(styles.Red)
		}
		statusParts = append(statusParts,
			ratingStyle.Render("★ "+sw.FormattedScore()),
			styles.DimStyle.Render(fmt.Sprintf("↓ %d", sw.Stat.Download)))
	}
	statusParts = append(statusParts, i.renderStatus())
	b.WriteString(strings.Join(statusParts, "   "))

	return b.String()
}

func (i Inspector) renderStatus() string {
	if i.statusErr != nil {
		return styles.ErrorStyle.Render("status unavailable")
	}
	if !i.hasStatus {
		return styles.DimStyle.Render("…")
	}
	switch i.status {
	case domain.StatusRunning:
		return styles.RunningStyle.Render(styles.RunningChar + " Working")
	case domain.StatusFinish:
		return styles.FinishStyle.Render(styles.FinishChar + " Installed")
	default:
		return styles.ReadyStyle.Render(styles.ReadyChar + " Not installed")
	}
}

func renderBody(sw domain.Software, width int) string {
	var b strings.Builder
	bodyWidth := min(width-2, 80)

	if sw.Info.Description != "" {
		b.WriteString(styles.SubtitleStyle.Render(wordWrap(sw.Info.Description, bodyWidth)))
		b.WriteString("\n\n")
	}

	if len(sw.Info.Tags) > 0 {
		tags := make([]string, len(sw.Info.Tags))
		for j, t := range sw.Info.Tags {
			tags[j] = styles.DimBadgeStyle.Render(t)
		}
		b.WriteString(strings.Join(tags, " "))
		b.WriteString("\n\n")
	}

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.DimStyle.Render(label + " "))
		b.WriteString(styles.Truncate(value, max(width-len(label)-1, 5)))
		b.WriteString("\n")
	}
	field("Home", sw.Info.HomePage)
	field("Packager", sw.Info.Packager)
	field("Icon", sw.Info.Icon)
	field("Cover", sw.Info.Cover)
	for j, shot := range sw.Info.Screenshots {
		field(fmt.Sprintf("Shot %d", j+1), shot)
	}
	for _, p := range sw.Info.Packages {
		field("Package", p.PackageURI)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (i Inspector) renderFooter(sw domain.Software, width int) string {
	var parts []string
	if p := sw.Package; p != nil {
		switch {
		case p.Upgradable:
			parts = append(parts, fmt.Sprintf("%s → %s", p.LocalVersion, p.RemoteVersion))
		case p.LocalVersion != "":
			parts = append(parts, p.LocalVersion)
		case p.RemoteVersion != "":
			parts = append(parts, p.RemoteVersion)
		}
		if p.PackageName != "" {
			parts = append(parts, p.PackageName)
		}
	}
	if i.hasSize {
		parts = append(parts, domain.FormatSize(i.size))
	}
	if len(parts) == 0 {
		return ""
	}
	separator := styles.DimStyle.Render(strings.Repeat("─", width))
	return separator + "\n" + styles.DimStyle.Render(styles.Truncate(strings.Join(parts, " · "), width))
}

// splitLines splits a string into lines, returning empty slice for empty string
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// wordWrap wraps text to the specified width
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wordLen := lipgloss.Width(word)
		if lineLen+wordLen+1 > width && lineLen > 0 {
			result.WriteString("\n")
			lineLen = 0
		}
		if i > 0 && lineLen > 0 {
			result.WriteString(" ")
			lineLen++
		}
		result.WriteString(word)
		lineLen += wordLen
	}
	return result.String()
}
