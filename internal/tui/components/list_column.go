package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/appshelf/internal/domain"
	"github.com/mmcdole/appshelf/internal/search"
	"github.com/mmcdole/appshelf/internal/tui/styles"
)

// Spinner frames for loading animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Layout constants for list columns
const (
	// Border adds 1 char on each side
	BorderWidth  = 2
	BorderHeight = 2

	// "↑ more" and "↓ more" each take 1 line
	ScrollIndicatorLines = 2
)

// ListColumn is a scrollable, filterable list of catalog entries
type ListColumn struct {
	items   []domain.Software
	index   *search.Index
	results []search.Result // nil when no filter query is applied

	cursor     int
	offset     int
	maxVisible int

	width   int
	height  int
	focused bool
	title   string

	loading      bool
	spinnerFrame int

	// Last known install status per entry name
	statuses map[string]domain.InstallStatus

	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
}

// NewListColumn creates an empty list column
func NewListColumn(title string) *ListColumn {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &ListColumn{
		title:       title,
		index:       search.NewIndex(nil),
		filterInput: ti,
		statuses:    make(map[string]domain.InstallStatus),
		focused:     true,
	}
}

// Update handles navigation and filter input
func (c *ListColumn) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if c.IsFilterTyping() {
			var cmd tea.Cmd
			c.filterInput, cmd = c.filterInput.Update(msg)
			return cmd
		}
		return nil
	}

	// Typing mode: keys go to the filter input
	if c.IsFilterTyping() {
		switch {
		case key.Matches(keyMsg, ListKeys.Escape):
			c.clearFilter()
			return nil
		case key.Matches(keyMsg, ListKeys.Enter):
			c.filterInput.Blur()
			return nil
		case keyMsg.String() == "backspace" && c.filterInput.Value() == "":
			c.clearFilter()
			return nil
		}
		var cmd tea.Cmd
		c.filterInput, cmd = c.filterInput.Update(msg)
		c.applyFilter()
		return cmd
	}

	if c.filterActive {
		switch {
		case key.Matches(keyMsg, ListKeys.Escape):
			c.clearFilter()
			return nil
		case key.Matches(keyMsg, ListKeys.Filter):
			c.filterInput.Focus()
			return nil
		}
	}

	count := c.ItemCount()
	if count == 0 {
		return nil
	}

	switch {
	case key.Matches(keyMsg, ListKeys.Down):
		if c.cursor < count-1 {
			c.cursor++
			c.ensureVisible()
		}
	case key.Matches(keyMsg, ListKeys.Up):
		if c.cursor > 0 {
			c.cursor--
			c.ensureVisible()
		}
	case key.Matches(keyMsg, ListKeys.Home):
		c.cursor = 0
		c.offset = 0
	case key.Matches(keyMsg, ListKeys.End):
		c.cursor = count - 1
		c.ensureVisible()
	case key.Matches(keyMsg, ListKeys.HalfDown):
		c.cursor = min(c.cursor+max(c.maxVisible/2, 1), count-1)
		c.ensureVisible()
	case key.Matches(keyMsg, ListKeys.HalfUp):
		c.cursor = max(c.cursor-max(c.maxVisible/2, 1), 0)
		c.ensureVisible()
	}
	return nil
}

// View renders the column inside its border
func (c *ListColumn) View() string {
	style := styles.InactiveBorder
	if c.focused {
		style = styles.ActiveBorder
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(max(c.width-frameW, 0)).
		Height(max(c.height-frameH, 0)).
		Render(c.renderContent())
}

// SetSize updates the column dimensions
func (c *ListColumn) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.recalcMaxVisible()
	c.ensureVisible()
}

// SetFocused sets whether the column draws an active border
func (c *ListColumn) SetFocused(focused bool) { c.focused = focused }

// SetTitle sets the header line
func (c *ListColumn) SetTitle(title string) { c.title = title }

// SetLoading toggles the loading placeholder
func (c *ListColumn) SetLoading(loading bool) { c.loading = loading }

// IsLoading reports whether the column shows the loading placeholder
func (c *ListColumn) IsLoading() bool { return c.loading }

// SetSpinnerFrame advances the loading spinner
func (c *ListColumn) SetSpinnerFrame(frame int) { c.spinnerFrame = frame }

// SetItems replaces the entries, keeping the selection on the same name when possible
func (c *ListColumn) SetItems(items []domain.Software) {
	selected := ""
	if sw, ok := c.SelectedItem(); ok {
		selected = sw.Name
	}

	c.items = items
	c.index = search.NewIndex(items)
	c.loading = false
	c.cursor, c.offset = 0, 0
	if c.filterActive && c.filterQuery != "" {
		c.results = c.index.Filter(c.filterQuery)
	} else {
		c.results = nil
	}

	if selected != "" {
		for i, n := 0, c.ItemCount(); i < n; i++ {
			if c.itemAt(i).Name == selected {
				c.cursor = i
				break
			}
		}
	}
	c.ensureVisible()
}

// Items returns every entry, ignoring the filter
func (c *ListColumn) Items() []domain.Software { return c.items }

// SetStatus records the install status shown next to an entry
func (c *ListColumn) SetStatus(name string, status domain.InstallStatus) {
	c.statuses[name] = status
}

// ItemCount returns the number of visible entries
func (c *ListColumn) ItemCount() int {
	if c.results != nil {
		return len(c.results)
	}
	return len(c.items)
}

// SelectedIndex returns the cursor position among visible entries
func (c *ListColumn) SelectedIndex() int { return c.cursor }

// SelectedItem returns the entry under the cursor
func (c *ListColumn) SelectedItem() (domain.Software, bool) {
	if c.cursor < 0 || c.cursor >= c.ItemCount() {
		return domain.Software{}, false
	}
	return c.itemAt(c.cursor), true
}

// ToggleFilter activates the filter input
func (c *ListColumn) ToggleFilter() {
	c.filterActive = true
	c.filterInput.Focus()
	c.recalcMaxVisible()
}

// IsFiltering returns true if filter mode is active
func (c *ListColumn) IsFiltering() bool { return c.filterActive }

// IsFilterTyping returns true if filter is active AND input is focused
func (c *ListColumn) IsFilterTyping() bool {
	return c.filterActive && c.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all entries
func (c *ListColumn) ClearFilter() { c.clearFilter() }

func (c *ListColumn) itemAt(i int) domain.Software {
	if c.results != nil {
		return c.results[i].Software
	}
	return c.items[i]
}

func (c *ListColumn) matchedAt(i int) []int {
	if c.results != nil {
		return c.results[i].MatchedIndexes
	}
	return nil
}

func (c *ListColumn) recalcMaxVisible() {
	// Interior minus title line and scroll indicators
	c.maxVisible = c.height - BorderHeight - ScrollIndicatorLines - 1
	if c.filterActive {
		c.maxVisible--
	}
	if c.maxVisible < 1 {
		c.maxVisible = 1
	}
}

func (c *ListColumn) ensureVisible() {
	if c.maxVisible <= 0 {
		return
	}
	if c.cursor < c.offset {
		c.offset = c.cursor
	}
	if c.cursor >= c.offset+c.maxVisible {
		c.offset = c.cursor - c.maxVisible + 1
	}
}

func (c *ListColumn) clearFilter() {
	c.filterActive = false
	c.filterQuery = ""
	c.results = nil
	c.filterInput.SetValue("")
	c.filterInput.Blur()
	c.cursor, c.offset = 0, 0
	c.recalcMaxVisible()
}

func (c *ListColumn) applyFilter() {
	c.filterQuery = c.filterInput.Value()
	if strings.TrimSpace(c.filterQuery) == "" {
		c.results = nil
	} else {
		c.results = c.index.Filter(c.filterQuery)
	}
	c.cursor = 0
	c.offset = 0
}

func (c *ListColumn) renderContent() string {
	itemWidth := max(c.width-BorderWidth, 10)
	titleLine := styles.AccentStyle.Render(styles.Truncate(c.title, itemWidth))

	if c.loading {
		spinner := spinnerFrames[c.spinnerFrame%len(spinnerFrames)]
		return titleLine + "\n \n" + styles.DimStyle.Render(spinner+" Loading...") + "\n "
	}

	count := c.ItemCount()
	if count == 0 {
		empty := "No apps"
		if c.filterActive && c.filterQuery != "" {
			empty = "No matches"
		}
		content := titleLine + "\n \n" + styles.DimStyle.Render(empty) + "\n "
		if c.filterActive {
			content += "\n" + c.renderFilterBar()
		}
		return content
	}

	end := min(c.offset+c.maxVisible, count)
	lines := make([]string, 0, end-c.offset)
	for i := c.offset; i < end; i++ {
		lines = append(lines, c.renderItem(c.itemAt(i), c.matchedAt(i), i == c.cursor, itemWidth))
	}

	header := " "
	if c.offset > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if end < count {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := titleLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer
	if c.filterActive {
		content += "\n" + c.renderFilterBar()
	}
	return content
}

func (c *ListColumn) renderItem(sw domain.Software, matched []int, selected bool, width int) string {
	status, known := c.statuses[sw.Name]
	if !known && sw.Package != nil {
		status, known = domain.StatusReady, true
		if sw.IsInstalled() {
			status = domain.StatusFinish
		}
	}

	var indicatorFg lipgloss.Color
	indicator := " "
	if known {
		switch status {
		case domain.StatusRunning:
			indicator, indicatorFg = styles.RunningChar, styles.Amber
		case domain.StatusFinish:
			indicator, indicatorFg = styles.FinishChar, styles.Green
		default:
			indicator, indicatorFg = styles.ReadyChar, styles.LightGray
		}
	}

	score := sw.FormattedScore()
	dim := styles.DimGray

	// Available space: indicator(1) + space(1) + margins(2) + score
	available := max(width-4-len(score)-1, 5)
	title := styles.Truncate(sw.Title(), available)

	parts := []styles.RowPart{{Text: indicator, Foreground: &indicatorFg}, {Text: " "}}
	parts = append(parts, highlightParts(title, matched)...)
	if score != "" {
		pad := max(width-4-lipgloss.Width(title)-len(score), 1)
		parts = append(parts, styles.RowPart{Text: strings.Repeat(" ", pad) + score, Foreground: &dim})
	}
	return styles.RenderListRow(parts, selected, width)
}

// highlightParts splits title into runs, marking fuzzy-matched byte offsets.
// Offsets past the title (matches on the entry key) are ignored.
func highlightParts(title string, matched []int) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: title}}
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	accent := styles.ShelfTeal
	var parts []styles.RowPart
	var run []rune
	runHit := false
	for i, r := range title {
		if len(run) > 0 && hit[i] != runHit {
			parts = append(parts, runPart(run, runHit, &accent))
			run = run[:0]
		}
		runHit = hit[i]
		run = append(run, r)
	}
	if len(run) > 0 {
		parts = append(parts, runPart(run, runHit, &accent))
	}
	return parts
}

func runPart(run []rune, hit bool, accent *lipgloss.Color) styles.RowPart {
	if hit {
		return styles.RowPart{Text: string(run), Foreground: accent, Bold: true}
	}
	return styles.RowPart{Text: string(run)}
}

func (c *ListColumn) renderFilterBar() string {
	countStr := ""
	if c.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", c.ItemCount(), len(c.items)))
	}
	return c.filterInput.View() + countStr
}
