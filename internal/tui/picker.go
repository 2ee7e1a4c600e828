package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// picker is a fuzzy-filterable single-select list shared by every view
// with a list-selection step. Cursor movement wraps circularly; typing
// narrows the list and resets the cursor; an empty query shows all items
// in their original order.
type picker struct {
	items  []string // display labels, original order
	query  string
	// visible holds indices into items, in display order.
	visible []int
	cursor  int
}

func newPicker(items []string) *picker {
	p := &picker{items: items}
	p.refilter()
	return p
}

// refilter recomputes visible from query.
func (p *picker) refilter() {
	if p.query == "" {
		p.visible = make([]int, len(p.items))
		for i := range p.items {
			p.visible[i] = i
		}
		return
	}
	matches := fuzzy.Find(p.query, p.items)
	p.visible = make([]int, len(matches))
	for i, m := range matches {
		p.visible[i] = m.Index
	}
}

// setItems replaces the labels, reapplying the current filter. The cursor
// resets only when it would fall off the filtered list.
func (p *picker) setItems(items []string) {
	p.items = items
	p.refilter()
	if p.cursor >= len(p.visible) {
		p.cursor = 0
	}
}

// Selected returns the index into the original items of the item under the
// cursor, or -1 when nothing is visible.
func (p *picker) Selected() int {
	if len(p.visible) == 0 || p.cursor >= len(p.visible) {
		return -1
	}
	return p.visible[p.cursor]
}

// Len returns the number of visible items.
func (p *picker) Len() int { return len(p.visible) }

// Query returns the current filter text.
func (p *picker) Query() string { return p.query }

// Update handles a keypress. It consumes arrows, printable runes, and
// backspace; enter/escape are left to the owning view.
func (p *picker) Update(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		p.moveUp()
		return true
	case tea.KeyDown:
		p.moveDown()
		return true
	case tea.KeyBackspace:
		if p.query != "" {
			r := []rune(p.query)
			p.query = string(r[:len(r)-1])
			p.refilter()
			p.cursor = 0
		}
		return true
	case tea.KeyRunes:
		p.query += string(msg.Runes)
		p.refilter()
		p.cursor = 0
		return true
	case tea.KeySpace:
		p.query += " "
		p.refilter()
		p.cursor = 0
		return true
	}
	return false
}

func (p *picker) moveUp() {
	if len(p.visible) == 0 {
		return
	}
	p.cursor = (p.cursor - 1 + len(p.visible)) % len(p.visible)
}

func (p *picker) moveDown() {
	if len(p.visible) == 0 {
		return
	}
	p.cursor = (p.cursor + 1) % len(p.visible)
}

// optionList is a fixed set of choices with a circular cursor, used by
// confirm steps. The most committing option sits at index 0 and "Back"
// comes last.
type optionList struct {
	options []string
	cursor  int
}

func newOptionList(options ...string) *optionList {
	return &optionList{options: options}
}

func (o *optionList) Update(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		o.cursor = (o.cursor - 1 + len(o.options)) % len(o.options)
		return true
	case tea.KeyDown:
		o.cursor = (o.cursor + 1) % len(o.options)
		return true
	}
	return false
}

func (o *optionList) Selected() string { return o.options[o.cursor] }

func (o *optionList) View() string {
	var lines []string
	for i, opt := range o.options {
		if i == o.cursor {
			lines = append(lines, selectedItemStyle.Render("> "+opt))
		} else {
			lines = append(lines, itemStyle.Render("  "+opt))
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the list with the cursor marker, showing at most height
// rows around the cursor.
func (p *picker) View(height int) string {
	if len(p.visible) == 0 {
		if p.query != "" {
			return mutedStyle.Render("  no matches for \"" + p.query + "\"")
		}
		return mutedStyle.Render("  nothing to select")
	}

	start := 0
	if height > 0 && len(p.visible) > height {
		start = p.cursor - height/2
		if start < 0 {
			start = 0
		}
		if start > len(p.visible)-height {
			start = len(p.visible) - height
		}
	}
	end := len(p.visible)
	if height > 0 && start+height < end {
		end = start + height
	}

	var lines []string
	for i := start; i < end; i++ {
		label := p.items[p.visible[i]]
		if i == p.cursor {
			lines = append(lines, selectedItemStyle.Render("> "+label))
		} else {
			lines = append(lines, itemStyle.Render("  "+label))
		}
	}
	return strings.Join(lines, "\n")
}
