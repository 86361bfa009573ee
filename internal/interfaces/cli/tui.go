package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

const (
	KeyQuit    = "q"
	KeyEscape  = "esc"
	KeyUp      = "up"
	KeyUpAlt   = "k"
	KeyDown    = "down"
	KeyDownAlt = "j"
	KeyEnter   = "enter"
	KeyHome    = "g"
	KeyEnd     = "G"
	KeyFilter  = "f"
)

type HelpItem struct {
	Key  string
	Desc string
}

func BuildHelpText(items []HelpItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Key + " " + item.Desc
	}
	return HelpStyle.Render("  " + strings.Join(parts, "  "))
}

var (
	HelpNavUp  = HelpItem{Key: "↑/↓", Desc: "navigate"}
	HelpEnter  = HelpItem{Key: "Enter", Desc: "details"}
	HelpFilter = HelpItem{Key: "f", Desc: "cycle type"}
	HelpEsc    = HelpItem{Key: "Esc", Desc: "back"}
	HelpQuit   = HelpItem{Key: "q", Desc: "quit"}
)

type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
)

// Viewport keeps the cursor row inside a window of VisibleRows rows.
type Viewport struct {
	Offset      int
	VisibleRows int
	TotalRows   int
	CursorIndex int
}

func (v *Viewport) EnsureCursorVisible() {
	if v.CursorIndex < v.Offset {
		v.Offset = v.CursorIndex
	}
	if v.CursorIndex >= v.Offset+v.VisibleRows {
		v.Offset = v.CursorIndex - v.VisibleRows + 1
	}
	maxOffset := max(0, v.TotalRows-v.VisibleRows)
	v.Offset = min(max(0, v.Offset), maxOffset)
}

func (v *Viewport) VisibleEnd() int {
	return min(v.Offset+v.VisibleRows, v.TotalRows)
}

func (v *Viewport) ScrollIndicator() string {
	if v.TotalRows <= v.VisibleRows {
		return ""
	}
	var parts []string
	if v.Offset > 0 {
		parts = append(parts, "↑")
	}
	parts = append(parts, fmt.Sprintf("%d/%d", v.CursorIndex+1, v.TotalRows))
	if v.VisibleEnd() < v.TotalRows {
		parts = append(parts, "↓")
	}
	return NoopStyle.Padding(0, 1).Render(strings.Join(parts, " "))
}

// notificationTypes is the cycle order of the type filter; "" shows all.
var notificationTypes = []entity.NotificationType{
	"",
	entity.NotificationTransferIn,
	entity.NotificationTransferOut,
	entity.NotificationRenewed,
	entity.NotificationSuspended,
	entity.NotificationDeleted,
	entity.NotificationDataQuality,
}

// BrowserModel is a read-only browser over archived notifications.
type BrowserModel struct {
	ViewState ViewState
	Width     int
	Height    int
	Cursor    int
	Offset    int
	Filter    int

	all     []entity.Notification
	visible []entity.Notification
	title   string
}

func NewBrowserModel(title string, notifications []entity.Notification) BrowserModel {
	m := BrowserModel{title: title, all: notifications, Height: 24}
	m.applyFilter()
	return m
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m *BrowserModel) applyFilter() {
	want := notificationTypes[m.Filter]
	m.visible = nil
	for _, n := range m.all {
		if want == "" || n.Type == want {
			m.visible = append(m.visible, n)
		}
	}
	m.Cursor, m.Offset = 0, 0
}

// Visible returns the notifications passing the current type filter.
func (m BrowserModel) Visible() []entity.Notification {
	return m.visible
}

func (m BrowserModel) Selected() (entity.Notification, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.visible) {
		return entity.Notification{}, false
	}
	return m.visible[m.Cursor], true
}

func (m BrowserModel) listRows() int {
	// title, blank, header, blank, help
	return max(1, m.Height-5)
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", KeyQuit:
			return m, tea.Quit
		case KeyEscape:
			if m.ViewState == ViewStateDetail {
				m.ViewState = ViewStateList
				return m, nil
			}
			return m, tea.Quit
		case KeyEnter:
			if _, ok := m.Selected(); ok {
				m.ViewState = ViewStateDetail
			}
		case KeyUp, KeyUpAlt:
			m.moveCursor(-1)
		case KeyDown, KeyDownAlt:
			m.moveCursor(1)
		case KeyHome:
			m.moveCursor(-len(m.visible))
		case KeyEnd:
			m.moveCursor(len(m.visible))
		case KeyFilter:
			if m.ViewState == ViewStateList {
				m.Filter = (m.Filter + 1) % len(notificationTypes)
				m.applyFilter()
			}
		}
	}
	return m, nil
}

func (m *BrowserModel) moveCursor(delta int) {
	if m.ViewState != ViewStateList || len(m.visible) == 0 {
		return
	}
	m.Cursor = min(max(0, m.Cursor+delta), len(m.visible)-1)
	vp := &Viewport{Offset: m.Offset, VisibleRows: m.listRows(), TotalRows: len(m.visible), CursorIndex: m.Cursor}
	vp.EnsureCursorVisible()
	m.Offset = vp.Offset
}

func (m BrowserModel) View() string {
	if m.ViewState == ViewStateDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m BrowserModel) viewList() string {
	var b strings.Builder
	filter := "all"
	if t := notificationTypes[m.Filter]; t != "" {
		filter = string(t)
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%s)", m.title, filter)))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(NoopStyle.Render("  no notifications"))
		b.WriteString("\n\n")
		b.WriteString(BuildHelpText([]HelpItem{HelpFilter, HelpQuit}))
		return b.String()
	}

	vp := &Viewport{Offset: m.Offset, VisibleRows: m.listRows(), TotalRows: len(m.visible), CursorIndex: m.Cursor}
	vp.EnsureCursorVisible()
	for i := vp.Offset; i < vp.VisibleEnd(); i++ {
		n := m.visible[i]
		line := fmt.Sprintf("%-20s %-10s %-12s %s", formatTime(n.Time), n.Registry, n.Type, strings.Join(n.Domains, ","))
		if i == m.Cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + notificationStyle(n.Type).Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString(vp.ScrollIndicator())
	b.WriteString("\n")
	b.WriteString(BuildHelpText([]HelpItem{HelpNavUp, HelpEnter, HelpFilter, HelpQuit}))
	return b.String()
}

func (m BrowserModel) viewDetail() string {
	n, _ := m.Selected()
	var b strings.Builder
	printField(&b, "ID", n.ID)
	printField(&b, "Registry", n.Registry)
	printField(&b, "Type", notificationStyle(n.Type).Render(string(n.Type)))
	printField(&b, "Time", formatTime(n.Time))
	printField(&b, "Domains", strings.Join(n.Domains, ", "))
	printField(&b, "Message", n.Message)
	if len(n.Raw) > 0 {
		b.WriteString("\n")
		b.WriteString(NoopStyle.Render(string(n.Raw)))
	}
	box := DetailStyle
	if m.Width > 4 {
		box = box.Width(m.Width - 4)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(m.title),
		"",
		box.Render(strings.TrimRight(b.String(), "\n")),
		BuildHelpText([]HelpItem{HelpEsc, HelpQuit}),
	)
}

func runBrowser(model BrowserModel) error {
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
