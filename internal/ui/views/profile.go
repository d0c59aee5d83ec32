package views

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/query"
	"github.com/alaincodes24/taskdeck/internal/ui/keys"
	"github.com/alaincodes24/taskdeck/internal/ui/styles"
)

// ProfileView shows the signed in user and workload statistics
type ProfileView struct {
	sessions Sessions
	styles   *styles.Styles
	keys     keys.KeyMap

	width  int
	height int

	data collection.Snapshot

	confirmingLogout bool
}

func NewProfileView(sessions Sessions, collections Collections) *ProfileView {
	return &ProfileView{
		sessions: sessions,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		data:     collections.Snapshot(),
	}
}

func (v *ProfileView) Init() tea.Cmd { return nil }

func (v *ProfileView) Capturing() bool { return v.confirmingLogout }

func (v *ProfileView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height

	case DataMsg:
		v.data = msg.Snapshot

	case tea.KeyMsg:
		if v.confirmingLogout {
			switch msg.String() {
			case "y", "Y":
				v.confirmingLogout = false
				return v, func() tea.Msg {
					v.sessions.Logout(context.Background())
					return nil
				}
			case "n", "N", "esc":
				v.confirmingLogout = false
			}
			return v, nil
		}
		if key.Matches(msg, v.keys.Logout) {
			v.confirmingLogout = true
		}
	}
	return v, nil
}

func (v *ProfileView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	if v.confirmingLogout {
		content := lipgloss.JoinVertical(lipgloss.Center,
			s.Title.Render("Log out?"),
			"",
			lipgloss.JoinHorizontal(lipgloss.Center,
				s.ButtonPrimary.Render(" Y - Yes "),
				"  ",
				s.Button.Render(" N - No "),
			),
		)
		centered := lipgloss.Place(contentWidth, v.height, lipgloss.Center, lipgloss.Center, content)
		return styles.CenterView(centered, v.width, v.height)
	}

	user := v.sessions.Snapshot().User
	if user == nil {
		return styles.CenterView(s.TitleMuted.Render("Not signed in"), v.width, v.height)
	}

	row := func(label, value string) string {
		return s.TitleMuted.Width(16).Render(label) + value
	}

	role := user.Role
	if role == "" {
		role = "user"
	}
	info := []string{
		s.Title.Render(user.Name),
		"",
		row("Email", user.Email),
		row("Role", role),
	}
	if !user.CreatedAt.IsZero() {
		info = append(info, row("Member since", user.CreatedAt.Format("January 2, 2006")))
	}

	stats := query.ComputeStats(v.data.Projects, v.data.Tasks)
	statRows := []string{
		s.Title.Render("Statistics"),
		"",
		row("Projects", fmt.Sprintf("%d (%d active)", stats.Projects, stats.ActiveProjects)),
		row("Tasks", fmt.Sprintf("%d", stats.Tasks)),
		row("Completed", fmt.Sprintf("%d", stats.Completed)),
		row("In progress", fmt.Sprintf("%d", stats.InProgress)),
		row("Pending", fmt.Sprintf("%d", stats.Pending)),
		row("Completion", fmt.Sprintf("%d%%", stats.CompletionRate)),
	}
	if v.data.Loading {
		statRows = append(statRows, "", s.TitleMuted.Render("Loading..."))
	}

	help := s.Help.Render(fmt.Sprintf("%s log out • %s refresh • %s quit",
		s.HelpKey.Render("L"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("q"),
	))

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, info...)),
		"",
		s.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, statRows...)),
		"",
		help,
	)
	centered := lipgloss.Place(contentWidth, v.height, lipgloss.Center, lipgloss.Center, content)
	return styles.CenterView(centered, v.width, v.height)
}
