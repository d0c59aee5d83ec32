package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/query"
	"github.com/alaincodes24/taskdeck/internal/ui/keys"
	"github.com/alaincodes24/taskdeck/internal/ui/styles"
)

type projectItem struct {
	project  models.Project
	progress query.Progress
}

func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string { return i.project.Description }
func (i projectItem) FilterValue() string { return i.project.Name }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	selected := index == m.Index()
	width := max(d.width-4, 20)

	var titleStyle, descStyle lipgloss.Style
	if selected {
		titleStyle = d.styles.ListSelected.Width(width)
		descStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = d.styles.ListItem.Width(width)
		descStyle = d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	badge := d.styles.RenderBadge(p.project.Status.Label(), styles.ProjectStatusColor(p.project.Status))
	title := titleStyle.Render(p.Title() + " " + badge)

	summary := fmt.Sprintf("%d/%d tasks done (%d%%)", p.progress.Completed, p.progress.Total, p.progress.Percent())
	if p.Description() != "" {
		summary = p.Description() + " • " + summary
	}
	desc := descStyle.Render(summary)

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// ProjectListView lists the user's projects with search and a create/edit form
type ProjectListView struct {
	collections Collections
	list        list.Model
	delegate    *projectDelegate
	search      textinput.Model
	styles      *styles.Styles
	keys        keys.KeyMap
	width       int
	height      int

	data      collection.Snapshot
	searching bool

	// Create/edit form
	editing    bool
	editingID  int64 // 0 while creating
	saving     bool
	formErr    string
	editName   textinput.Model
	editDesc   textinput.Model
	editStatus models.ProjectStatus
	focusIdx   int // 0=name, 1=desc, 2=status, 3=save

	confirmingDelete bool
	deleteTarget     models.Project
	deleteTaskCount  int

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

func NewProjectListView(collections Collections) *ProjectListView {
	s := styles.NewStyles()

	search := textinput.New()
	search.Placeholder = "Search projects..."
	search.CharLimit = 100

	editName := textinput.New()
	editName.Placeholder = "Project name"
	editName.CharLimit = 100

	editDesc := textinput.New()
	editDesc.Placeholder = "Description (optional)"
	editDesc.CharLimit = 500

	delegate := &projectDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	return &ProjectListView{
		collections: collections,
		list:        l,
		delegate:    delegate,
		search:      search,
		styles:      s,
		keys:        keys.DefaultKeyMap(),
		editName:    editName,
		editDesc:    editDesc,
	}
}

func (v *ProjectListView) Init() tea.Cmd {
	return func() tea.Msg {
		return DataMsg{Snapshot: v.collections.Snapshot()}
	}
}

func (v *ProjectListView) Capturing() bool {
	return v.searching || v.editing || v.confirmingDelete || v.showHelpPopup
}

// refreshItems rebuilds the list from the latest data and search term
func (v *ProjectListView) refreshItems() {
	projects := query.FilterProjects(v.data.Projects, v.search.Value())
	items := make([]list.Item, len(projects))
	for i, p := range projects {
		items[i] = projectItem{project: p, progress: query.ProjectProgress(p.ID, v.data.Tasks)}
	}
	v.list.SetItems(items)
}

func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Use content width (capped at MaxWidth) for internal layout
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-10)
		return v, nil

	case DataMsg:
		v.data = msg.Snapshot
		v.refreshItems()
		return v, nil

	case savedMsg:
		v.saving = false
		if msg.err != nil {
			v.formErr = errorText(msg.err)
			return v, nil
		}
		v.editing = false
		v.confirmingDelete = false
		return v, nil

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.saving {
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		if v.searching {
			return v.updateSearch(msg)
		}

		switch {
		case key.Matches(msg, v.keys.Back):
			if v.search.Value() != "" {
				v.search.Reset()
				v.refreshItems()
			}
			return v, nil
		case key.Matches(msg, v.keys.Search):
			v.searching = true
			v.search.Focus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.New):
			v.startEdit(nil)
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Help):
			v.showHelpPopup = true
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, func() tea.Msg {
					return OpenProject{ID: item.project.ID}
				}
			}
		case key.Matches(msg, v.keys.Edit):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				v.startEdit(&item.project)
				return v, textinput.Blink
			}
		case key.Matches(msg, v.keys.Delete):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				v.confirmingDelete = true
				v.formErr = ""
				v.deleteTarget = item.project
				v.deleteTaskCount = item.progress.Total
				return v, nil
			}
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ProjectListView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.search.Reset()
		fallthrough
	case key.Matches(msg, v.keys.Enter):
		v.searching = false
		v.search.Blur()
		v.refreshItems()
		return v, nil
	}

	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	v.refreshItems()
	return v, cmd
}

func (v *ProjectListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.deleteTarget.ID
		v.saving = true
		return v, func() tea.Msg {
			return savedMsg{err: v.collections.DeleteProject(context.Background(), id)}
		}
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

// startEdit opens the form, empty for a new project or filled from p
func (v *ProjectListView) startEdit(p *models.Project) {
	v.editing = true
	v.formErr = ""
	v.focusIdx = 0
	v.editingID = 0
	v.editName.Reset()
	v.editDesc.Reset()
	v.editStatus = models.ProjectActive
	if p != nil {
		v.editingID = p.ID
		v.editName.SetValue(p.Name)
		v.editDesc.SetValue(p.Description)
		v.editStatus = p.Status
	}
	v.updateFocus()
}

func (v *ProjectListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveProject()

	case key.Matches(msg, v.keys.BackTab):
		v.focusIdx = (v.focusIdx + 3) % 4
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % 4
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx == 3 {
			return v, v.saveProject()
		}
		v.focusIdx++
		v.updateFocus()
		return v, nil
	}

	if v.focusIdx == 2 {
		switch {
		case key.Matches(msg, v.keys.Left):
			v.editStatus = cycle(models.ProjectStatuses, v.editStatus, -1)
		case key.Matches(msg, v.keys.Right), msg.String() == " ":
			v.editStatus = cycle(models.ProjectStatuses, v.editStatus, 1)
		}
		return v, nil
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case 0:
		v.editName, cmd = v.editName.Update(msg)
	case 1:
		v.editDesc, cmd = v.editDesc.Update(msg)
	}
	return v, cmd
}

func (v *ProjectListView) updateFocus() {
	v.editName.Blur()
	v.editDesc.Blur()
	switch v.focusIdx {
	case 0:
		v.editName.Focus()
	case 1:
		v.editDesc.Focus()
	}
}

func (v *ProjectListView) saveProject() tea.Cmd {
	name := strings.TrimSpace(v.editName.Value())
	if name == "" {
		v.formErr = "Name is required"
		return nil
	}
	in := models.ProjectInput{
		Name:        models.Ptr(name),
		Description: models.Ptr(strings.TrimSpace(v.editDesc.Value())),
		Status:      models.Ptr(v.editStatus),
	}

	v.saving = true
	v.formErr = ""
	id := v.editingID
	return func() tea.Msg {
		var err error
		if id == 0 {
			_, err = v.collections.CreateProject(context.Background(), in)
		} else {
			_, err = v.collections.UpdateProject(context.Background(), id, in)
		}
		return savedMsg{err: err}
	}
}

// View renders the view
func (v *ProjectListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.data.Loading && len(v.data.Projects) == 0 {
		return v.styles.TitleMuted.Render("Loading...")
	}

	if len(v.data.Projects) == 0 {
		return v.renderEmpty()
	}

	var content string
	if v.searching || v.search.Value() != "" {
		searchStyle := v.styles.Input
		if v.searching {
			searchStyle = v.styles.InputFocused
		}
		content = searchStyle.Width(clamp(styles.ContentWidth(v.width)-8, 10, 40)).Render(v.search.View()) + "\n"
	}
	if len(v.list.Items()) == 0 {
		content += v.styles.TitleMuted.Render("No projects match your search.") + "\n"
	} else {
		content += v.list.View() + "\n"
	}
	content += v.renderHelp()
	return styles.CenterView(content, v.width, v.height)
}

func (v *ProjectListView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Projects"),
		"",
		s.TitleMuted.Render("Press 'n' to create your first project"),
		"",
		s.ButtonPrimary.Render(" New Project "),
	)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Project"
	btnLabel := " Create "
	if v.editingID != 0 {
		formTitle = "Edit Project"
		btnLabel = " Update "
	}
	if v.saving {
		btnLabel = " Saving... "
	}

	nameStyle := s.Input
	descStyle := s.Input
	statusStyle := s.Input
	btnStyle := s.Button

	switch v.focusIdx {
	case 0:
		nameStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		statusStyle = s.InputFocused
	case 3:
		btnStyle = s.ButtonFocused
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	status := "◀ " + lipgloss.NewStyle().Foreground(styles.ProjectStatusColor(v.editStatus)).Render(v.editStatus.Label()) + " ▶"

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Name:",
		nameStyle.Width(inputWidth).Render(v.editName.View()),
		"",
		"Description:",
		descStyle.Width(inputWidth).Render(v.editDesc.View()),
		"",
		"Status:",
		statusStyle.Width(inputWidth).Render(status),
		"",
		btnStyle.Render(btnLabel),
		"",
	}
	if v.formErr != "" {
		rows = append(rows, s.FieldError.Render(v.formErr), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ←→: status • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}
	return v.styles.Help.Render(
		fmt.Sprintf("%s tasks • %s new • %s edit • %s del • %s search • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *ProjectListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      show project tasks",
		s.HelpKey.Render("n") + "      new project",
		s.HelpKey.Render("e") + "      edit project",
		s.HelpKey.Render("d") + "      delete project",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("1-3") + "    switch page",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *ProjectListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	warning := "This project has no tasks."
	if v.deleteTaskCount == 1 {
		warning = "Its 1 task will also be deleted."
	} else if v.deleteTaskCount > 1 {
		warning = fmt.Sprintf("Its %d tasks will also be deleted.", v.deleteTaskCount)
	}

	rows := []string{
		s.Title.Foreground(styles.Current.Error).Render("Delete Project?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("Are you sure you want to delete %q?", v.deleteTarget.Name)),
		s.TitleMuted.Render(warning),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	}
	if v.formErr != "" {
		rows = append(rows, "", s.FieldError.Render(v.formErr))
	}

	content := lipgloss.JoinVertical(lipgloss.Center, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}
