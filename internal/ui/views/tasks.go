package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/query"
	"github.com/alaincodes24/taskdeck/internal/ui/keys"
	"github.com/alaincodes24/taskdeck/internal/ui/styles"
)

var (
	statusFilters   = append([]models.TaskStatus{""}, models.TaskStatuses...)
	priorityFilters = append([]models.Priority{""}, models.Priorities...)
)

// Edit form fields, in tab order
const (
	taskFieldTitle = iota
	taskFieldDesc
	taskFieldStatus
	taskFieldPriority
	taskFieldProject
	taskFieldDue
	taskFieldSave
	taskFieldCount
)

// TaskListView shows every task with search, filters and sorting
type TaskListView struct {
	collections Collections
	styles      *styles.Styles
	keys        keys.KeyMap
	now         func() time.Time

	width  int
	height int

	data    collection.Snapshot
	visible []models.Task

	// List state
	cursor        int
	scrollY       int
	searching     bool
	searchInput   textinput.Model
	statusFilter  models.TaskStatus
	priorityFilt  models.Priority
	projectFilter int64 // 0 = all projects
	sortKey       query.SortKey

	// Task creation/editing
	editing      bool
	editingID    int64 // 0 while creating
	saving       bool
	formErr      string
	editTitle    textinput.Model
	editDesc     textarea.Model
	editStatus   models.TaskStatus
	editPriority models.Priority
	editProject  int64 // 0 = no project
	editDue      textinput.Model
	editFocusIdx int

	// Delete confirmation
	confirmingDelete bool
	deleteTarget     models.Task

	// Help popup (shown with ? at narrow widths)
	showHelpPopup bool
}

func NewTaskListView(collections Collections) *TaskListView {
	search := textinput.New()
	search.Placeholder = "Search..."
	search.CharLimit = 100

	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 1000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editDue := textinput.New()
	editDue.Placeholder = models.DateLayout
	editDue.CharLimit = 10

	return &TaskListView{
		collections: collections,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		now:         time.Now,
		searchInput: search,
		sortKey:     query.SortCreated,
		editTitle:   editTitle,
		editDesc:    editDesc,
		editDue:     editDue,
	}
}

func (v *TaskListView) Init() tea.Cmd {
	return func() tea.Msg {
		return DataMsg{Snapshot: v.collections.Snapshot()}
	}
}

func (v *TaskListView) Capturing() bool {
	return v.searching || v.editing || v.confirmingDelete || v.showHelpPopup
}

// ShowProject narrows the list to one project
func (v *TaskListView) ShowProject(id int64) {
	v.projectFilter = id
	v.cursor = 0
	v.scrollY = 0
	v.applyFilters()
}

func (v *TaskListView) filter() query.TaskFilter {
	f := query.TaskFilter{
		Search:   v.searchInput.Value(),
		Status:   v.statusFilter,
		Priority: v.priorityFilt,
	}
	if v.projectFilter != 0 {
		id := v.projectFilter
		f.ProjectID = &id
	}
	return f
}

// applyFilters recomputes the visible tasks and keeps the cursor in range
func (v *TaskListView) applyFilters() {
	v.visible = query.SortTasks(query.FilterTasks(v.data.Tasks, v.filter()), v.sortKey)
	if v.cursor >= len(v.visible) {
		v.cursor = max(0, len(v.visible)-1)
	}
	v.ensureVisible()
}

func (v *TaskListView) projectOptions() []int64 {
	ids := []int64{0}
	for _, p := range v.data.Projects {
		ids = append(ids, p.ID)
	}
	return ids
}

func (v *TaskListView) projectName(id int64, none string) string {
	if id == 0 {
		return none
	}
	for _, p := range v.data.Projects {
		if p.ID == id {
			return p.Name
		}
	}
	return models.UnknownProjectLabel
}

func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		// Update textarea width dynamically based on content width
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		v.ensureVisible()
		return v, nil

	case DataMsg:
		v.data = msg.Snapshot
		if v.projectFilter != 0 && !containsProject(v.data.Projects, v.projectFilter) {
			// the filtered project is gone
			v.projectFilter = 0
		}
		v.applyFilters()
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

		return v.updateNormal(msg)
	}

	return v, nil
}

func containsProject(projects []models.Project, id int64) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle search input typing first - don't process hotkeys while typing
	if v.searching {
		switch {
		case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
			v.searchInput.Blur()
			v.searching = false
			return v, nil
		default:
			var cmd tea.Cmd
			v.searchInput, cmd = v.searchInput.Update(msg)
			v.applyFilters()
			return v, cmd
		}
	}

	switch {
	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Edit):
		if len(v.visible) > 0 {
			v.startEditTask(&v.visible[v.cursor])
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.startEditTask(nil)
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Delete):
		if len(v.visible) > 0 {
			v.confirmingDelete = true
			v.formErr = ""
			v.deleteTarget = v.visible[v.cursor]
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		v.searchInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Status):
		v.statusFilter = cycle(statusFilters, v.statusFilter, 1)
		v.applyFilters()
		return v, nil

	case key.Matches(msg, v.keys.Priority):
		v.priorityFilt = cycle(priorityFilters, v.priorityFilt, 1)
		v.applyFilters()
		return v, nil

	case key.Matches(msg, v.keys.Project):
		v.projectFilter = cycle(v.projectOptions(), v.projectFilter, 1)
		v.applyFilters()
		return v, nil

	case key.Matches(msg, v.keys.Sort):
		v.sortKey = v.sortKey.Next()
		v.applyFilters()
		return v, nil

	case key.Matches(msg, v.keys.Clear), key.Matches(msg, v.keys.Back):
		v.searchInput.Reset()
		v.statusFilter = ""
		v.priorityFilt = ""
		v.projectFilter = 0
		v.applyFilters()
		return v, nil

	case key.Matches(msg, v.keys.Help):
		// Show help popup (useful at narrow widths)
		v.showHelpPopup = true
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := v.deleteTarget.ID
		v.saving = true
		return v, func() tea.Msg {
			return savedMsg{err: v.collections.DeleteTask(context.Background(), id)}
		}
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.editFocusIdx = (v.editFocusIdx + 1) % taskFieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.BackTab):
		v.editFocusIdx = (v.editFocusIdx + taskFieldCount - 1) % taskFieldCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.editFocusIdx == taskFieldSave {
			return v, v.saveTask()
		}
		// For the description textarea, let enter pass through for newlines
		if v.editFocusIdx != taskFieldDesc {
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		}
	}

	// Choice fields cycle with the arrow keys or space
	dir := 0
	switch {
	case key.Matches(msg, v.keys.Left):
		dir = -1
	case key.Matches(msg, v.keys.Right), msg.String() == " ":
		dir = 1
	}
	switch v.editFocusIdx {
	case taskFieldStatus:
		if dir != 0 {
			v.editStatus = cycle(models.TaskStatuses, v.editStatus, dir)
		}
		return v, nil
	case taskFieldPriority:
		if dir != 0 {
			v.editPriority = cycle(models.Priorities, v.editPriority, dir)
		}
		return v, nil
	case taskFieldProject:
		if dir != 0 {
			v.editProject = cycle(v.projectOptions(), v.editProject, dir)
		}
		return v, nil
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case taskFieldTitle:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case taskFieldDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case taskFieldDue:
		v.editDue, cmd = v.editDue.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) ensureVisible() {
	visibleItems := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

// visibleItems is how many tasks fit: each is 2 lines plus a margin
func (v *TaskListView) visibleItems() int {
	availableHeight := max(v.height-14, 3)
	return max(availableHeight/3, 1)
}

// startEditTask opens the form, empty for a new task or filled from t.
// A new task starts in the project the list is filtered to.
func (v *TaskListView) startEditTask(t *models.Task) {
	v.editing = true
	v.formErr = ""
	v.editFocusIdx = taskFieldTitle
	v.editingID = 0
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editDue.Reset()
	v.editStatus = models.TaskPending
	v.editPriority = models.PriorityMedium
	v.editProject = v.projectFilter

	if t != nil {
		v.editingID = t.ID
		v.editTitle.SetValue(t.Title)
		v.editDesc.SetValue(t.Description)
		v.editStatus = t.Status
		v.editPriority = t.Priority
		v.editProject = 0
		if t.ProjectID != nil {
			v.editProject = *t.ProjectID
		}
		if t.DueDate != nil {
			v.editDue.SetValue(t.DueDate.String())
		}
	}
	v.updateEditFocus()
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editDue.Blur()

	switch v.editFocusIdx {
	case taskFieldTitle:
		v.editTitle.Focus()
	case taskFieldDesc:
		v.editDesc.Focus()
	case taskFieldDue:
		v.editDue.Focus()
	}
}

// taskInput builds the request from the form. Empty project and due date
// are left out of the request.
func (v *TaskListView) taskInput() (models.TaskInput, string) {
	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		return models.TaskInput{}, "Title is required"
	}
	in := models.TaskInput{
		Title:       models.Ptr(title),
		Description: models.Ptr(strings.TrimSpace(v.editDesc.Value())),
		Status:      models.Ptr(v.editStatus),
		Priority:    models.Ptr(v.editPriority),
	}
	if v.editProject != 0 {
		in.ProjectID = models.Ptr(v.editProject)
	}
	if due := strings.TrimSpace(v.editDue.Value()); due != "" {
		d, err := time.Parse(models.DateLayout, due)
		if err != nil {
			return models.TaskInput{}, "Due date must look like " + models.DateLayout
		}
		in.DueDate = &models.Date{Time: d}
	}
	return in, ""
}

func (v *TaskListView) saveTask() tea.Cmd {
	in, problem := v.taskInput()
	if problem != "" {
		v.formErr = problem
		return nil
	}

	v.saving = true
	v.formErr = ""
	id := v.editingID
	return func() tea.Msg {
		var err error
		if id == 0 {
			_, err = v.collections.CreateTask(context.Background(), in)
		} else {
			_, err = v.collections.UpdateTask(context.Background(), id, in)
		}
		return savedMsg{err: err}
	}
}

func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	var b strings.Builder

	// Header with search and filters
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	// Task list
	b.WriteString(v.renderTaskList())

	// Help
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	isNarrow := contentWidth < 60

	// Search input - dynamic width
	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	searchWidth := clamp(contentWidth-8, 10, 30)
	searchBox := searchStyle.Width(searchWidth).Render(v.searchInput.View())

	statusLabel := "All"
	if v.statusFilter != "" {
		statusLabel = v.statusFilter.Label()
	}
	priorityLabel := "All"
	if v.priorityFilt != "" {
		priorityLabel = string(v.priorityFilt)
	}

	filters := []string{
		"status: " + statusLabel,
		"priority: " + priorityLabel,
		"project: " + v.projectName(v.projectFilter, "All"),
		"sort: " + v.sortKey.Label(),
	}
	filterLine := s.TitleMuted.Render(strings.Join(filters, " • "))

	title := s.Title.Render(fmt.Sprintf("Tasks (%d of %d)", len(v.visible), len(v.data.Tasks)))

	if isNarrow {
		return lipgloss.JoinVertical(lipgloss.Left, title, searchBox, filterLine)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", searchBox),
		filterLine,
	)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if v.data.Loading && len(v.data.Tasks) == 0 {
		return s.TitleMuted.Render("Loading...")
	}
	if len(v.data.Tasks) == 0 {
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}
	if len(v.visible) == 0 {
		return s.TitleMuted.Render("No tasks found. Try adjusting your filters or search terms.")
	}

	var items []string
	endIdx := min(v.scrollY+v.visibleItems(), len(v.visible))

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.visible[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	// Title line with priority and status badges
	titleLine := strings.Join([]string{
		task.Title,
		s.RenderBadge(string(task.Priority), styles.PriorityColor(task.Priority)),
		s.RenderBadge(task.Status.Label(), styles.TaskStatusColor(task.Status)),
	}, " ")

	// Detail line: project and due date
	detail := models.ProjectLabel(task, v.data.Projects)
	if task.DueDate != nil {
		detail += " • due " + task.DueDate.String()
	}
	if models.Overdue(task, v.now()) {
		detail += " " + s.Overdue.Render("OVERDUE")
	}

	// Apply styling based on selection state
	var titleStyle, detailStyle lipgloss.Style
	if selected {
		titleStyle = s.ListSelected.Width(width)
		detailStyle = s.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	} else {
		titleStyle = s.ListItem.Width(width)
		detailStyle = s.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	// Return two-line item with margin
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(titleLine), detailStyle.Render(detail)) + "\n"
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	btnLabel := " Create "
	if v.editingID != 0 {
		formTitle = "Edit Task"
		btnLabel = " Update "
	}
	if v.saving {
		btnLabel = " Saving... "
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	fieldStyle := func(idx int) lipgloss.Style {
		if v.editFocusIdx == idx {
			return s.InputFocused
		}
		return s.Input
	}
	choice := func(label string, color lipgloss.Color) string {
		return "◀ " + lipgloss.NewStyle().Foreground(color).Render(label) + " ▶"
	}
	btnStyle := s.Button
	if v.editFocusIdx == taskFieldSave {
		btnStyle = s.ButtonFocused
	}

	rows := []string{
		s.Title.Render(formTitle),
		"",
		"Title:",
		fieldStyle(taskFieldTitle).Width(inputWidth).Render(v.editTitle.View()),
		"Description:",
		fieldStyle(taskFieldDesc).Render(v.editDesc.View()),
		"Status:",
		fieldStyle(taskFieldStatus).Width(inputWidth).Render(choice(v.editStatus.Label(), styles.TaskStatusColor(v.editStatus))),
		"Priority:",
		fieldStyle(taskFieldPriority).Width(inputWidth).Render(choice(string(v.editPriority), styles.PriorityColor(v.editPriority))),
		"Project:",
		fieldStyle(taskFieldProject).Width(inputWidth).Render(choice(v.projectName(v.editProject, models.NoProjectLabel), styles.Current.Foreground)),
		"Due date:",
		fieldStyle(taskFieldDue).Width(inputWidth).Render(v.editDue.View()),
		"",
		btnStyle.Render(btnLabel),
		"",
	}
	if v.formErr != "" {
		rows = append(rows, s.FieldError.Render(v.formErr), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ←→: change • Ctrl+S: save • Esc: cancel"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s edit • %s new • %s del • %s search • %s status • %s priority • %s project • %s sort • %s clear • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("/"),
			v.styles.HelpKey.Render("s"),
			v.styles.HelpKey.Render("p"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("o"),
			v.styles.HelpKey.Render("x"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵/e") + "    edit task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("/") + "      search",
		s.HelpKey.Render("s") + "      filter by status",
		s.HelpKey.Render("p") + "      filter by priority",
		s.HelpKey.Render("f") + "      filter by project",
		s.HelpKey.Render("o") + "      change sort order",
		s.HelpKey.Render("x") + "      clear filters",
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

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	rows := []string{
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("Are you sure you want to delete %q?", v.deleteTarget.Title)),
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
