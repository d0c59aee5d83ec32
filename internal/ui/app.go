package ui

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/notify"
	"github.com/alaincodes24/taskdeck/internal/session"
	"github.com/alaincodes24/taskdeck/internal/ui/keys"
	"github.com/alaincodes24/taskdeck/internal/ui/styles"
	"github.com/alaincodes24/taskdeck/internal/ui/views"
)

// LastViewKey is the durable record naming the page shown last
const LastViewKey = "last_view"

const toastDuration = 4 * time.Second

// Currently active page
type Page int

const (
	PageLogin Page = iota
	PageProjects
	PageTasks
	PageProfile
)

var tabLabels = map[Page]string{
	PageProjects: "1 Projects",
	PageTasks:    "2 Tasks",
	PageProfile:  "3 Profile",
}

var pageNames = map[Page]string{
	PageProjects: "projects",
	PageTasks:    "tasks",
	PageProfile:  "profile",
}

func pageByName(name string) (Page, bool) {
	for p, n := range pageNames {
		if n == name {
			return p, true
		}
	}
	return 0, false
}

// SessionStore is the session store as the app uses it
type SessionStore interface {
	views.Sessions
	Restore(ctx context.Context)
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// CollectionStore is the collection store as the app uses it
type CollectionStore interface {
	views.Collections
	Subscribe(fn func(collection.Snapshot)) (unsubscribe func())
}

// Settings keeps small durable values between runs
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SessionMsg reports a change of the session state
type SessionMsg struct {
	Snapshot session.Snapshot
}

type restoredMsg struct{}

type lastViewMsg struct {
	page Page
}

type clearToastMsg struct {
	seq int
}

type Deps struct {
	Sessions    SessionStore
	Collections CollectionStore
	Settings    Settings
	Events      *Events
	Logger      *log.Logger
}

type App struct {
	deps   Deps
	styles *styles.Styles
	keys   keys.KeyMap

	restoring bool
	userID    int64 // 0 while signed out
	current   Page

	login       *views.LoginView
	projectList *views.ProjectListView
	taskList    *views.TaskListView
	profile     *views.ProfileView

	toast    *notify.Notice
	toastSeq int

	unsubscribe []func()

	width  int
	height int
}

// NewApp wires the store callbacks into deps.Events. Call Close when the
// program has exited.
func NewApp(deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	a := &App{
		deps:      deps,
		styles:    styles.NewStyles(),
		keys:      keys.DefaultKeyMap(),
		restoring: true,
		current:   PageLogin,
		login:     views.NewLoginView(deps.Sessions),
	}
	a.buildPages()

	events := deps.Events
	a.unsubscribe = append(a.unsubscribe,
		deps.Sessions.Subscribe(func(s session.Snapshot) {
			events.Send(SessionMsg{Snapshot: s})
		}),
		deps.Collections.Subscribe(func(s collection.Snapshot) {
			events.Send(views.DataMsg{Snapshot: s})
		}),
	)
	return a
}

func (a *App) Close() {
	for _, fn := range a.unsubscribe {
		fn()
	}
	a.deps.Events.Close()
}

// buildPages starts the signed in pages from scratch
func (a *App) buildPages() {
	a.projectList = views.NewProjectListView(a.deps.Collections)
	a.taskList = views.NewTaskListView(a.deps.Collections)
	a.profile = views.NewProfileView(a.deps.Sessions, a.deps.Collections)
}

func (a *App) Init() tea.Cmd {
	sessions := a.deps.Sessions
	return tea.Batch(
		a.deps.Events.listen(),
		a.login.Init(),
		func() tea.Msg {
			sessions.Restore(context.Background())
			return restoredMsg{}
		},
	)
}

func (a *App) page(p Page) views.Page {
	switch p {
	case PageProjects:
		return a.projectList
	case PageTasks:
		return a.taskList
	case PageProfile:
		return a.profile
	}
	return a.login
}

// pageSize is the area left to a page below the nav bar and above the toast
func (a *App) pageSize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: max(a.height-2, 0)}
}

// showPage switches pages and records the choice
func (a *App) showPage(p Page) tea.Cmd {
	a.current = p
	name, ok := pageNames[p]
	if !ok {
		return nil
	}
	settings, logger := a.deps.Settings, a.deps.Logger
	return func() tea.Msg {
		if err := settings.Set(context.Background(), LastViewKey, name); err != nil {
			logger.Printf("save %s: %v", LastViewKey, err)
		}
		return nil
	}
}

// sessionChanged moves between the login page and the signed in pages
func (a *App) sessionChanged(snap session.Snapshot) tea.Cmd {
	if !snap.IsAuthenticated || snap.User == nil {
		if a.userID == 0 && a.current == PageLogin {
			return nil
		}
		a.userID = 0
		a.current = PageLogin
		a.login.Reset()
		return a.login.Init()
	}
	if snap.User.ID == a.userID {
		return nil
	}

	// A new user gets fresh pages
	a.userID = snap.User.ID
	a.buildPages()
	size := a.pageSize()
	cmds := []tea.Cmd{a.projectList.Init(), a.taskList.Init(), a.profile.Init()}
	for _, p := range []views.Page{a.projectList, a.taskList, a.profile} {
		p.Update(size)
	}
	a.current = PageProjects

	settings, logger := a.deps.Settings, a.deps.Logger
	cmds = append(cmds, func() tea.Msg {
		name, err := settings.Get(context.Background(), LastViewKey)
		if err != nil {
			logger.Printf("load %s: %v", LastViewKey, err)
			return nil
		}
		if p, ok := pageByName(name); ok {
			return lastViewMsg{page: p}
		}
		return nil
	})
	return tea.Batch(cmds...)
}

func (a *App) showToast(n notify.Notice) tea.Cmd {
	a.toast = &n
	a.toastSeq++
	seq := a.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		_, cmd := a.Update(msg.msg)
		return a, tea.Batch(cmd, a.deps.Events.listen())

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		size := a.pageSize()
		// Every page keeps its size, even while hidden
		a.login.Update(size)
		a.projectList.Update(size)
		a.taskList.Update(size)
		a.profile.Update(size)
		return a, nil

	case restoredMsg:
		a.restoring = false
		return a, a.sessionChanged(a.deps.Sessions.Snapshot())

	case SessionMsg:
		if a.restoring {
			return a, nil
		}
		return a, a.sessionChanged(msg.Snapshot)

	case views.DataMsg:
		var cmds []tea.Cmd
		for _, p := range []views.Page{a.projectList, a.taskList, a.profile} {
			_, cmd := p.Update(msg)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case lastViewMsg:
		if a.userID != 0 && a.current == PageProjects {
			a.current = msg.page
		}
		return a, nil

	case views.OpenProject:
		a.taskList.ShowProject(msg.ID)
		return a, a.showPage(PageTasks)

	case NoticeMsg:
		return a, a.showToast(msg.Notice)

	case clearToastMsg:
		if msg.seq == a.toastSeq {
			a.toast = nil
		}
		return a, nil

	case tea.KeyMsg:
		if a.restoring {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			return a, nil
		}
		if a.current != PageLogin && !a.page(a.current).Capturing() {
			if cmd, ok := a.globalKey(msg); ok {
				return a, cmd
			}
		}
	}

	_, cmd := a.page(a.current).Update(msg)
	return a, cmd
}

// globalKey handles the shortcuts shared by all signed in pages
func (a *App) globalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, a.keys.Projects):
		return a.showPage(PageProjects), true
	case key.Matches(msg, a.keys.Tasks):
		return a.showPage(PageTasks), true
	case key.Matches(msg, a.keys.Profile):
		return a.showPage(PageProfile), true
	case key.Matches(msg, a.keys.Refresh):
		collections, logger := a.deps.Collections, a.deps.Logger
		return func() tea.Msg {
			if err := collections.Refresh(context.Background()); err != nil {
				logger.Printf("refresh: %v", err)
			}
			return nil
		}, true
	}
	return nil, false
}

func (a *App) View() string {
	if a.restoring {
		return lipgloss.Place(a.width, a.height,
			lipgloss.Center, lipgloss.Center,
			a.styles.TitleMuted.Render("Restoring session..."),
		)
	}

	body := a.page(a.current).View()
	if a.current == PageLogin {
		return lipgloss.JoinVertical(lipgloss.Left, "", body, a.renderToast())
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.renderNav(), body, a.renderToast())
}

func (a *App) renderNav() string {
	s := a.styles
	var tabs []string
	for _, p := range []Page{PageProjects, PageTasks, PageProfile} {
		if p == a.current {
			tabs = append(tabs, s.NavTabActive.Render(tabLabels[p]))
		} else {
			tabs = append(tabs, s.NavTab.Render(tabLabels[p]))
		}
	}
	nav := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	if user := a.deps.Sessions.Snapshot().User; user != nil {
		gap := max(a.width-lipgloss.Width(nav)-lipgloss.Width(user.Name)-2, 1)
		nav += lipgloss.NewStyle().Width(gap).Render("") + s.StatusBar.Render(user.Name)
	}
	return nav
}

func (a *App) renderToast() string {
	if a.toast == nil {
		return ""
	}
	st := a.styles.ToastInfo
	switch a.toast.Level {
	case notify.Success:
		st = a.styles.ToastSuccess
	case notify.Error:
		st = a.styles.ToastError
	}
	text := a.toast.Title
	if a.toast.Description != "" {
		text += ": " + a.toast.Description
	}
	return lipgloss.PlaceHorizontal(a.width, lipgloss.Center, st.Render(text))
}
