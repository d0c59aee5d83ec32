package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding the views react to
type KeyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Enter   key.Binding
	Tab     key.Binding
	BackTab key.Binding
	Save    key.Binding

	New    key.Binding
	Edit   key.Binding
	Delete key.Binding
	Search key.Binding

	// Task list filters
	Status   key.Binding
	Priority key.Binding
	Project  key.Binding
	Sort     key.Binding
	Clear    key.Binding

	// Navigation between pages
	Projects key.Binding
	Tasks    key.Binding
	Profile  key.Binding
	Refresh  key.Binding
	Logout   key.Binding

	SwitchMode key.Binding
	Help       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "previous")),
		Right:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next")),
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "select")),
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		BackTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),

		New:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),

		Status:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
		Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
		Project:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "project")),
		Sort:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort")),
		Clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear filters")),

		Projects: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "projects")),
		Tasks:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "tasks")),
		Profile:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "profile")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),

		SwitchMode: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "login/register")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}
