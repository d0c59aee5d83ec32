package views

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/ui/keys"
	"github.com/alaincodes24/taskdeck/internal/ui/styles"
)

// Form fields, in tab order. Name and confirmation only exist when registering.
const (
	fieldName = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldSubmit
)

type authDoneMsg struct {
	err error
}

// LoginView signs in an existing user or registers a new one
type LoginView struct {
	sessions Sessions
	styles   *styles.Styles
	keys     keys.KeyMap

	width  int
	height int

	registering bool
	submitting  bool
	focusIdx    int
	errMsg      string

	name     textinput.Model
	email    textinput.Model
	password textinput.Model
	confirm  textinput.Model
}

func NewLoginView(sessions Sessions) *LoginView {
	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 100

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 200

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 200
	password.EchoMode = textinput.EchoPassword

	confirm := textinput.New()
	confirm.Placeholder = "Confirm password"
	confirm.CharLimit = 200
	confirm.EchoMode = textinput.EchoPassword

	v := &LoginView{
		sessions: sessions,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		name:     name,
		email:    email,
		password: password,
		confirm:  confirm,
	}
	v.Reset()
	return v
}

// Reset clears the form and puts the cursor in the email field
func (v *LoginView) Reset() {
	v.submitting = false
	v.errMsg = ""
	v.password.Reset()
	v.confirm.Reset()
	v.focusIdx = fieldEmail
	v.updateFocus()
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

// Capturing is always true: every key goes into the form
func (v *LoginView) Capturing() bool { return true }

func (v *LoginView) fields() []int {
	if v.registering {
		return []int{fieldName, fieldEmail, fieldPassword, fieldConfirm, fieldSubmit}
	}
	return []int{fieldEmail, fieldPassword, fieldSubmit}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case authDoneMsg:
		v.submitting = false
		v.errMsg = ""
		if msg.err != nil {
			v.errMsg = errorText(msg.err)
		}
		return v, nil

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}
		return v.updateForm(msg)
	}
	return v, nil
}

func (v *LoginView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return v, tea.Quit

	case key.Matches(msg, v.keys.SwitchMode):
		v.registering = !v.registering
		v.errMsg = ""
		v.focusIdx = v.fields()[0]
		v.updateFocus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Tab), msg.Type == tea.KeyDown:
		v.focusIdx = cycle(v.fields(), v.focusIdx, 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.BackTab), msg.Type == tea.KeyUp:
		v.focusIdx = cycle(v.fields(), v.focusIdx, -1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.submit()

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx == fieldSubmit {
			return v, v.submit()
		}
		v.focusIdx = cycle(v.fields(), v.focusIdx, 1)
		v.updateFocus()
		return v, nil
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case fieldName:
		v.name, cmd = v.name.Update(msg)
	case fieldEmail:
		v.email, cmd = v.email.Update(msg)
	case fieldPassword:
		v.password, cmd = v.password.Update(msg)
	case fieldConfirm:
		v.confirm, cmd = v.confirm.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) updateFocus() {
	v.name.Blur()
	v.email.Blur()
	v.password.Blur()
	v.confirm.Blur()

	switch v.focusIdx {
	case fieldName:
		v.name.Focus()
	case fieldEmail:
		v.email.Focus()
	case fieldPassword:
		v.password.Focus()
	case fieldConfirm:
		v.confirm.Focus()
	}
}

// validate checks the form before anything is sent
func (v *LoginView) validate() string {
	email := strings.TrimSpace(v.email.Value())
	if v.registering && strings.TrimSpace(v.name.Value()) == "" {
		return "Name is required"
	}
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Enter a valid email address"
	}
	if v.password.Value() == "" {
		return "Password is required"
	}
	if v.registering && v.password.Value() != v.confirm.Value() {
		return "Passwords do not match"
	}
	return ""
}

func (v *LoginView) submit() tea.Cmd {
	if problem := v.validate(); problem != "" {
		v.errMsg = problem
		return nil
	}
	v.submitting = true
	v.errMsg = ""

	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if !v.registering {
		return func() tea.Msg {
			_, err := v.sessions.Login(context.Background(), email, password)
			return authDoneMsg{err: err}
		}
	}

	in := models.RegisterInput{
		Name:                 strings.TrimSpace(v.name.Value()),
		Email:                email,
		Password:             password,
		PasswordConfirmation: v.confirm.Value(),
	}
	return func() tea.Msg {
		_, err := v.sessions.Register(context.Background(), in)
		return authDoneMsg{err: err}
	}
}

// errorText is the message a failed store call showed the user
func errorText(err error) string {
	var opErr *api.OpError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	field := func(idx int, label string, in textinput.Model) []string {
		st := s.Input
		if v.focusIdx == idx {
			st = s.InputFocused
		}
		return []string{label, st.Width(inputWidth).Render(in.View()), ""}
	}

	heading, button, hint := "Sign in", " Sign in ", "Ctrl+R: create an account"
	if v.registering {
		heading, button, hint = "Create account", " Register ", "Ctrl+R: back to sign in"
	}
	if v.submitting {
		button = " Please wait... "
	}

	rows := []string{s.Title.Render(heading), ""}
	if v.registering {
		rows = append(rows, field(fieldName, "Name:", v.name)...)
	}
	rows = append(rows, field(fieldEmail, "Email:", v.email)...)
	rows = append(rows, field(fieldPassword, "Password:", v.password)...)
	if v.registering {
		rows = append(rows, field(fieldConfirm, "Confirm password:", v.confirm)...)
	}

	btnStyle := s.Button
	if v.focusIdx == fieldSubmit {
		btnStyle = s.ButtonFocused
	}
	rows = append(rows, btnStyle.Render(button), "")
	if v.errMsg != "" {
		rows = append(rows, s.FieldError.Render(v.errMsg), "")
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ↵: submit • "+hint+" • Ctrl+C: quit"))

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
