package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
)

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	columnHeaderStyle  = lipgloss.NewStyle().Bold(true)
	activeHeaderStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("237"))
	clickableCellStyle = lipgloss.NewStyle().Underline(true)
	readOnlyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	sidebarItemStyle   = lipgloss.NewStyle().Padding(0, 1)
	sidebarActiveStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
				Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	sidebarHiddenStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const unauthorizedText = "You are not authorized to view this page."

type toastKind int

const (
	toastSuccess toastKind = iota
	toastError
	toastInfo
)

// toastDurations is how long each kind of toast stays on the status line.
var toastDurations = map[toastKind]time.Duration{
	toastSuccess: 2500 * time.Millisecond,
	toastError:   4 * time.Second,
	toastInfo:    2500 * time.Millisecond,
}

type toast struct {
	kind toastKind
	text string
	id   int
}

type toastExpiredMsg struct{ id int }

// toastQueue collects toasts raised by the screens, from any goroutine,
// until the update loop drains them.
type toastQueue struct {
	mu      sync.Mutex
	pending []toast
}

func (q *toastQueue) push(kind toastKind, msg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, toast{kind: kind, text: msg})
}

func (q *toastQueue) Success(msg string) { q.push(toastSuccess, msg) }
func (q *toastQueue) Error(msg string)   { q.push(toastError, msg) }
func (q *toastQueue) Info(msg string)    { q.push(toastInfo, msg) }

func (q *toastQueue) drain() []toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Console input modes.
type inputMode int

const (
	modeTable inputMode = iota
	modeSearch
	modeGoto
	modeDialog
	modeConfirm
)

type loginDoneMsg struct {
	auth core.Authenticated
	err  error
}

type deletedMsg struct {
	section core.Section
	message string
	err     error
}

type searchSettledMsg struct {
	section core.Section
	seq     uint64
	query   string
}

// consoleDeps are the services the console drives.
type consoleDeps struct {
	Auth     core.AuthService
	Guard    *core.Guard
	Persons  *core.PersonScreen
	Projects *core.ProjectScreen
	Tasks    *core.TaskScreen
	Toasts   *toastQueue
	Debounce time.Duration
}

type consoleModel struct {
	auth     core.AuthService
	nav      *core.Navigator
	sections map[core.Section]section
	toasts   *toastQueue
	debounce time.Duration

	width  int
	height int

	mode      inputMode
	login     loginForm
	loggingIn bool
	input     textinput.Model
	dialog    *dialogForm
	confirm   *pendingConfirm

	toast    *toast
	toastSeq int
}

func newConsoleModel(deps consoleDeps) consoleModel {
	if deps.Toasts == nil {
		deps.Toasts = &toastQueue{}
	}
	m := consoleModel{
		auth:     deps.Auth,
		nav:      core.NewNavigator(deps.Guard),
		toasts:   deps.Toasts,
		debounce: deps.Debounce,
		sections: map[core.Section]section{
			core.SectionProjects: projectSection(deps.Projects),
			core.SectionPersons:  personSection(deps.Persons),
			core.SectionTasks:    taskSection(deps.Tasks),
		},
		login: newLoginForm(""),
		input: newInput(),
	}
	m.checkView()
	return m
}

// checkView sends a session that may not view the current section to the
// unauthorized screen.
func (m consoleModel) checkView() {
	loc := m.nav.Current()
	if sec, ok := m.sections[loc.Section]; ok && !sec.canView() {
		m.nav.Go(core.PathUnauthorized)
	}
}

func (m consoleModel) Init() tea.Cmd {
	sec, ok := m.active()
	if !ok {
		return nil
	}
	sec.refresh()
	return sec.load(true)
}

func (m consoleModel) active() (section, bool) {
	sec, ok := m.sections[m.nav.Current().Section]
	return sec, ok
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m, tcmd := m.flushToasts()
	return m, tea.Batch(cmd, tcmd)
}

func (m consoleModel) update(msg tea.Msg) (consoleModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case loginDoneMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.toasts.Error(core.ErrorMessage(msg.err, "Login failed"))
			user, _ := m.login.credentials()
			m.login = newLoginForm(user)
			return m, nil
		}
		recordSession(core.EventLogin, "logged in as "+msg.auth.Username, msg.auth)
		m.toasts.Success("Logged in as " + msg.auth.Username)
		return m.enter(m.nav.Refresh())

	case fetchedMsg:
		applied, moved := msg.complete()
		sec, ok := m.sections[msg.section]
		if !applied || !ok {
			return m, nil
		}
		if msg.err != nil {
			m.toasts.Error(sec.errText())
			return m, nil
		}
		if moved {
			return m, sec.load(false)
		}
		return m, nil

	case lookedUpMsg:
		msg.apply()
		return m, nil

	case savedMsg:
		if m.dialog == nil || m.dialog.d != msg.dialog {
			return m, nil
		}
		res := msg.dialog.Finish(msg.payload, msg.err)
		return m.closeDialog(res)

	case deletedMsg:
		if msg.err != nil {
			text := core.ErrorMessage(msg.err, core.MsgDeleteFail)
			m.toasts.Error(text)
			if sec, ok := m.sections[msg.section]; ok {
				sec.setError(text)
			}
			return m, nil
		}
		text := msg.message
		if text == "" {
			text = core.MsgDeleted
		}
		m.toasts.Success(text)
		if sec, ok := m.sections[msg.section]; ok {
			return m, sec.load(true)
		}
		return m, nil

	case searchSettledMsg:
		sec, ok := m.sections[msg.section]
		if ok && sec.searchSettled(msg.seq, msg.query) {
			return m, sec.load(false)
		}
		return m, nil

	case toastExpiredMsg:
		if m.toast != nil && m.toast.id == msg.id {
			m.toast = nil
		}
		return m, nil
	}
	return m, nil
}

// flushToasts shows the latest queued toast and schedules its expiry.
func (m consoleModel) flushToasts() (consoleModel, tea.Cmd) {
	pending := m.toasts.drain()
	if len(pending) == 0 {
		return m, nil
	}
	t := pending[len(pending)-1]
	m.toastSeq++
	t.id = m.toastSeq
	m.toast = &t
	id := t.id
	return m, tea.Tick(toastDurations[t.kind], func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	switch m.nav.Current().Path {
	case core.PathLogin:
		return m.loginKey(msg)
	case core.PathUnauthorized:
		return m.navKey(msg)
	}
	if !m.auth.IsLoggedIn() {
		m.toasts.Info("Session expired, please log in again")
		return m.enter(m.nav.Refresh())
	}

	switch m.mode {
	case modeDialog:
		return m.dialogKey(msg)
	case modeConfirm:
		return m.confirmKey(msg)
	case modeSearch:
		return m.searchKey(msg)
	case modeGoto:
		return m.gotoKey(msg)
	}
	return m.tableKey(msg)
}

func (m consoleModel) loginKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}
	if msg.String() == "esc" {
		return m, tea.Quit
	}
	var submit bool
	var cmd tea.Cmd
	m.login, cmd, submit = m.login.update(msg)
	if !submit {
		return m, cmd
	}
	user, pass := m.login.credentials()
	m.loggingIn = true
	auth := m.auth
	return m, func() tea.Msg {
		a, err := auth.Login(context.Background(), user, pass)
		return loginDoneMsg{auth: a, err: err}
	}
}

// navKey handles the keys that work on every dashboard screen.
func (m consoleModel) navKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		return m.enter(m.nav.GoSection(m.nextSection(1)))
	case "shift+tab":
		return m.enter(m.nav.GoSection(m.nextSection(-1)))
	case "1", "2", "3":
		i := int(msg.String()[0] - '1')
		return m.enter(m.nav.GoSection(core.Sections[i]))
	case ":":
		m.mode = modeGoto
		m.input = newInput()
		m.input.Placeholder = "path, section or ID"
		m.input.Focus()
		return m, nil
	case "L":
		return m.logout()
	}
	return m, nil
}

func (m consoleModel) nextSection(delta int) core.Section {
	cur := m.nav.Current().Section
	for i, s := range core.Sections {
		if s == cur {
			n := len(core.Sections)
			return core.Sections[((i+delta)%n+n)%n]
		}
	}
	return core.Sections[0]
}

func (m consoleModel) logout() (consoleModel, tea.Cmd) {
	a, wasIn := m.auth.Current().(core.Authenticated)
	if err := m.auth.Logout(); err != nil {
		m.toasts.Error(err.Error())
		return m, nil
	}
	if wasIn {
		recordSession(core.EventLogout, "logged out", a)
	}
	m.mode = modeTable
	m.dialog = nil
	m.confirm = nil
	m.toasts.Info("Logged out")
	return m.enter(m.nav.Refresh())
}

// enter shows loc, loading the section table or the record it names.
func (m consoleModel) enter(loc core.Location) (consoleModel, tea.Cmd) {
	m.mode = modeTable
	switch loc.Path {
	case core.PathLogin:
		m.login = newLoginForm("")
		return m, nil
	case core.PathUnauthorized:
		return m, nil
	}
	sec, ok := m.sections[loc.Section]
	if !ok {
		return m, nil
	}
	if !sec.canView() {
		m.nav.Go(core.PathUnauthorized)
		return m, nil
	}
	sec.refresh()

	switch {
	case loc.Delete:
		p, err := sec.confirmID(loc.ID)
		if err == nil && p != nil {
			m.confirm = p
			m.mode = modeConfirm
		}
		return m, sec.load(true)
	case loc.ID != "":
		return m, sec.lookup(loc.ID)
	}
	return m, sec.load(true)
}

func (m consoleModel) tableKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	sec, ok := m.active()
	if !ok {
		return m.navKey(msg)
	}
	row, col := sec.cursor()

	switch msg.String() {
	case "up", "k":
		sec.move(-1, 0)
	case "down", "j":
		sec.move(1, 0)
	case "left", "h":
		sec.move(0, -1)
	case "right", "l":
		sec.move(0, 1)

	case "enter":
		d, err := sec.open(row, col)
		if err != nil || d == nil {
			return m, nil
		}
		return m.openDialog(d, sec.id()), nil
	case "n", "a":
		d, shown, err := sec.create()
		if !shown || err != nil || d == nil {
			return m, nil
		}
		return m.openDialog(d, sec.id()), nil
	case "d", "delete":
		p, err := sec.confirmRow(row)
		if err != nil || p == nil {
			return m, nil
		}
		m.confirm = p
		m.mode = modeConfirm
		return m, nil

	case "]", "pgdown":
		if sec.nextPage() {
			return m, sec.load(false)
		}
	case "[", "pgup":
		if sec.prevPage() {
			return m, sec.load(false)
		}
	case "z":
		if sec.cyclePageSize() {
			return m, sec.load(false)
		}
	case "s":
		if sec.toggleSort(col) {
			return m, sec.load(false)
		}
	case "r":
		return m, sec.load(true)
	case "/":
		m.mode = modeSearch
		m.input = newInput()
		m.input.Placeholder = "search"
		m.input.SetValue(sec.search())
		m.input.Focus()
		return m, nil
	case "g":
		m.mode = modeGoto
		m.input = newInput()
		m.input.Placeholder = "ID"
		m.input.Focus()
		return m, nil
	default:
		return m.navKey(msg)
	}
	return m, nil
}

func (m consoleModel) searchKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	sec, ok := m.active()
	if !ok {
		m.mode = modeTable
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.mode = modeTable
		return m, nil
	case "enter":
		m.mode = modeTable
		sec.setSearch(m.input.Value())
		return m, sec.load(false)
	}
	before := m.input.Value()
	m.input, _ = m.input.Update(msg)
	q := m.input.Value()
	if q == before {
		return m, nil
	}
	seq := sec.searchInput()
	id := sec.id()
	return m, tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return searchSettledMsg{section: id, seq: seq, query: q}
	})
}

// gotoKey reads a path ("/dashboard/tasks/7"), a section keyword ("tasks")
// or a record ID in the current section.
func (m consoleModel) gotoKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeTable
		return m, nil
	case "enter":
		m.mode = modeTable
		q := strings.TrimSpace(m.input.Value())
		switch {
		case q == "":
			return m, nil
		case strings.HasPrefix(q, "/"):
			return m.enter(m.nav.Go(q))
		}
		if loc, ok := m.nav.Search(q); ok {
			return m.enter(loc)
		}
		sec, ok := m.active()
		if !ok {
			return m, nil
		}
		return m.enter(m.nav.Go(sec.id().Path() + "/" + q))
	}
	m.input, _ = m.input.Update(msg)
	return m, nil
}

func (m consoleModel) openDialog(d *core.Dialog, sec core.Section) consoleModel {
	m.dialog = newDialogForm(d, sec)
	m.mode = modeDialog
	return m
}

func (m consoleModel) dialogKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	if m.dialog == nil {
		m.mode = modeTable
		return m, nil
	}
	cmd, closed := m.dialog.update(msg)
	if closed {
		return m.closeDialog(m.dialog.d.Result())
	}
	return m, cmd
}

// closeDialog hands the result to the owning screen and reloads its table
// when asked to.
func (m consoleModel) closeDialog(res core.Result) (consoleModel, tea.Cmd) {
	var sec section
	if m.dialog != nil {
		sec = m.sections[m.dialog.section]
	}
	m.dialog = nil
	m.mode = modeTable
	if sec == nil {
		return m, nil
	}
	if sec.handleClose(res) {
		return m, sec.load(true)
	}
	return m, nil
}

func (m consoleModel) confirmKey(msg tea.KeyMsg) (consoleModel, tea.Cmd) {
	p := m.confirm
	switch msg.String() {
	case "y", "Y", "enter":
		m.confirm = nil
		m.mode = modeTable
		if p == nil {
			return m, nil
		}
		return m, func() tea.Msg {
			text, err := p.run(context.Background())
			return deletedMsg{section: p.section, message: text, err: err}
		}
	case "n", "N", "esc":
		m.confirm = nil
		m.mode = modeTable
	}
	return m, nil
}

func (m consoleModel) View() string {
	title := titleStyle.Render(" PM Console ")
	switch m.nav.Current().Path {
	case core.PathLogin:
		body := m.login.view()
		if m.loggingIn {
			body += "\nLogging in..."
		}
		return fmt.Sprintf("%s\n\n%s\n%s\n%s", title, panelStyle.Render(body), m.statusLine(),
			helpStyle.Render("tab: next field | enter: log in | esc: quit"))
	}

	var main string
	if sec, ok := m.active(); ok && m.nav.Current().Path != core.PathUnauthorized {
		main = sec.view()
	} else {
		main = errorStyle.Render(unauthorizedText)
	}
	switch {
	case m.mode == modeDialog && m.dialog != nil:
		main = m.dialog.view()
	case m.mode == modeConfirm && m.confirm != nil:
		c := m.confirm.spec
		main = panelStyle.Render(fmt.Sprintf("%s\n\n%s\n\n%s", headerStyle.Render(c.Title), c.Message,
			helpStyle.Render(fmt.Sprintf("y/enter: %s | n/esc: %s", c.OKText, c.CancelText))))
	case m.mode == modeSearch:
		main = "Search: " + m.input.View() + "\n\n" + main
	case m.mode == modeGoto:
		main = "Go to: " + m.input.View() + "\n\n" + main
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar(), activePanelStyle.Render(main))
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", title, body, m.statusLine(), helpStyle.Render(m.help()))
}

func (m consoleModel) sidebar() string {
	cur := m.nav.Current().Section
	var b strings.Builder
	for i, s := range core.Sections {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		switch {
		case s == cur:
			label = sidebarActiveStyle.Render(label)
		case !m.sections[s].canView():
			label = sidebarHiddenStyle.Render(label)
		default:
			label = sidebarItemStyle.Render(label)
		}
		b.WriteString(label + "\n")
	}
	if a, ok := m.auth.Current().(core.Authenticated); ok {
		name := a.Username
		if name == "" {
			name = a.UserID
		}
		fmt.Fprintf(&b, "\n%s\n%s", name, helpStyle.Render(core.RoleName(a.Role)))
	}
	return panelStyle.Render(b.String())
}

func (m consoleModel) statusLine() string {
	if m.toast == nil {
		return ""
	}
	switch m.toast.kind {
	case toastSuccess:
		return successStyle.Render(m.toast.text)
	case toastError:
		return errorStyle.Render(m.toast.text)
	default:
		return infoStyle.Render(m.toast.text)
	}
}

func (m consoleModel) help() string {
	switch m.mode {
	case modeSearch:
		return "type to search | enter: apply | esc: done"
	case modeGoto:
		return "enter: go | esc: cancel"
	case modeDialog, modeConfirm:
		return ""
	}
	if m.nav.Current().Path == core.PathUnauthorized {
		return "tab: switch section | :: go to | L: log out | q: quit"
	}
	return "tab: section | arrows/hjkl: move | enter: open | n: add | d: delete | [/]: page | s: sort | z: page size | /: search | g: find ID | :: go to | r: reload | L: log out | q: quit"
}

var consoleCmd = &cobra.Command{
	Use:     "console",
	Aliases: []string{"ui", "dashboard"},
	Short:   "Open the interactive console",
	Long: `Open the full-screen console: a sidebar of projects, persons and tasks,
paged and sortable tables, record dialogs and delete confirmations.

Logs go to the log file of the console home while the console is open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Reconfigure != nil {
			if err := reconfigure(Overrides{LogToFile: true}); err != nil {
				return err
			}
		}
		if err := requireServices(); err != nil {
			return err
		}
		guard := Guard
		if guard == nil {
			guard = core.NewGuard(Auth, core.DefaultRoutes())
		}
		debounce := 400 * time.Millisecond
		if Config != nil && Config.Table.SearchDebounce > 0 {
			debounce = Config.Table.SearchDebounce
		}

		queue := &toastQueue{}
		restore := Toasts.Redirect(queue)
		defer restore()

		m := newConsoleModel(consoleDeps{
			Auth:     Auth,
			Guard:    guard,
			Persons:  Persons,
			Projects: Projects,
			Tasks:    Tasks,
			Toasts:   queue,
			Debounce: debounce,
		})
		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running console: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
