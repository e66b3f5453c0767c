package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/pm-console/internal/core"
)

// savedMsg carries the outcome of a dialog save back to the update loop.
type savedMsg struct {
	dialog  *core.Dialog
	payload any
	err     error
}

// dialogForm renders a core.Dialog and routes keys to it. Text and number
// fields are edited in text inputs and written back with Dialog.Set.
type dialogForm struct {
	d       *core.Dialog
	section core.Section
	focus   int
	inputs  map[string]textinput.Model
	err     string
}

// newInput returns a text input with a steady cursor.
func newInput() textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256
	in.Cursor.SetMode(cursor.CursorStatic)
	return in
}

func newDialogForm(d *core.Dialog, sec core.Section) *dialogForm {
	f := &dialogForm{d: d, section: sec, inputs: map[string]textinput.Model{}}
	for _, fd := range d.Fields() {
		if fd.Kind != core.FieldText && fd.Kind != core.FieldNumber {
			continue
		}
		in := newInput()
		in.SetValue(core.CellText(d.Value(fd.Key)))
		f.inputs[fd.Key] = in
	}
	f.setFocus(0)
	return f
}

func (f *dialogForm) current() (core.Field, bool) {
	fields := f.d.VisibleFields()
	if len(fields) == 0 {
		return core.Field{}, false
	}
	f.focus = min(max(f.focus, 0), len(fields)-1)
	return fields[f.focus], true
}

func (f *dialogForm) setFocus(i int) {
	if fd, ok := f.current(); ok {
		if in, ok := f.inputs[fd.Key]; ok {
			in.Blur()
			f.inputs[fd.Key] = in
		}
	}
	n := len(f.d.VisibleFields())
	if n == 0 {
		return
	}
	f.focus = ((i % n) + n) % n
	fd, _ := f.current()
	if in, ok := f.inputs[fd.Key]; ok && f.d.Editable(fd.Key) {
		in.Focus()
		f.inputs[fd.Key] = in
	}
}

// commit writes the focused input back to the dialog.
func (f *dialogForm) commit() error {
	fd, ok := f.current()
	if !ok {
		return nil
	}
	in, ok := f.inputs[fd.Key]
	if !ok || !f.d.Editable(fd.Key) {
		return nil
	}
	return f.d.Set(fd.Key, in.Value())
}

// commitAll writes every visible editable input back.
func (f *dialogForm) commitAll() error {
	for _, fd := range f.d.VisibleFields() {
		in, ok := f.inputs[fd.Key]
		if !ok || !f.d.Editable(fd.Key) {
			continue
		}
		if err := f.d.Set(fd.Key, in.Value()); err != nil {
			return err
		}
	}
	return nil
}

// update handles one key. It returns a save command once the dialog is
// prepared, and closed when the dialog closed without a save.
func (f *dialogForm) update(msg tea.KeyMsg) (cmd tea.Cmd, closed bool) {
	if f.d.Busy() {
		return nil, false
	}
	fd, ok := f.current()
	switch msg.String() {
	case "esc":
		f.d.Cancel()
		return nil, true
	case "tab", "down":
		if f.setErr(f.commit()) {
			f.setFocus(f.focus + 1)
		}
		return nil, false
	case "shift+tab", "up":
		if f.setErr(f.commit()) {
			f.setFocus(f.focus - 1)
		}
		return nil, false
	case "enter":
		return f.submit()
	}
	if !ok || !f.d.Editable(fd.Key) {
		return nil, false
	}

	switch fd.Kind {
	case core.FieldSelect:
		switch msg.String() {
		case "left", "h":
			f.setErr(f.d.Cycle(fd.Key, -1))
		case "right", "l", " ":
			f.setErr(f.d.Cycle(fd.Key, 1))
		}
		f.setFocus(f.focus)
	case core.FieldCheckbox:
		switch msg.String() {
		case " ", "left", "right", "x":
			f.setErr(f.d.Toggle(fd.Key))
		}
	default:
		in := f.inputs[fd.Key]
		in, _ = in.Update(msg)
		f.inputs[fd.Key] = in
	}
	return nil, false
}

func (f *dialogForm) submit() (tea.Cmd, bool) {
	if !f.setErr(f.commitAll()) {
		return nil, false
	}
	payload, ok := f.d.Prepare()
	if !ok {
		return nil, f.d.Closed()
	}
	d := f.d
	return func() tea.Msg {
		out, err := d.RunSave(context.Background(), payload)
		return savedMsg{dialog: d, payload: out, err: err}
	}, false
}

// setErr records err for the message line and reports whether it was nil.
func (f *dialogForm) setErr(err error) bool {
	if err != nil {
		f.err = err.Error()
		return false
	}
	f.err = ""
	return true
}

func (f *dialogForm) view() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(f.d.Title()))
	b.WriteString("\n")

	fields := f.d.VisibleFields()
	width := 0
	for _, fd := range fields {
		width = max(width, len([]rune(fd.Label)))
	}
	for i, fd := range fields {
		marker := "  "
		if i == f.focus {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s  %s", marker, pad(fd.Label+":", width+1), f.fieldText(fd, i == f.focus))
		if !f.d.Editable(fd.Key) {
			line = readOnlyStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	msg := f.err
	if msg == "" {
		msg = f.d.Message()
	}
	if msg != "" {
		b.WriteString("\n" + errorStyle.Render(msg) + "\n")
	}
	b.WriteString("\n")
	if f.d.Busy() {
		b.WriteString("Saving...")
	} else if f.d.Mode() == core.ModeView {
		b.WriteString(helpStyle.Render("enter/esc: close"))
	} else {
		b.WriteString(helpStyle.Render("tab: next field | left/right: change | space: toggle | enter: save | esc: cancel"))
	}
	return panelStyle.Render(b.String())
}

func (f *dialogForm) fieldText(fd core.Field, focused bool) string {
	v := f.d.Value(fd.Key)
	switch fd.Kind {
	case core.FieldSelect:
		label := fd.OptionLabel(v)
		if focused && f.d.Editable(fd.Key) {
			return "< " + label + " >"
		}
		return label
	case core.FieldCheckbox:
		if (core.Values{"v": v}).Bool("v") {
			return "[x]"
		}
		return "[ ]"
	}
	if in, ok := f.inputs[fd.Key]; ok && f.d.Editable(fd.Key) {
		return in.View()
	}
	return core.CellText(v)
}
