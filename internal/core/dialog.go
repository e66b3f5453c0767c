package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strconv"
	"strings"

	"github.com/valter-silva-au/pm-console/pkg/models"
)

// Mode is the dialog's editing mode.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

// FieldKind is the input kind of a dialog field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldSelect
	FieldCheckbox
)

func (k FieldKind) String() string {
	switch k {
	case FieldNumber:
		return "number"
	case FieldSelect:
		return "select"
	case FieldCheckbox:
		return "checkbox"
	default:
		return "text"
	}
}

// Option is one choice of a select field.
type Option struct {
	Value any
	Label string
}

// Values is the flat edit model of a dialog, keyed by field key.
type Values map[string]any

// String returns the value at key as trimmed text.
func (v Values) String(key string) string {
	return strings.TrimSpace(CellText(v[key]))
}

// Int returns the value at key as an int. ok is false when it is missing or
// not numeric.
func (v Values) Int(key string) (int, bool) {
	switch x := v[key].(type) {
	case int:
		return x, true
	case models.TaskStatus:
		return int(x), true
	case models.Role:
		return int(x), true
	case models.FlexInt:
		return int(x), true
	case float64:
		return int(x), true
	case nil:
		return 0, false
	}
	n, err := strconv.Atoi(v.String(key))
	return n, err == nil
}

// Bool returns the value at key as a bool.
func (v Values) Bool(key string) bool {
	switch x := v[key].(type) {
	case bool:
		return x
	case models.FlexBool:
		return bool(x)
	}
	b, _ := models.ParseFlexBool(v.String(key))
	return b
}

// Field describes one dialog input.
type Field struct {
	Key      string
	Label    string
	Kind     FieldKind
	Options  []Option
	ReadOnly bool
	Min, Max *int
	Step     int
	// VisibleWhen hides the field (and strips it from the payload) when it
	// returns false.
	VisibleWhen func(Values) bool
}

// Bound returns a pointer to n for Field.Min and Field.Max.
func Bound(n int) *int { return &n }

// OptionLabel returns the label of the option matching value, or its text.
func (f Field) OptionLabel(value any) string {
	for _, o := range f.Options {
		if reflect.DeepEqual(o.Value, value) || CellText(o.Value) == CellText(value) {
			return o.Label
		}
	}
	return CellText(value)
}

// DialogSpec configures a dialog.
type DialogSpec struct {
	Title  string
	Mode   Mode
	Fields []Field
	Model  Values
	// Validate returns a user-facing message when the values are not
	// acceptable, or "".
	Validate func(Values) string
	// Save persists the (visible) values. A nil Save returns them as the
	// saved payload.
	Save func(ctx context.Context, values Values) (any, error)
	// SkipUnchanged closes a valid but unedited dialog as Cancelled
	// without calling Save.
	SkipUnchanged bool
}

// Outcome is how a dialog closed.
type Outcome int

const (
	Cancelled Outcome = iota
	Saved
	Failed
)

// Result is what a closed dialog reports to its screen.
type Result struct {
	Outcome Outcome
	Payload any
	Message string
	IsError bool
}

// Dialog is the generic create/edit/view form. It keeps a working copy of
// the model and an immutable snapshot of what it was opened with.
type Dialog struct {
	spec     DialogSpec
	values   Values
	snapshot Values
	message  string
	busy     bool
	closed   bool
	result   Result
}

// NewDialog opens a dialog over a copy of spec.Model.
func NewDialog(spec DialogSpec) *Dialog {
	if spec.Mode == "" {
		spec.Mode = ModeEdit
	}
	values := Values{}
	maps.Copy(values, spec.Model)
	return &Dialog{spec: spec, values: values, snapshot: maps.Clone(values)}
}

func (d *Dialog) Title() string   { return d.spec.Title }
func (d *Dialog) Mode() Mode      { return d.spec.Mode }
func (d *Dialog) Fields() []Field { return d.spec.Fields }
func (d *Dialog) Message() string { return d.message }
func (d *Dialog) Busy() bool      { return d.busy }
func (d *Dialog) Closed() bool    { return d.closed }
func (d *Dialog) Result() Result  { return d.result }

// Value returns the working value at key.
func (d *Dialog) Value(key string) any { return d.values[key] }

// Values returns a copy of the working values.
func (d *Dialog) Values() Values { return maps.Clone(d.values) }

// VisibleFields returns the fields currently shown.
func (d *Dialog) VisibleFields() []Field {
	var out []Field
	for _, f := range d.spec.Fields {
		if f.VisibleWhen == nil || f.VisibleWhen(d.values) {
			out = append(out, f)
		}
	}
	return out
}

// Editable reports whether the field at key accepts edits right now.
func (d *Dialog) Editable(key string) bool {
	f, ok := d.field(key)
	return ok && d.editable(f)
}

func (d *Dialog) editable(f Field) bool {
	return !d.closed && !d.busy && d.spec.Mode != ModeView && !f.ReadOnly
}

func (d *Dialog) field(key string) (Field, bool) {
	for _, f := range d.spec.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Changed reports whether the working copy differs from the snapshot.
func (d *Dialog) Changed() bool {
	return !reflect.DeepEqual(d.values, d.snapshot)
}

// Set parses raw according to the field kind and stores it.
func (d *Dialog) Set(key, raw string) error {
	f, ok := d.field(key)
	if !ok {
		return fmt.Errorf("unknown field %q", key)
	}
	if !d.editable(f) {
		return fmt.Errorf("%s is read-only", f.Label)
	}

	switch f.Kind {
	case FieldNumber:
		raw = strings.TrimSpace(raw)
		if raw == "" {
			d.values[key] = nil
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be a whole number", f.Label)
		}
		if f.Min != nil && n < *f.Min {
			return fmt.Errorf("%s must be at least %d", f.Label, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return fmt.Errorf("%s must be at most %d", f.Label, *f.Max)
		}
		d.values[key] = n
	case FieldSelect:
		for _, o := range f.Options {
			if optionMatches(o, raw) {
				d.values[key] = o.Value
				return nil
			}
		}
		return fmt.Errorf("%s: %q is not an option", f.Label, raw)
	case FieldCheckbox:
		b, err := models.ParseFlexBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Label, err)
		}
		d.values[key] = b
	default:
		d.values[key] = raw
	}
	return nil
}

// optionMatches accepts the option label, its text or, for numeric
// enums, its number.
func optionMatches(o Option, raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(o.Label, raw) || CellText(o.Value) == raw {
		return true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false
	}
	v, ok := Values{"v": o.Value}.Int("v")
	return ok && v == n
}

// Cycle moves a select field delta options forward (or backward), wrapping.
func (d *Dialog) Cycle(key string, delta int) error {
	f, ok := d.field(key)
	if !ok || f.Kind != FieldSelect || len(f.Options) == 0 {
		return fmt.Errorf("%q is not a select field", key)
	}
	if !d.editable(f) {
		return fmt.Errorf("%s is read-only", f.Label)
	}
	cur := -1
	for i, o := range f.Options {
		if CellText(o.Value) == CellText(d.values[key]) {
			cur = i
			break
		}
	}
	n := len(f.Options)
	next := ((cur+delta)%n + n) % n
	if cur < 0 {
		next = 0
	}
	d.values[key] = f.Options[next].Value
	return nil
}

// Toggle flips a checkbox field.
func (d *Dialog) Toggle(key string) error {
	f, ok := d.field(key)
	if !ok || f.Kind != FieldCheckbox {
		return fmt.Errorf("%q is not a checkbox field", key)
	}
	if !d.editable(f) {
		return fmt.Errorf("%s is read-only", f.Label)
	}
	d.values[key] = !d.values.Bool(key)
	return nil
}

// Cancel closes the dialog without saving.
func (d *Dialog) Cancel() Result {
	if d.busy {
		return d.result
	}
	return d.close(Result{Outcome: Cancelled})
}

// Prepare runs the submit checks. A view dialog closes as Cancelled; a
// validator message keeps the dialog open; an unedited SkipUnchanged
// dialog closes as Cancelled. Otherwise the dialog turns busy and the
// payload to save is returned with hidden fields stripped.
func (d *Dialog) Prepare() (Values, bool) {
	if d.closed || d.busy {
		return nil, false
	}
	if d.spec.Mode == ModeView {
		d.close(Result{Outcome: Cancelled})
		return nil, false
	}
	if d.spec.Validate != nil {
		if msg := d.spec.Validate(d.values); msg != "" {
			d.message = msg
			return nil, false
		}
	}
	d.message = ""
	if d.spec.SkipUnchanged && !d.Changed() {
		d.close(Result{Outcome: Cancelled})
		return nil, false
	}
	d.busy = true
	return d.payload(), true
}

func (d *Dialog) payload() Values {
	out := maps.Clone(d.values)
	for _, f := range d.spec.Fields {
		if f.VisibleWhen != nil && !f.VisibleWhen(d.values) {
			delete(out, f.Key)
		}
	}
	return out
}

// RunSave invokes the save operation for a prepared payload. It may run
// off the owning goroutine.
func (d *Dialog) RunSave(ctx context.Context, payload Values) (any, error) {
	if d.spec.Save == nil {
		return payload, nil
	}
	return d.spec.Save(ctx, payload)
}

// Finish closes a busy dialog with the save outcome. A failed save closes
// the dialog too; the screen surfaces the message.
func (d *Dialog) Finish(payload any, err error) Result {
	d.busy = false
	if err != nil {
		return d.close(Result{Outcome: Failed, IsError: true, Message: ErrorMessage(err, "Save failed")})
	}
	return d.close(Result{Outcome: Saved, Payload: payload})
}

// Submit runs Prepare, the save and Finish synchronously. closed is false
// when a validator message kept the dialog open.
func (d *Dialog) Submit(ctx context.Context) (res Result, closed bool) {
	payload, ok := d.Prepare()
	if !ok {
		return d.result, d.closed
	}
	out, err := d.RunSave(ctx, payload)
	return d.Finish(out, err), true
}

func (d *Dialog) close(r Result) Result {
	d.closed = true
	d.result = r
	return r
}

// ErrorMessage extracts the most useful user-facing text from err: the
// structured body message of a backend error, its raw body when that is
// plain text, a local validation message, the error text, and finally
// fallback. Markup and unrecognized JSON bodies are never shown.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var he HTTPError
	if errors.As(err, &he) {
		if m := strings.TrimSpace(he.BodyMessage()); m != "" {
			return m
		}
		if b := strings.TrimSpace(he.RawBody()); isPlainText(b) {
			return b
		}
	}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Message != "" {
		return ve.Message
	}
	if m := strings.TrimSpace(err.Error()); m != "" {
		return m
	}
	return fallback
}

func isPlainText(body string) bool {
	return body != "" && !strings.ContainsAny(body[:1], "<{[")
}

// ConfirmSpec configures a yes/no confirmation.
type ConfirmSpec struct {
	Title      string
	Message    string
	OKText     string
	CancelText string
}

// DeleteConfirm returns the confirmation shown before deleting a record.
func DeleteConfirm(entity, id string) ConfirmSpec {
	return ConfirmSpec{
		Title:      "Delete " + titleCase(entity),
		Message:    fmt.Sprintf("Are you sure you want to delete %s %s?", entity, id),
		OKText:     "Delete",
		CancelText: "Cancel",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
