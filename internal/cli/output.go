package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid --output %q: must be one of text, json, yaml", format)
}

// commandError is a failure already rendered for the terminal. The
// underlying error stays reachable through errors.Is and errors.As.
type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string { return e.msg }

func (e *commandError) Unwrap() error { return e.err }

// failure prefixes the most useful message carried by err with action.
func failure(action string, err error) error {
	return &commandError{msg: action + ": " + core.ErrorMessage(err, "request failed"), err: err}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeStructured writes v as JSON or YAML and reports true, or reports
// false when the text format is selected.
func writeStructured(w io.Writer, v any) (bool, error) {
	switch outputFlag {
	case outputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return true, err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("encoding yaml: %w", err)
		}
		return true, enc.Close()
	}
	return false, nil
}

// printTable writes rows as left-aligned columns under upper-cased headers.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = c
				continue
			}
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	line(upper)
	for _, r := range rows {
		line(r)
	}
}

// listOutput is the structured form of a list command.
type listOutput[T any] struct {
	Items []T `json:"items" yaml:"items"`
	Total int `json:"total" yaml:"total"`
	Page  int `json:"page" yaml:"page"`
	Pages int `json:"pages" yaml:"pages"`
}

// pageOutput describes the visible page of t.
func pageOutput[T any](t *core.Table[T], rows []T) listOutput[T] {
	return listOutput[T]{Items: rows, Total: t.Total(), Page: t.PageIndex() + 1, Pages: t.PageCount()}
}

// createdOutput describes the records returned by a bulk create.
func createdOutput[T any](rows []T) listOutput[T] {
	return listOutput[T]{Items: rows, Total: len(rows), Page: 1, Pages: 1}
}

// writeList renders out with one column per table column.
func writeList[T any](cmd *cobra.Command, cols []core.Column[T], out listOutput[T], noun string) error {
	w := cmd.OutOrStdout()
	if out.Items == nil {
		out.Items = []T{}
	}
	if ok, err := writeStructured(w, out); ok {
		return err
	}
	if len(out.Items) == 0 {
		fmt.Fprintf(w, "No %s found.\n", noun)
		return nil
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	cells := make([][]string, len(out.Items))
	for i, r := range out.Items {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			cells[i][j] = c.Text(r)
		}
	}
	printTable(w, headers, cells)
	fmt.Fprintf(w, "\npage %d of %d, %d total\n", out.Page, out.Pages, out.Total)
	return nil
}

// writeRecord renders one record as "Header: value" lines.
func writeRecord[T any](cmd *cobra.Command, cols []core.Column[T], rec T) error {
	w := cmd.OutOrStdout()
	if ok, err := writeStructured(w, rec); ok {
		return err
	}
	width := 0
	for _, c := range cols {
		width = max(width, len(c.Header))
	}
	for _, c := range cols {
		fmt.Fprintf(w, "%-*s  %s\n", width+1, c.Header+":", c.Text(rec))
	}
	return nil
}

// writeMessage prints a backend confirmation, or fallback when it is empty.
func writeMessage(cmd *cobra.Command, msg, fallback string) error {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = fallback
	}
	w := cmd.OutOrStdout()
	if ok, err := writeStructured(w, map[string]string{"message": msg}); ok {
		return err
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}

// confirm asks spec's question on the command's streams. Anything but y or
// yes declines.
func confirm(cmd *cobra.Command, spec core.ConfirmSpec) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", spec.Message)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
