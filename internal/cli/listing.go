package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
	"gopkg.in/yaml.v3"
)

// listFlags are the paging flags shared by the list commands.
type listFlags struct {
	page   int
	size   int
	search string
	sort   string
	desc   bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.size, "size", 0, "page size (default from table.page_size)")
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive filter")
	cmd.Flags().StringVar(&f.sort, "sort", "", "column to sort by")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

// sortFor resolves a --sort value against a column's header or field.
func sortFor[T any](cols []core.Column[T], name string, desc bool) (core.SortState, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.SortState{}, nil
	}
	var known []string
	for _, c := range cols {
		if !c.Sortable {
			continue
		}
		known = append(known, c.SortKey())
		if strings.EqualFold(c.SortKey(), name) || strings.EqualFold(c.Header, name) {
			dir := models.SortAsc
			if desc {
				dir = models.SortDesc
			}
			return core.SortState{Field: c.SortKey(), Direction: dir}, nil
		}
	}
	return core.SortState{}, fmt.Errorf("unknown sort column %q: must be one of %s", name, strings.Join(known, ", "))
}

// runList loads the page the flags describe through the screen's load and
// prints it.
func runList[T any](cmd *cobra.Command, t *core.Table[T], load func(context.Context, bool) error, f listFlags, noun string) error {
	sort, err := sortFor(t.Columns(), f.sort, f.desc)
	if err != nil {
		return err
	}
	size := f.size
	if size <= 0 {
		size = t.PageSize()
	}
	ok, err := core.Seek(commandContext(cmd), t, load, core.Query{
		PageIndex: max(f.page, 1) - 1,
		PageSize:  size,
		Search:    strings.TrimSpace(f.search),
		Sort:      sort,
	})
	if err != nil {
		return failure("listing "+noun, err)
	}
	var rows []T
	if ok {
		rows = t.Rows()
	}
	return writeList(cmd, t.Columns(), pageOutput(t, rows), noun)
}

// readBulkFile decodes a YAML list of create payloads.
func readBulkFile[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var items []T
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s contains no records", path)
	}
	return items, nil
}

// deleteRecord confirms (unless yes) and runs del.
func deleteRecord(cmd *cobra.Command, spec core.ConfirmSpec, yes bool, del func(context.Context) (string, error)) error {
	if !yes {
		ok, err := confirm(cmd, spec)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
			return nil
		}
	}
	msg, err := del(commandContext(cmd))
	if err != nil {
		return failure(core.MsgDeleteFail, err)
	}
	return writeMessage(cmd, msg, core.MsgDeleted)
}

func requireServices() error {
	if Auth == nil || Persons == nil || Projects == nil || Tasks == nil {
		return fmt.Errorf("console not initialized")
	}
	return nil
}
