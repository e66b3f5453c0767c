package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

var (
	taskList      listFlags
	taskName      string
	taskProject   string
	taskAssignee  string
	taskSprint    int
	taskStatus    string
	taskDeleteYes bool
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"tasks"},
	Short:   "Manage sprint tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		return runList(cmd, Tasks.Table, Tasks.Load, taskList, "tasks")
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		t, err := Tasks.Get(commandContext(cmd), args[0])
		if err != nil {
			return &commandError{msg: core.LookupMessage(core.EntityTask, args[0], err), err: err}
		}
		return writeRecord(cmd, Tasks.Table.Columns(), *t)
	},
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		in := models.TaskCreate{TaskName: taskName, ProjectID: taskProject, AssignedToPersonID: taskAssignee}
		if cmd.Flags().Changed("sprint") {
			n := taskSprint
			in.SprintNumber = &n
		}
		if cmd.Flags().Changed("status") {
			st, err := models.ParseTaskStatus(taskStatus)
			if err != nil {
				return err
			}
			in.Status = &st
		}
		t, err := Tasks.Create(commandContext(cmd), in)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		if t == nil || t.TaskID == "" {
			return writeMessage(cmd, "", core.MsgSaved)
		}
		return writeRecord(cmd, Tasks.Table.Columns(), *t)
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <todo|in_progress|done|0-2>",
	Short: "Move a task to another status",
	Long: `Move a task to another status on behalf of the logged in user. Users may
only move tasks assigned to them; the task is fetched first to check.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		st, err := models.ParseTaskStatus(args[1])
		if err != nil {
			return err
		}
		msg, err := Tasks.SetStatus(commandContext(cmd), args[0], st)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		return writeMessage(cmd, msg, core.MsgSaved)
	},
}

var taskReassignCmd = &cobra.Command{
	Use:   "reassign <task-id> <person-id>",
	Short: "Hand a task to another person",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		msg, err := Tasks.ReassignByID(commandContext(cmd), args[0], args[1])
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		return writeMessage(cmd, msg, core.MsgSaved)
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		spec, err := Tasks.ConfirmDelete(models.Task{TaskID: args[0]})
		if err != nil {
			return failure(core.MsgDeleteFail, err)
		}
		return deleteRecord(cmd, spec, taskDeleteYes, func(ctx context.Context) (string, error) {
			return Tasks.Delete(ctx, args[0])
		})
	},
}

var taskBulkCmd = &cobra.Command{
	Use:   "bulk-create <file.yaml>",
	Short: "Create tasks from a YAML list",
	Long: `Create several tasks in one request. The file holds a YAML list:

  - TaskName: Write release notes
    ProjectId: p1
    AssignedToPersonId: u7
    SprintNumber: 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		items, err := readBulkFile[models.TaskCreate](args[0])
		if err != nil {
			return err
		}
		out, err := Tasks.CreateBulk(commandContext(cmd), items)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Created %d tasks.\n", len(out))
		return writeList(cmd, Tasks.Table.Columns(), createdOutput(out), "tasks")
	},
}

func init() {
	taskList.register(taskListCmd)

	f := taskCreateCmd.Flags()
	f.StringVar(&taskName, "name", "", "task name")
	f.StringVar(&taskProject, "project", "", "project ID")
	f.StringVar(&taskAssignee, "assignee", "", "assigned person ID")
	f.IntVar(&taskSprint, "sprint", 1, "sprint number")
	f.StringVar(&taskStatus, "status", "todo", "initial status: todo, in_progress or done")
	_ = taskCreateCmd.MarkFlagRequired("name")
	_ = taskCreateCmd.MarkFlagRequired("project")

	taskDeleteCmd.Flags().BoolVarP(&taskDeleteYes, "yes", "y", false, "skip the confirmation prompt")

	taskCmd.AddCommand(taskListCmd, taskGetCmd, taskCreateCmd, taskStatusCmd,
		taskReassignCmd, taskDeleteCmd, taskBulkCmd)
	rootCmd.AddCommand(taskCmd)
}
