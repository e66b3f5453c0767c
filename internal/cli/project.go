package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

var (
	projectList         listFlags
	projectName         string
	projectSprints      int
	projectCreatedBy    string
	projectNewName      string
	projectNewCompleted bool
	projectDeleteYes    bool
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage projects and their sprints",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		return runList(cmd, Projects.Table, Projects.Load, projectList, "projects")
	},
}

var projectGetCmd = &cobra.Command{
	Use:   "get <project-id>",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		p, err := Projects.Get(commandContext(cmd), args[0])
		if err != nil {
			return &commandError{msg: core.LookupMessage(core.EntityProject, args[0], err), err: err}
		}
		return writeRecord(cmd, Projects.Table.Columns(), *p)
	},
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		p, err := Projects.Create(commandContext(cmd), models.ProjectCreate{
			ProjectName:      projectName,
			TotalSprintCount: projectSprints,
			CreatedByAdminID: projectCreatedBy,
		})
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		if p == nil || p.ProjectID == "" {
			return writeMessage(cmd, "", core.MsgSaved)
		}
		return writeRecord(cmd, Projects.Table.Columns(), *p)
	},
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Rename a project or mark it completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		var in models.ProjectUpdate
		if cmd.Flags().Changed("name") {
			name := projectNewName
			in.ProjectName = &name
		}
		if cmd.Flags().Changed("completed") {
			done := projectNewCompleted
			in.IsCompleted = &done
		}
		if in.ProjectName == nil && in.IsCompleted == nil {
			return fmt.Errorf("nothing to update: pass --name or --completed")
		}
		msg, err := Projects.Update(commandContext(cmd), args[0], in)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		return writeMessage(cmd, msg, core.MsgSaved)
	},
}

var projectSprintCmd = &cobra.Command{
	Use:   "sprint <project-id> <sprint>",
	Short: "Move a project to a later sprint",
	Long: `Advance the current sprint of a project. The target must lie between the
current sprint and the project's total sprint count.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		target, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid sprint %q: must be a whole number", args[1])
		}
		msg, err := Projects.AdvanceSprint(commandContext(cmd), args[0], target)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		return writeMessage(cmd, msg, core.MsgSaved)
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		spec, err := Projects.ConfirmDelete(models.Project{ProjectID: args[0]})
		if err != nil {
			return failure(core.MsgDeleteFail, err)
		}
		return deleteRecord(cmd, spec, projectDeleteYes, func(ctx context.Context) (string, error) {
			return Projects.Delete(ctx, args[0])
		})
	},
}

var projectBulkCmd = &cobra.Command{
	Use:   "bulk-create <file.yaml>",
	Short: "Create projects from a YAML list",
	Long: `Create several projects in one request. The file holds a YAML list:

  - projectName: Apollo
    totalSprintCount: 6
    createdByAdminId: a1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		items, err := readBulkFile[models.ProjectCreate](args[0])
		if err != nil {
			return err
		}
		out, err := Projects.CreateBulk(commandContext(cmd), items)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Created %d projects.\n", len(out))
		return writeList(cmd, Projects.Table.Columns(), createdOutput(out), "projects")
	},
}

func init() {
	projectList.register(projectListCmd)

	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectCreateCmd.Flags().IntVar(&projectSprints, "sprints", 1, "total sprint count")
	projectCreateCmd.Flags().StringVar(&projectCreatedBy, "created-by", "", "creating admin (default: the logged in user)")
	_ = projectCreateCmd.MarkFlagRequired("name")

	projectUpdateCmd.Flags().StringVar(&projectNewName, "name", "", "new project name")
	projectUpdateCmd.Flags().BoolVar(&projectNewCompleted, "completed", false, "mark the project completed (or --completed=false)")

	projectDeleteCmd.Flags().BoolVarP(&projectDeleteYes, "yes", "y", false, "skip the confirmation prompt")

	projectCmd.AddCommand(projectListCmd, projectGetCmd, projectCreateCmd, projectUpdateCmd,
		projectSprintCmd, projectDeleteCmd, projectBulkCmd)
	rootCmd.AddCommand(projectCmd)
}
