package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/pkg/models"
)

var (
	personList      listFlags
	personName      string
	personRole      string
	personActive    bool
	personNewName   string
	personNewRole   string
	personNewActive bool
	personDeleteYes bool
)

var personCmd = &cobra.Command{
	Use:     "person",
	Aliases: []string{"persons", "people"},
	Short:   "Manage persons",
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		return runList(cmd, Persons.Table, Persons.Load, personList, "persons")
	},
}

var personGetCmd = &cobra.Command{
	Use:   "get <person-id>",
	Short: "Show one person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		p, err := Persons.Get(commandContext(cmd), args[0])
		if err != nil {
			return &commandError{msg: core.LookupMessage(core.EntityPerson, args[0], err), err: err}
		}
		return writeRecord(cmd, Persons.Table.Columns(), *p)
	},
}

var personCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a person",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		role, err := models.ParseRole(personRole)
		if err != nil {
			return err
		}
		active := personActive
		p, err := Persons.Create(commandContext(cmd), models.PersonCreate{Name: personName, Role: role, IsActive: &active})
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		if p == nil || p.PersonID == "" {
			return writeMessage(cmd, "", core.MsgSaved)
		}
		return writeRecord(cmd, Persons.Table.Columns(), *p)
	},
}

var personUpdateCmd = &cobra.Command{
	Use:   "update <person-id>",
	Short: "Update a person's name, role or active flag",
	Long: `Update a person. Only the flags given change; the other fields keep the
values currently stored on the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("name") && !flags.Changed("role") && !flags.Changed("active") {
			return fmt.Errorf("nothing to update: pass --name, --role or --active")
		}
		ctx := commandContext(cmd)
		cur, err := Persons.Get(ctx, args[0])
		if err != nil {
			return &commandError{msg: core.LookupMessage(core.EntityPerson, args[0], err), err: err}
		}
		in := models.PersonUpdate{Name: cur.Name, Role: cur.Role}
		active := bool(cur.IsActive)
		if flags.Changed("name") {
			in.Name = personNewName
		}
		if flags.Changed("role") {
			if in.Role, err = models.ParseRole(personNewRole); err != nil {
				return err
			}
		}
		if flags.Changed("active") {
			active = personNewActive
		}
		in.IsActive = &active
		msg, err := Persons.Update(ctx, cur.PersonID, in)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		return writeMessage(cmd, msg, core.MsgSaved)
	},
}

var personDeleteCmd = &cobra.Command{
	Use:   "delete <person-id>",
	Short: "Delete a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		spec, err := Persons.ConfirmDelete(models.Person{PersonID: args[0]})
		if err != nil {
			return failure(core.MsgDeleteFail, err)
		}
		return deleteRecord(cmd, spec, personDeleteYes, func(ctx context.Context) (string, error) {
			return Persons.Delete(ctx, args[0])
		})
	},
}

var personBulkCmd = &cobra.Command{
	Use:   "bulk-create <file.yaml>",
	Short: "Create persons from a YAML list",
	Long: `Create several persons in one request. The file holds a YAML list:

  - name: Ada
    role: Manager
  - name: Linus
    role: User
    isActive: false`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		items, err := readBulkFile[models.PersonCreate](args[0])
		if err != nil {
			return err
		}
		out, err := Persons.CreateBulk(commandContext(cmd), items)
		if err != nil {
			return failure(core.MsgSaveFailed, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Created %d persons.\n", len(out))
		return writeList(cmd, Persons.Table.Columns(), createdOutput(out), "persons")
	},
}

var personTeamCmd = &cobra.Command{
	Use:   "team <team-id>",
	Short: "List the members of a project team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireServices(); err != nil {
			return err
		}
		team, err := Persons.Team(commandContext(cmd), args[0])
		if err != nil {
			return failure("getting team "+args[0], err)
		}
		w := cmd.OutOrStdout()
		if ok, err := writeStructured(w, team); ok {
			return err
		}
		fmt.Fprintf(w, "Team %s: %d members\n", team.ProjectTeamID, len(team.PersonIDs))
		for _, id := range team.PersonIDs {
			fmt.Fprintf(w, "  %s\n", id)
		}
		return nil
	},
}

func init() {
	personList.register(personListCmd)

	personCreateCmd.Flags().StringVar(&personName, "name", "", "person name")
	personCreateCmd.Flags().StringVar(&personRole, "role", "User", "role: Admin, Manager or User")
	personCreateCmd.Flags().BoolVar(&personActive, "active", true, "whether the person is active")
	_ = personCreateCmd.MarkFlagRequired("name")

	personUpdateCmd.Flags().StringVar(&personNewName, "name", "", "new name")
	personUpdateCmd.Flags().StringVar(&personNewRole, "role", "", "new role: Admin, Manager or User")
	personUpdateCmd.Flags().BoolVar(&personNewActive, "active", true, "whether the person is active")

	personDeleteCmd.Flags().BoolVarP(&personDeleteYes, "yes", "y", false, "skip the confirmation prompt")

	personCmd.AddCommand(personListCmd, personGetCmd, personCreateCmd, personUpdateCmd,
		personDeleteCmd, personBulkCmd, personTeamCmd)
	rootCmd.AddCommand(personCmd)
}
