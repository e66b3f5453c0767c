package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/pm-console/internal/core"
)

var (
	loginUsername string
	loginPassword string
	whoamiRemote  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Long: `Log in against the backend. The returned token, role and user ID are kept
in the session file of the console home until 'pmc logout' or expiry.

Missing --username or --password values are prompted for.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Auth == nil {
			return fmt.Errorf("console not initialized")
		}
		user, pass := loginUsername, loginPassword
		if user == "" || pass == "" {
			var err error
			if user, pass, err = promptCredentials(cmd, user); err != nil {
				return err
			}
		}
		a, err := Auth.Login(commandContext(cmd), user, pass)
		if err != nil {
			return failure("login failed", err)
		}
		recordSession(core.EventLogin, "logged in as "+user, a)
		return writeMessage(cmd, fmt.Sprintf("Logged in as %s (%s)", user, core.RoleName(a.Role)), "")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Auth == nil {
			return fmt.Errorf("console not initialized")
		}
		a, wasIn := Auth.Current().(core.Authenticated)
		if err := Auth.Logout(); err != nil {
			return err
		}
		if wasIn {
			recordSession(core.EventLogout, "logged out", a)
		}
		return writeMessage(cmd, "Logged out", "")
	},
}

// whoamiOutput is the structured form of whoami.
type whoamiOutput struct {
	UserID    string `json:"user_id" yaml:"user_id"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Role      string `json:"role" yaml:"role"`
	ExpiresAt string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Auth == nil {
			return fmt.Errorf("console not initialized")
		}
		a, ok := Auth.Current().(core.Authenticated)
		if !ok {
			return fmt.Errorf("not logged in: run 'pmc login'")
		}
		out := whoamiOutput{UserID: a.UserID, Username: a.Username, Role: core.RoleName(a.Role)}
		if !a.ExpiresAt.IsZero() {
			out.ExpiresAt = a.ExpiresAt.Local().Format(time.RFC3339)
		}
		if whoamiRemote {
			me, err := Auth.Me(commandContext(cmd))
			if err != nil {
				return failure("asking the backend", err)
			}
			out.Username = me.Username
			if me.UserID != "" {
				out.UserID = me.UserID
			}
			if me.Role != "" {
				out.Role = me.Role
			}
		}

		w := cmd.OutOrStdout()
		if ok, err := writeStructured(w, out); ok {
			return err
		}
		if out.Username != "" {
			fmt.Fprintf(w, "Username: %s\n", out.Username)
		}
		fmt.Fprintf(w, "User ID:  %s\nRole:     %s\n", out.UserID, out.Role)
		if out.ExpiresAt != "" {
			fmt.Fprintf(w, "Expires:  %s\n", out.ExpiresAt)
		}
		return nil
	},
}

// recordSession writes a login or logout to the audit log.
func recordSession(eventType, msg string, a core.Authenticated) {
	if Events == nil {
		return
	}
	_ = Events.LogEvent(eventType, msg, map[string]any{
		"user_id": a.UserID,
		"role":    a.Role.String(),
	})
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when omitted)")
	whoamiCmd.Flags().BoolVar(&whoamiRemote, "remote", false, "ask the backend (GET /auth/me) instead of reading the stored session")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
