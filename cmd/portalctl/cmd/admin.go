package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/admin"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Staff-only member management",
	Long: `Manage signup applications and club members. Every subcommand needs a
staff session; the backend rejects regular accounts.`,
}

var applicationsStatus string

var adminApplicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List signup applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		apps, err := a.admins.Applications(cmd.Context(), applicationsStatus)
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("no applications")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tNUMBER\tSTATUS\tSUBMITTED")
		for _, app := range apps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				app.ID, app.StudentName, app.StudentNumber, app.Status,
				app.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

// settleApplications runs one bulk approve or reject from CLI arguments.
func settleApplications(cmd *cobra.Command, args []string, op func(*admin.Service, context.Context, []int64) error, done string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.ensureSession(cmd.Context()); err != nil {
		return err
	}

	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := op(a.admins, cmd.Context(), ids); err != nil {
		return err
	}
	fmt.Printf("%d application(s) %s\n", len(ids), done)
	return nil
}

var adminApproveCmd = &cobra.Command{
	Use:   "approve <application-id>...",
	Short: "Approve signup applications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return settleApplications(cmd, args, (*admin.Service).Approve, "approved")
	},
}

var adminRejectCmd = &cobra.Command{
	Use:   "reject <application-id>...",
	Short: "Reject signup applications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return settleApplications(cmd, args, (*admin.Service).Reject, "rejected")
	},
}

var adminStudentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List club members",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		students, err := a.admins.Students(cmd.Context())
		if err != nil {
			return err
		}
		if len(students) == 0 {
			fmt.Println("no members")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tNUMBER\tROLE")
		for _, st := range students {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.ID, st.StudentName, st.StudentNumber, st.Role)
		}
		return w.Flush()
	},
}

var adminSetRoleCmd = &cobra.Command{
	Use:   "set-role <student-id> <role>",
	Short: "Change a member's role (USER, STAFF, PRESIDENT, SYSTEM_ADMIN)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		role := strings.ToUpper(args[1])
		if err := a.admins.UpdateRole(cmd.Context(), id, role); err != nil {
			return err
		}
		fmt.Printf("student %d is now %s\n", id, role)
		return nil
	},
}

var adminRemoveCmd = &cobra.Command{
	Use:   "remove <student-id>",
	Short: "Delete a member's account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := a.admins.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("student %d removed\n", id)
		return nil
	},
}

func init() {
	adminApplicationsCmd.Flags().StringVar(&applicationsStatus, "status", admin.StatusPending,
		"filter by status (PENDING, APPROVED, REJECTED; empty for all)")

	adminCmd.AddCommand(adminApplicationsCmd, adminApproveCmd, adminRejectCmd,
		adminStudentsCmd, adminSetRoleCmd, adminRemoveCmd)
	rootCmd.AddCommand(adminCmd)
}
