package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/auth"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <student-number>",
	Short: "Sign in to the portal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		password := loginPassword
		if password == "" {
			password, err = promptLine("Password: ")
			if err != nil {
				return err
			}
		}

		user, err := a.auth.Login(cmd.Context(), auth.Credentials{
			StudentNumber:   args[0],
			StudentPassword: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", user.StudentName, user.StudentNumber)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the local session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.auth.Logout(cmd.Context())
		a.jar.Clear()
		fmt.Println("signed out")
		return nil
	},
}

var whoamiWatch bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Long: `Shows the signed-in student. With --watch it keeps running and reports
session changes made by other portal processes (another login updating the
profile, or a logout elsewhere forcing this session out).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if err := a.ensureSession(cmd.Context()); err != nil {
			if user := a.store.User(); user != nil {
				fmt.Printf("%s (%s) - session expired\n", user.StudentName, user.StudentNumber)
				return nil
			}
			return err
		}

		user := a.store.User()
		fmt.Printf("%s (%s)\n", user.StudentName, user.StudentNumber)
		if user.StudentTier != "" {
			fmt.Printf("  tier: %s\n", user.StudentTier)
		}
		fmt.Printf("  role: %s\n", user.Role)
		if expiry, ok := a.store.TokenExpiry(); ok {
			fmt.Printf("  token valid until %s\n", expiry.Local().Format("2006-01-02 15:04:05"))
		}

		if whoamiWatch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			fmt.Println("watching for session changes (ctrl-c to stop)")
			return watchSession(ctx, a.store, os.Stdout)
		}
		return nil
	},
}

var registerPassword string

var registerCmd = &cobra.Command{
	Use:   "register <name> <student-number>",
	Short: "Request a portal account (pending admin approval)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		password := registerPassword
		if password == "" {
			password, err = promptLine("Password: ")
			if err != nil {
				return err
			}
		}

		status, err := a.auth.Register(cmd.Context(), auth.Registration{
			StudentName:     args[0],
			StudentNumber:   args[1],
			StudentPassword: password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("registration submitted (HTTP %d); an admin has to approve the account\n", status)
		return nil
	},
}

var passwdCurrent, passwdNew string

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the account password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		current := passwdCurrent
		if current == "" {
			if current, err = promptLine("Current password: "); err != nil {
				return err
			}
		}
		next := passwdNew
		if next == "" {
			if next, err = promptLine("New password: "); err != nil {
				return err
			}
		}

		if err := a.auth.ChangePassword(cmd.Context(), current, next); err != nil {
			return err
		}
		fmt.Println("password changed")
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [solved-ac-handle]",
	Short: "Link a solved.ac account",
	Long: `Without arguments, issues a verification code to place in your solved.ac
profile bio. With a handle, completes the link and refreshes your tier.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		if len(args) == 0 {
			code, err := a.auth.IssueVerificationCode(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("verification code: %s\n", code)
			fmt.Println("put it in your solved.ac bio, then run 'portalctl verify <handle>'")
			return nil
		}

		user, err := a.auth.VerifySolvedAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if user != nil && user.StudentTier != "" {
			fmt.Printf("linked; tier %s\n", user.StudentTier)
		} else {
			fmt.Println("linked")
		}
		return nil
	},
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	whoamiCmd.Flags().BoolVar(&whoamiWatch, "watch", false, "keep running and report cross-process session changes")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "password (prompted when omitted)")
	passwdCmd.Flags().StringVar(&passwdCurrent, "current", "", "current password (prompted when omitted)")
	passwdCmd.Flags().StringVar(&passwdNew, "new", "", "new password (prompted when omitted)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, passwdCmd, verifyCmd)
}
