package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/poll"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Browse and run club polls",
}

var (
	pollListQuery  string
	pollListStatus string
	pollListPage   int
	pollListSize   int
	pollListSort   []string
)

var pollListCmd = &cobra.Command{
	Use:   "list",
	Short: "List polls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		page, err := a.polls.List(cmd.Context(),
			poll.SearchParams{Query: pollListQuery, Status: pollListStatus},
			poll.Pageable{Page: pollListPage, Size: pollListSize, Sort: pollListSort},
		)
		if err != nil {
			return err
		}
		if page.Empty {
			fmt.Println("no polls")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tDEADLINE")
		for _, p := range page.Content {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Title, p.Status, p.DeadlineAt.Local().Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("page %d/%d (%d polls)\n", page.Number+1, page.TotalPages, page.TotalElements)
		return nil
	},
}

var pollShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one poll",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_ = a.ensureSession(cmd.Context()) // vote state shows up when signed in

		detail, err := a.polls.Get(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("#%d %s [%s]\n", detail.ID, detail.Title, detail.Status)
		if detail.Description != "" {
			fmt.Println(detail.Description)
		}
		fmt.Printf("deadline: %s\n", detail.DeadlineAt.Local().Format("2006-01-02 15:04"))
		for _, opt := range detail.Options {
			marker := " "
			for _, picked := range detail.MySelectedOptionIDs {
				if picked == opt.ID {
					marker = "*"
				}
			}
			fmt.Printf("  [%s] %d: %s\n", marker, opt.ID, opt.Label)
		}
		if detail.Voted {
			fmt.Println("you have voted")
		}
		return nil
	},
}

var (
	pollCreateTitle       string
	pollCreateDescription string
	pollCreateOptions     []string
	pollCreateMaxSelect   int
	pollCreateMultiple    bool
	pollCreateAnonymous   bool
	pollCreateAddOption   bool
	pollCreateRevote      bool
	pollCreateVisibility  string
	pollCreateDeadline    string
)

var pollCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a poll",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		deadline, err := time.Parse(time.RFC3339, pollCreateDeadline)
		if err != nil {
			// Also accept a duration from now, e.g. --deadline 72h.
			d, derr := time.ParseDuration(pollCreateDeadline)
			if derr != nil {
				return fmt.Errorf("invalid --deadline %q: use RFC3339 or a duration", pollCreateDeadline)
			}
			deadline = time.Now().Add(d)
		}

		created, err := a.polls.Create(cmd.Context(), poll.CreateRequest{
			Title:            pollCreateTitle,
			Description:      pollCreateDescription,
			MaxSelect:        pollCreateMaxSelect,
			Multiple:         pollCreateMultiple,
			Anonymous:        pollCreateAnonymous,
			AllowAddOption:   pollCreateAddOption,
			AllowRevote:      pollCreateRevote,
			ResultVisibility: pollCreateVisibility,
			DeadlineAt:       deadline,
			Options:          pollCreateOptions,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created poll #%d\n", created.ID)
		return nil
	},
}

var pollVoteCmd = &cobra.Command{
	Use:   "vote <id> <option-id>...",
	Short: "Vote on a poll",
	Args:  cobra.MinimumNArgs(2),
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
		optionIDs := make([]int64, 0, len(args)-1)
		for _, raw := range args[1:] {
			optionID, err := parseID(raw)
			if err != nil {
				return err
			}
			optionIDs = append(optionIDs, optionID)
		}

		if err := a.polls.Vote(cmd.Context(), id, optionIDs); err != nil {
			return err
		}
		fmt.Println("vote recorded")
		return nil
	},
}

var pollCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a poll",
	Args:  cobra.ExactArgs(1),
	RunE:  pollLifecycle((*poll.Service).Close, "closed"),
}

var pollDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a poll",
	Args:  cobra.ExactArgs(1),
	RunE:  pollLifecycle((*poll.Service).Delete, "deleted"),
}

var pollResultsCmd = &cobra.Command{
	Use:   "results <id>",
	Short: "Show poll results",
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

		results, err := a.polls.Results(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Printf("#%d %s [%s]\n", results.Poll.ID, results.Poll.Title, results.Poll.Status)
		for _, opt := range results.Options {
			fmt.Printf("  %s: %d\n", opt.Label, opt.Count)
			for _, voter := range opt.Voters {
				fmt.Printf("    - %s\n", voter.StudentName)
			}
		}
		return nil
	},
}

func pollLifecycle(op func(*poll.Service, context.Context, int64) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
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
		if err := op(a.polls, cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("poll #%d %s\n", id, done)
		return nil
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func init() {
	pollListCmd.Flags().StringVar(&pollListQuery, "query", "", "title search")
	pollListCmd.Flags().StringVar(&pollListStatus, "status", "", "OPEN or CLOSED")
	pollListCmd.Flags().IntVar(&pollListPage, "page", 0, "page number (0-based)")
	pollListCmd.Flags().IntVar(&pollListSize, "size", 10, "page size")
	pollListCmd.Flags().StringSliceVar(&pollListSort, "sort", []string{"createdAt,DESC"}, "sort, e.g. deadlineAt,ASC")

	pollCreateCmd.Flags().StringVar(&pollCreateTitle, "title", "", "poll title")
	pollCreateCmd.Flags().StringVar(&pollCreateDescription, "description", "", "poll description")
	pollCreateCmd.Flags().StringArrayVar(&pollCreateOptions, "option", nil, "option label (repeatable)")
	pollCreateCmd.Flags().IntVar(&pollCreateMaxSelect, "max-select", 1, "max selectable options")
	pollCreateCmd.Flags().BoolVar(&pollCreateMultiple, "multiple", false, "allow multiple selections")
	pollCreateCmd.Flags().BoolVar(&pollCreateAnonymous, "anonymous", false, "hide voter names in results")
	pollCreateCmd.Flags().BoolVar(&pollCreateAddOption, "allow-add-option", false, "voters may add options")
	pollCreateCmd.Flags().BoolVar(&pollCreateRevote, "allow-revote", false, "voters may change their vote")
	pollCreateCmd.Flags().StringVar(&pollCreateVisibility, "visibility", poll.VisibilityAfterClose, "ALWAYS, AFTER_CLOSE, AUTHENTICATED, or ADMIN_ONLY")
	pollCreateCmd.Flags().StringVar(&pollCreateDeadline, "deadline", "", "deadline (RFC3339 or duration from now)")
	_ = pollCreateCmd.MarkFlagRequired("title")
	_ = pollCreateCmd.MarkFlagRequired("option")
	_ = pollCreateCmd.MarkFlagRequired("deadline")

	pollCmd.AddCommand(pollListCmd, pollShowCmd, pollCreateCmd, pollVoteCmd, pollCloseCmd, pollDeleteCmd, pollResultsCmd)
	rootCmd.AddCommand(pollCmd)
}
