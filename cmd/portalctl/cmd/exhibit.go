package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ampm-club/portal/internal/exhibit"
)

var exhibitCmd = &cobra.Command{
	Use:   "exhibit",
	Short: "Browse and publish project showcases",
}

var exhibitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exhibits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		exhibits, err := a.exhibits.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(exhibits) == 0 {
			fmt.Println("no exhibits yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tURL")
		for _, e := range exhibits {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.ID, e.Title, e.ExhibitURL)
		}
		return w.Flush()
	},
}

var (
	exhibitTitle       string
	exhibitDescription string
	exhibitURL         string
)

var exhibitCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish an exhibit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		created, err := a.exhibits.Create(cmd.Context(), exhibit.CreateRequest{
			Title:       exhibitTitle,
			Description: exhibitDescription,
			ExhibitURL:  exhibitURL,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created exhibit #%d\n", created.ID)
		return nil
	},
}

var exhibitUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image and print its file ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ticket, err := a.exhibits.UploadURL(cmd.Context())
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(filepath.Ext(args[0]))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := a.exhibits.Upload(cmd.Context(), ticket.PresignedURL, f, contentType); err != nil {
			return err
		}
		fmt.Println(ticket.FileID)
		return nil
	},
}

var exhibitDownloadCmd = &cobra.Command{
	Use:   "download-url <file-id>",
	Short: "Resolve a file ID to a presigned download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(cmd.Context()); err != nil {
			return err
		}

		u, err := a.exhibits.DownloadURL(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(u)
		return nil
	},
}

var exhibitReadmeRef string

var exhibitReadmeCmd = &cobra.Command{
	Use:   "readme <owner> <repo>",
	Short: "Print a repository's README",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		content, err := a.exhibits.Readme(cmd.Context(), args[0], args[1], exhibitReadmeRef)
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil
	},
}

func init() {
	exhibitCreateCmd.Flags().StringVar(&exhibitTitle, "title", "", "exhibit title")
	exhibitCreateCmd.Flags().StringVar(&exhibitDescription, "description", "", "exhibit description")
	exhibitCreateCmd.Flags().StringVar(&exhibitURL, "url", "", "project URL, e.g. the GitHub repository")
	_ = exhibitCreateCmd.MarkFlagRequired("title")
	_ = exhibitCreateCmd.MarkFlagRequired("url")

	exhibitReadmeCmd.Flags().StringVar(&exhibitReadmeRef, "ref", "", "branch, tag, or commit (default branch when omitted)")

	exhibitCmd.AddCommand(exhibitListCmd, exhibitCreateCmd, exhibitUploadCmd, exhibitDownloadCmd, exhibitReadmeCmd)
	rootCmd.AddCommand(exhibitCmd)
}
