package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ampm-club/portal/internal/session"
)

// watchSession follows the persisted profile and reports session changes
// made by other portal processes until ctx is done. A rewrite by another
// login prints the new identity; a removal means that process signed out,
// which clears this session too.
func watchSession(ctx context.Context, store *session.Store, out io.Writer) error {
	events, err := store.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch session: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev {
			case session.EventSignedOut:
				fmt.Fprintln(out, "signed out by another process")
			case session.EventUserUpdated:
				if user := store.User(); user != nil {
					fmt.Fprintf(out, "session updated: %s (%s)\n", user.StudentName, user.StudentNumber)
				}
			}
		}
	}
}
