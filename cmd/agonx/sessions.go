package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			listing, err := a.dir.ListSessions(cmd.Context(), page, a.cfg.PageSize)
			if err != nil {
				return err
			}
			if len(listing.Items) == 0 {
				fmt.Println(mutedText("no sessions"))
				return nil
			}
			for _, session := range listing.Items {
				fmt.Printf("%s  %s  %s\n",
					mutedText(session.ID),
					titleText(session.Title),
					mutedText(fmt.Sprintf("%d messages, updated %s", session.MessageCount, session.UpdatedAt.Format("2006-01-02 15:04"))),
				)
			}
			fmt.Println(mutedText(fmt.Sprintf("page %d/%d (%d total)", listing.Page, (listing.Total+listing.PageSize-1)/max(listing.PageSize, 1), listing.Total)))
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page to list")

	var title string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			session, err := a.dir.CreateSession(cmd.Context(), title)
			if err != nil {
				return err
			}
			fmt.Printf("created %s %s\n", mutedText(session.ID), titleText(session.Title))
			return nil
		},
	}
	create.Flags().StringVar(&title, "title", "", "session title")

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			session, err := a.dir.RenameSession(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("renamed %s to %s\n", mutedText(session.ID), titleText(session.Title))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.orch.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", mutedText(args[0]))
			return nil
		},
	}

	cmd.AddCommand(list, create, rename, del)
	return cmd
}
