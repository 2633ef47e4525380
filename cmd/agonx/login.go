package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/doAIs/AgonX/internal/auth"
)

// newLoginCmd stores a bearer token in the on-disk credential store. Token
// issuance itself happens out of band (web login or an ops-provided token);
// the CLI only keeps the credential and clears it again when the server
// rejects it.
func newLoginCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store an API token for subsequent commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()

			var token string
			if len(args) == 1 {
				token = strings.TrimSpace(args[0])
			} else {
				fmt.Print("token: ")
				if term.IsTerminal(int(os.Stdin.Fd())) {
					raw, err := term.ReadPassword(int(os.Stdin.Fd()))
					fmt.Println()
					if err != nil {
						return err
					}
					token = strings.TrimSpace(string(raw))
				} else {
					line, err := bufio.NewReader(os.Stdin).ReadString('\n')
					if err != nil && line == "" {
						return err
					}
					token = strings.TrimSpace(line)
				}
			}
			if token == "" {
				return fmt.Errorf("empty token")
			}

			store := auth.NewFileTokenStore(a.cfg.TokenFile)
			if err := store.Set(token); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			fmt.Println("token stored")
			return nil
		},
	}
}
