package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/credentials"
	"github.com/alfredjeanlab/dojolog/internal/events"
	"github.com/alfredjeanlab/dojolog/internal/ui"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in to the hosted remote",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RESTURL == "" {
			return fmt.Errorf("login requires DOJO_REST_URL")
		}
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		password, err := ui.ReadPassword(os.Stderr, "Password: ")
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tok, err := newRESTClient().SignIn(ctx, email, password)
		if err != nil {
			return err
		}

		creds := credentials.Credentials{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			UserID:       tok.User.ID,
			Email:        tok.User.Email,
		}
		if tok.ExpiresIn > 0 {
			creds.ExpiresAt = tok.ExpiresAt(timeNow().UTC())
		}
		if err := credentials.Save(cfg.CredentialsPath, creds); err != nil {
			return err
		}
		announceIdentity(creds.UserID)

		if jsonOutput {
			return printJSON(map[string]string{"user_id": creds.UserID, "email": creds.Email})
		}
		fmt.Printf("Signed in as %s\n", ui.RenderAccent(creds.Email))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Sign out and forget stored tokens",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RESTURL != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := newRESTClient().SignOut(ctx); err != nil {
				// The local sign-out still proceeds.
				logger.Warn("remote sign-out failed", "err", err)
			}
		}
		if err := credentials.Clear(cfg.CredentialsPath); err != nil {
			return err
		}
		announceIdentity("")
		if !jsonOutput {
			fmt.Println("Signed out")
		}
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in user",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials.Load(cfg.CredentialsPath)
		if err != nil {
			return err
		}
		userID := creds.ActiveUserID(timeNow())

		if jsonOutput {
			return printJSON(map[string]any{
				"user_id":    userID,
				"email":      creds.Email,
				"expired":    creds.AccessToken != "" && creds.Expired(timeNow()),
				"expires_at": creds.ExpiresAt,
			})
		}
		switch {
		case userID != "":
			fmt.Printf("%s (%s)\n", creds.Email, ui.RenderMuted(userID))
		case creds.AccessToken != "":
			fmt.Println("Session expired; run dojo login")
		default:
			fmt.Println("Not signed in")
		}
		return nil
	},
}

// announceIdentity tells running servers about a sign-in or sign-out.
// Servers also watch the credentials file, so this is best effort.
func announceIdentity(userID string) {
	if cfg.NATSURL == "" {
		return
	}
	bus, err := events.Connect(cfg.NATSURL)
	if err != nil {
		logger.Debug("identity announcement skipped", "err", err)
		return
	}
	defer bus.Close()
	if err := bus.Publish(context.Background(), events.TopicIdentityChanged, events.IdentityChanged{UserID: userID}); err != nil {
		logger.Warn("identity announcement failed", "err", err)
		return
	}
	if err := bus.Flush(); err != nil {
		logger.Warn("identity announcement failed", "err", err)
	}
}

func init() {
	loginCmd.Flags().StringP("email", "e", "", "account email")
}
