package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"quiz-api/internal/config"
)

// NewCreateUserCmd creates an account, or resets the password and role of an existing one.
func NewCreateUserCmd(configPath *string) *cobra.Command {
	var (
		username string
		password string
		admin    bool
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create or update a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			user, err := newAuthService(db, cfg).EnsureUser(cmd.Context(), username, password, admin)
			if err != nil {
				return err
			}
			log.Printf("user %s has id %d", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "plain text password")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}
