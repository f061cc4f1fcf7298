package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/revrsefr/sable/internal/server/auth"
	"github.com/spf13/cobra"
)

// SecretEnv names the environment variable holding the signing secret.
const SecretEnv = "SABLE_SECRET"

// newTokenCommand mints an access token with the server's signing secret.
// The secret comes from --secret, SABLE_SECRET, or a prompt.
func newTokenCommand() *cobra.Command {
	var (
		secret string
		user   string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv(SecretEnv)
			}
			if secret == "" {
				s, err := GetSecret(cmd.ErrOrStderr(), "Signing secret")
				if err != nil {
					return err
				}
				secret = s
			}

			tok, err := auth.GenerateToken(user, auth.Role(role), []byte(secret), ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&secret, "secret", "", "signing secret")
	f.StringVarP(&user, "user", "u", "", "user id the token is issued to")
	f.StringVar(&role, "role", string(auth.RoleUser), "role: user or server")
	f.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
