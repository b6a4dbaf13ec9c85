package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	authdomain "eportfolio/backend/internal/domain/auth"
	"eportfolio/backend/internal/infrastructure/password"
	"eportfolio/backend/internal/portal/routeguard"
	"eportfolio/backend/internal/portal/session"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func loginCmd(a *app) *cobra.Command {
	var email, pw string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with email and password. When --password is omitted the
password is read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pw == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				pw = line
			}

			if err := a.store.Login(cmd.Context(), email, pw); err != nil {
				return describe(err)
			}

			snap := a.store.Current()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s <%s> (%s)\n", snap.Identity.Name, snap.Identity.Email, snap.Role())
			fmt.Fprintf(out, "Dashboard: %s\n", authdomain.DefaultPath(snap.Role()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (case-sensitive)")
	cmd.Flags().StringVarP(&pw, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			a.store.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session and its navigation",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			snap := a.store.Current()
			if !snap.IsAuthenticated {
				fmt.Fprintln(out, "Not signed in.")
				return
			}

			fmt.Fprintf(out, "Name:    %s\n", snap.Identity.Name)
			fmt.Fprintf(out, "Email:   %s\n", snap.Identity.Email)
			fmt.Fprintf(out, "Role:    %s\n", snap.Role())
			fmt.Fprintf(out, "Expires: %s\n", snap.ExpiresAt.Local().Format(time.RFC3339))
			fmt.Fprintln(out, "Menu:")
			for _, entry := range authdomain.Navigation(snap.Role()) {
				fmt.Fprintf(out, "  %-24s %s\n", entry.Path, entry.Label)
			}
		},
	}
}

func profileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Ask the server which claims it accepts for the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := a.store.Profile(cmd.Context())
			if err != nil {
				if errors.Is(err, session.ErrUnauthorized) {
					return fmt.Errorf("session rejected by server, signed out: %w", describe(err))
				}
				return describe(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %s\n", profile.ID)
			fmt.Fprintf(out, "Email:   %s\n", profile.Email)
			fmt.Fprintf(out, "Role:    %s\n", profile.Role)
			fmt.Fprintf(out, "Issued:  %s\n", time.Unix(profile.IssuedAt, 0).Format(time.RFC3339))
			fmt.Fprintf(out, "Expires: %s\n", time.Unix(profile.ExpiresAt, 0).Format(time.RFC3339))
			return nil
		},
	}
}

func openCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Check whether the session may open a dashboard view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := a.store.Current()
			decision := routeguard.Resolve(args[0], snap)
			out := cmd.OutOrStdout()

			switch decision.Kind {
			case routeguard.Allow:
				fmt.Fprintf(out, "allow %s\n", args[0])
				if label, ok := labelFor(snap.Role(), args[0]); ok {
					fmt.Fprintf(out, "view: %s\n", label)
				}
				return nil
			case routeguard.Redirect:
				fmt.Fprintf(out, "redirect %s\n", decision.Location)
				return nil
			default:
				return fmt.Errorf("unknown view %q", args[0])
			}
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for seeding the directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				plain = line
			}
			if plain == "" {
				return errors.New("password must not be empty")
			}

			hash, err := password.NewBcrypt(cost).Hash(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func labelFor(role authdomain.Role, path string) (string, bool) {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	for _, entry := range authdomain.Navigation(role) {
		if entry.Path == path {
			return entry.Label, true
		}
	}
	return "", false
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe turns API errors into the server's own message.
func describe(err error) error {
	var apiErr *session.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	if errors.Is(err, session.ErrNotAuthenticated) {
		return errors.New("not signed in, run 'portalctl login' first")
	}
	return err
}
