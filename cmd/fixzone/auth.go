package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/domain/guard"
)

var errNotSignedIn = errors.New("not signed in")

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the saved FixZone session",
	}
	cmd.AddCommand(
		newLoginCmd(opts),
		newStatusCmd(opts),
		newWhoamiCmd(opts),
		newLogoutCmd(opts),
	)
	return cmd
}

type sessionView struct {
	Authenticated bool                 `json:"authenticated"`
	User          *domainauth.Identity `json:"user,omitempty"`
	Audience      domainauth.Audience  `json:"audience,omitempty"`
	Home          string               `json:"home,omitempty"`
}

func viewOf(st domainauth.State) sessionView {
	v := sessionView{Authenticated: st.IsAuthenticated, User: st.User}
	if aud, ok := st.Audience(); ok {
		v.Audience = aud
		v.Home = guard.HomeFor(aud)
	}
	return v
}

func printSession(w io.Writer, opts *rootOptions, st domainauth.State) error {
	v := viewOf(st)
	if opts.jsonOut {
		return printJSON(w, v)
	}
	if !v.Authenticated {
		_, err := fmt.Fprintln(w, "Not signed in.")
		return err
	}
	_, err := fmt.Fprintf(w, "Signed in as %s (%s). Home: %s\n", displayName(*v.User), v.Audience, v.Home)
	return err
}

func displayName(id domainauth.Identity) string {
	for _, s := range []string{id.Name, id.Email, id.Phone} {
		if s != "" {
			return s
		}
	}
	return fmt.Sprintf("user %d", id.ID)
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var identifier, password string
	cmd := &cobra.Command{
		Use:   "login [email-or-phone]",
		Short: "Sign in and save the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				identifier = args[0]
			}
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if password == "" {
				var err error
				if password, err = promptLine(cmd, "Password: "); err != nil {
					return err
				}
			}
			return withSession(cmd, opts, func(ctx context.Context, s *cliSession) error {
				if err := s.store.Login(ctx, identifier, password); err != nil {
					return errors.New(domainauth.Localize(err, opts.language()))
				}
				return printSession(cmd.OutOrStdout(), opts, s.store.State())
			})
		},
	}
	cmd.Flags().StringVarP(&identifier, "identifier", "u", "", "email or phone number")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or set "+envPassword+")")
	return cmd
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	if _, err := fmt.Fprint(cmd.ErrOrStderr(), prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the saved session with the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *cliSession) error {
				s.store.RestoreSession(ctx)
				return printSession(cmd.OutOrStdout(), opts, s.store.State())
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *cliSession) error {
				if !s.store.RestoreSession(ctx) {
					return errNotSignedIn
				}
				st := s.store.State()
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), st.User)
				}
				u := st.User
				aud, _ := st.Audience()
				w := cmd.OutOrStdout()
				_, err := fmt.Fprintf(w, "id:       %d\nname:     %s\nemail:    %s\nphone:    %s\nrole:     %d\naudience: %s\n",
					u.ID, u.Name, u.Email, u.Phone, u.RoleID, aud)
				if err == nil && aud == domainauth.AudienceCustomer {
					_, err = fmt.Fprintf(w, "customer: %d\n", u.CustomerRef())
				}
				return err
			})
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *cliSession) error {
				s.store.Logout(ctx)
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return err
			})
		},
	}
}
