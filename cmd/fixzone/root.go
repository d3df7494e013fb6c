package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fixzone/fixzone-portal/config"
	"github.com/fixzone/fixzone-portal/internal/adapters/authapi"
	"github.com/fixzone/fixzone-portal/internal/adapters/boltstore"
	domainauth "github.com/fixzone/fixzone-portal/internal/domain/auth"
	"github.com/fixzone/fixzone-portal/internal/service"
)

const (
	envAPIURL   = "FIXZONE_API_BASE_URL"
	envStateDir = "FIXZONE_STATE"
	envPassword = "FIXZONE_PASSWORD"
)

type rootOptions struct {
	apiURL    string
	statePath string
	lang      string
	timeout   time.Duration
	jsonOut   bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "fixzone",
		Short:         "Sign in to FixZone and inspect portal access",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", envOr(envAPIURL, config.DevBackendURL), "FixZone API base URL")
	flags.StringVar(&opts.statePath, "state", envOr(envStateDir, defaultStatePath()), "session state file")
	flags.StringVar(&opts.lang, "lang", "en", "message language (en or ar)")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "backend call timeout")
	flags.BoolVar(&opts.jsonOut, "json", false, "print JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log backend calls to stderr")

	cmd.AddCommand(newAuthCmd(opts), newRouteCmd(opts))
	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fixzone-state.db"
	}
	return filepath.Join(dir, "fixzone", "state.db")
}

func (o *rootOptions) language() domainauth.Lang { return domainauth.ParseLang(o.lang) }

func (o *rootOptions) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// cliSession is one command's view of the saved session: the store, its
// bbolt persistence, and the backend cookies that carry the credential.
type cliSession struct {
	store  *service.SessionStore
	bolt   *boltstore.StateStorage
	jar    http.CookieJar
	origin *url.URL
	logger *slog.Logger
}

// openSession loads the saved state and cookies and returns a context whose
// backend calls use them.
func openSession(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*cliSession, context.Context, error) {
	logger := opts.logger(cmd.ErrOrStderr())

	client, err := authapi.NewClient(authapi.Config{
		BaseURL: opts.apiURL,
		Timeout: opts.timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}

	if err = os.MkdirAll(filepath.Dir(opts.statePath), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create state directory: %w", err)
	}
	bolt, err := boltstore.Open(opts.statePath)
	if err != nil {
		return nil, nil, err
	}

	origin := client.BaseURL()
	jar, err := authapi.NewJar()
	if err != nil {
		return nil, nil, errors.Join(err, bolt.Close())
	}
	saved, err := bolt.LoadCookies(origin.String(), time.Now())
	if err != nil {
		return nil, nil, errors.Join(err, bolt.Close())
	}
	for _, c := range saved {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	jar.SetCookies(origin, saved)

	store := service.NewSessionStore(service.SessionStoreOptions{
		Backend:        client,
		Storage:        bolt,
		Logger:         logger,
		RestoreTimeout: opts.timeout,
	})
	ctx = authapi.WithJar(ctx, jar)
	store.Rehydrate(ctx)

	return &cliSession{store: store, bolt: bolt, jar: jar, origin: origin, logger: logger}, ctx, nil
}

// Close saves the backend cookies for the next command and releases the file.
func (s *cliSession) Close() error {
	var errs []error
	if err := s.bolt.SaveCookies(s.origin.String(), s.jar.Cookies(s.origin)); err != nil {
		errs = append(errs, fmt.Errorf("save cookies: %w", err))
	}
	if err := s.bolt.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withSession runs fn against the saved session and always saves it afterwards.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, s *cliSession) error) (err error) {
	s, ctx, err := openSession(cmd.Context(), cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(ctx, s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
