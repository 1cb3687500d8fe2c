package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rejoiceinstitute/rejoice-web/config"
	"github.com/rejoiceinstitute/rejoice-web/internal/bootstrap"
	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

var errUIDRequired = errors.New("--uid is required")

func runShowProfile(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show-profile", flag.ContinueOnError)
	uid := fs.String("uid", "", "account uid")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uid == "" {
		return errUIDRequired
	}

	store, err := cmdCtx.Profiles()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	return showProfile(ctx, store, *uid, cmdCtx.Out)
}

func showProfile(ctx context.Context, store ports.ProfileStore, uid string, w io.Writer) error {
	p, err := store.ReadProfile(ctx, uid)
	if err != nil {
		return fmt.Errorf("read profile %s: %w", uid, err)
	}
	if p == nil {
		return fmt.Errorf("no profile for uid %s", uid)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(domainauth.ProfileRecord{UID: uid, Profile: *p})
}

type listOptions struct {
	Role   domainauth.Role
	Limit  int
	Offset int
}

func parseListFlags(args []string) (listOptions, error) {
	fs := flag.NewFlagSet("list-profiles", flag.ContinueOnError)
	role := fs.String("role", "", "only list this account type")
	limit := fs.Int("limit", 50, "maximum rows")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := fs.Parse(args); err != nil {
		return listOptions{}, err
	}
	opts := listOptions{Role: domainauth.Role(strings.ToLower(strings.TrimSpace(*role))), Limit: *limit, Offset: *offset}
	if opts.Role != "" && !opts.Role.IsKnown() {
		return listOptions{}, fmt.Errorf("unknown role %q", *role)
	}
	if opts.Limit <= 0 || opts.Offset < 0 {
		return listOptions{}, errors.New("--limit must be positive and --offset non-negative")
	}
	return opts, nil
}

func runListProfiles(cmdCtx *commandContext, args []string) error {
	opts, err := parseListFlags(args)
	if err != nil {
		return err
	}
	store, err := cmdCtx.Profiles()
	if err != nil {
		return err
	}
	lister, ok := store.(ports.ProfileLister)
	if !ok {
		return fmt.Errorf("profile backend %q cannot list profiles", cmdCtx.Config.Profiles.Backend)
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()
	return listProfiles(ctx, lister, opts, cmdCtx.Out)
}

func listProfiles(ctx context.Context, lister ports.ProfileLister, opts listOptions, w io.Writer) error {
	records, err := lister.ListProfiles(ctx, opts.Role, opts.Limit, opts.Offset)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "(no profiles)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tEMAIL\tROLE\tNAME\tCREATED\tACTIVE")
	for _, r := range records {
		p := r.Profile
		name := strings.TrimSpace(p.FirstName + " " + p.LastName)
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			r.UID, p.Email, p.Role, name, p.CreatedAt.Format(time.RFC3339), p.IsActive)
	}
	return tw.Flush()
}

func runSetRole(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("set-role", flag.ContinueOnError)
	uid := fs.String("uid", "", "account uid")
	role := fs.String("role", "", "new account type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uid == "" {
		return errUIDRequired
	}

	store, err := cmdCtx.Profiles()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	p, err := setRole(ctx, store, *uid, *role)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("role updated", "uid", *uid, "email", p.Email, "role", p.Role)
	return nil
}

func setRole(ctx context.Context, store ports.ProfileStore, uid, role string) (*domainauth.Profile, error) {
	r := domainauth.Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.IsKnown() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	p, err := store.UpdateProfile(ctx, uid, domainauth.ProfileUpdate{Role: &r})
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", uid, err)
	}
	return p, nil
}

func runResolve(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	selected := fs.String("selected", "", "account type chosen on the registration form")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	role, err := resolveRole(cmdCtx.Config.Auth.Roles, *email, *selected, cmdCtx.Logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmdCtx.Out, "%s -> %s (policy %s)\n", *email, role, policyName(cmdCtx.Config.Auth.Roles))
	return err
}

func resolveRole(cfg config.RolesConfig, email, selected string, logger *slog.Logger) (domainauth.Role, error) {
	resolver, _, err := bootstrap.BuildRoles(cfg, logger)
	if err != nil {
		return "", err
	}
	return resolver.Resolve(ports.RoleInput{
		Email:    email,
		Selected: domainauth.Role(strings.ToLower(strings.TrimSpace(selected))),
	}), nil
}

func policyName(cfg config.RolesConfig) string {
	if cfg.Policy == "" {
		return "hybrid"
	}
	return cfg.Policy
}
