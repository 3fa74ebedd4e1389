// Command create-admin provisions admin accounts in the configured
// database. Without flags it creates the bootstrap admin with the configured
// seed password, the same way POST /api/admin/seed does. --disable and
// --enable toggle an existing account; a disabled admin can neither log in
// nor use a token issued earlier.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"storefront-tma-backend/internal/app/auth"
	"storefront-tma-backend/internal/apperror"
	"storefront-tma-backend/internal/config"
	"storefront-tma-backend/internal/password"
	"storefront-tma-backend/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "create-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var username, plain, disable, enable string

	flagSet := pflag.NewFlagSet("create-admin", pflag.ContinueOnError)
	flagSet.StringVarP(&username, "username", "u", "", "admin username (default: bootstrap admin)")
	flagSet.StringVarP(&plain, "password", "p", "", "admin password, required with --username")
	flagSet.StringVar(&disable, "disable", "", "deactivate the named admin")
	flagSet.StringVar(&enable, "enable", "", "reactivate the named admin")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	username = strings.TrimSpace(username)
	disable, enable = strings.TrimSpace(disable), strings.TrimSpace(enable)
	toggle := disable != "" || enable != ""
	if toggle && (username != "" || plain != "" || (disable != "" && enable != "")) {
		return errors.New("--disable and --enable take one username and no other flags")
	}
	if username == "" && plain != "" {
		return errors.New("--password requires --username")
	}
	if username != "" && strings.TrimSpace(plain) == "" {
		return errors.New("--username requires a non-blank --password")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case disable != "":
		return setActive(ctx, st, disable, false, out)
	case enable != "":
		return setActive(ctx, st, enable, true, out)
	case username == "":
		return seed(ctx, st, cfg, out)
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return err
	}
	admin, err := st.CreateAdmin(ctx, username, hash)
	if errors.Is(err, store.ErrAdminExists) {
		fmt.Fprintf(out, "admin %q already exists, nothing to do\n", username)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %q (id %d)\n", admin.Username, admin.ID)
	return nil
}

func seed(ctx context.Context, st *store.Store, cfg config.Config, out io.Writer) error {
	svc := auth.NewService(st, auth.Options{
		JWTSecret:    cfg.Auth.JWTSecret,
		SeedPassword: cfg.Admin.SeedPassword,
	})

	admin, err := svc.SeedAdmin(ctx)
	if errors.Is(err, apperror.ErrAlreadyExists) {
		fmt.Fprintln(out, "an admin already exists, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %q (id %d); change its password\n", admin.Username, admin.ID)
	return nil
}

func setActive(ctx context.Context, st *store.Store, username string, active bool, out io.Writer) error {
	admin, err := st.AdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("admin %q does not exist", username)
	}
	if err != nil {
		return err
	}
	if err := st.SetAdminActive(ctx, admin.ID, active); err != nil {
		return err
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(out, "admin %q %s\n", admin.Username, state)
	return nil
}
