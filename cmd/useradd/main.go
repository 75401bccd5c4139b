// Command useradd registers a file store account from the command line.
//
//	useradd [-d dsn] [-c config.json] <username>
//
// The password is read from the terminal without echo.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/console"
	"github.com/dmitrijs2005/filestore/internal/flagx"
	"github.com/dmitrijs2005/filestore/internal/server"
	"github.com/dmitrijs2005/filestore/internal/server/config"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filestore/internal/server/services"
)

// registrar is the part of UserService this command needs.
type registrar interface {
	Register(ctx context.Context, username, password string) error
}

type userServiceRegistrar struct{ s *services.UserService }

func (r userServiceRegistrar) Register(ctx context.Context, username, password string) error {
	_, err := r.s.Register(ctx, username, password)
	return err
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := server.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	if err := run(ctx, db, cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *sql.DB, cfg *config.Config, args []string, in io.Reader, out io.Writer) error {
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return addUser(ctx, userServiceRegistrar{s: services.NewUserService(db, rm, cfg)}, console.GetNewPassword, args, in, out)
}

func addUser(ctx context.Context, r registrar, getPassword func(io.Writer) ([]byte, error), args []string, in io.Reader, out io.Writer) error {
	var username string
	if pos := flagx.Positional(args, config.ValueFlags()); len(pos) > 0 {
		username = pos[0]
	} else {
		u, err := console.GetSimpleText(bufio.NewReader(in), "Enter user name", out)
		if err != nil {
			return err
		}
		username = u
	}
	if username == "" {
		return errors.New("username is required")
	}

	password, err := getPassword(out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := r.Register(ctx, username, string(password)); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}

	fmt.Fprintf(out, "User %s registered\n", username)
	return nil
}
