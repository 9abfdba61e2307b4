package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/geocoder89/adminpanel/internal/auth"
	"github.com/geocoder89/adminpanel/internal/client"
	"github.com/geocoder89/adminpanel/internal/domain/account"
	"github.com/geocoder89/adminpanel/internal/redisclient"
	"github.com/geocoder89/adminpanel/internal/session"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// readPassword is swapped in tests so nothing touches a terminal.
var readPassword = term.ReadPassword

type globals struct {
	server      string
	sessionFile string
	redisAddr   string
	profile     string
	output      string

	api   *client.Client
	close func() error
}

func newApp() *cli.App {
	g := &globals{}

	return &cli.App{
		Name:  "adminctl",
		Usage: "Manage accounts on an admin panel server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Aliases:     []string{"s"},
				Usage:       "Base URL of the API",
				Value:       "http://localhost:8080",
				EnvVars:     []string{"ADMINCTL_SERVER"},
				Destination: &g.server,
			},
			&cli.StringFlag{
				Name:        "session-file",
				Usage:       "Where the session is kept (default: user config dir)",
				EnvVars:     []string{"ADMINCTL_SESSION_FILE"},
				Destination: &g.sessionFile,
			},
			&cli.StringFlag{
				Name:        "redis-addr",
				Usage:       "Keep the session in Redis instead of a file",
				EnvVars:     []string{"ADMINCTL_REDIS_ADDR"},
				Destination: &g.redisAddr,
			},
			&cli.StringFlag{
				Name:        "profile",
				Usage:       "Session namespace when using Redis",
				Value:       "default",
				Destination: &g.profile,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "Output format: table or json",
				Value:       "table",
				Destination: &g.output,
			},
		},
		Before: func(ctx *cli.Context) error {
			return g.setup(ctx)
		},
		After: func(ctx *cli.Context) error {
			if g.close != nil {
				return g.close()
			}
			return nil
		},
		Commands: []*cli.Command{
			registerCmd(g),
			loginCmd(g),
			logoutCmd(g),
			meCmd(g),
			usersCmd(g),
		},
	}
}

func (g *globals) setup(ctx *cli.Context) error {
	if g.output != "table" && g.output != "json" {
		return fmt.Errorf("unknown output format %q", g.output)
	}

	cache, closeFn, err := g.openCache(ctx.Context)
	if err != nil {
		return err
	}
	g.close = closeFn

	g.api, err = client.New(g.server, cache)
	return err
}

func (g *globals) openCache(ctx context.Context) (session.Cache, func() error, error) {
	if g.redisAddr != "" {
		rc, err := redisclient.New(redisclient.Config{Addr: g.redisAddr})
		if err != nil {
			return nil, nil, err
		}
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return session.NewRedis(rc, g.profile, auth.TokenTTL), rc.Close, nil
	}

	path := g.sessionFile
	if path == "" {
		var err error
		path, err = session.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}
	return session.NewFile(path), nil, nil
}

func registerCmd(g *globals) *cli.Command {
	var name, email, password string
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and log in as it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Destination: &name},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Destination: &email},
			passwordFlag(&password),
		},
		Action: func(ctx *cli.Context) error {
			pw, err := resolvePassword(ctx, password)
			if err != nil {
				return err
			}
			user, err := g.api.Register(ctx.Context, name, email, pw)
			if err != nil {
				return err
			}
			return g.printAccount(ctx.App.Writer, "Registration successful", user)
		},
	}
}

func loginCmd(g *globals) *cli.Command {
	var email, password string
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Destination: &email},
			passwordFlag(&password),
		},
		Action: func(ctx *cli.Context) error {
			pw, err := resolvePassword(ctx, password)
			if err != nil {
				return err
			}
			user, err := g.api.Login(ctx.Context, email, pw)
			if err != nil {
				return err
			}
			return g.printAccount(ctx.App.Writer, "Login successful", user)
		},
	}
}

func logoutCmd(g *globals) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session",
		Action: func(ctx *cli.Context) error {
			if err := g.api.Logout(ctx.Context); err != nil {
				return err
			}
			fmt.Fprintln(ctx.App.Writer, "Logged out")
			return nil
		},
	}
}

func meCmd(g *globals) *cli.Command {
	return &cli.Command{
		Name:  "me",
		Usage: "Show the logged in account as the server sees it",
		Action: func(ctx *cli.Context) error {
			user, err := g.api.Me(ctx.Context)
			if err != nil {
				return err
			}
			return g.printAccount(ctx.App.Writer, "", user)
		},
	}
}

func usersCmd(g *globals) *cli.Command {
	var role string
	return &cli.Command{
		Name:  "users",
		Usage: "Administer accounts (admin only)",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every account, newest first",
				Action: func(ctx *cli.Context) error {
					users, err := g.api.ListUsers(ctx.Context)
					if err != nil {
						return err
					}
					return g.printAccounts(ctx.App.Writer, users)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete an account",
				ArgsUsage: "<id>",
				Action: func(ctx *cli.Context) error {
					id, err := singleArg(ctx)
					if err != nil {
						return err
					}
					if err := g.api.DeleteUser(ctx.Context, id); err != nil {
						return err
					}
					fmt.Fprintln(ctx.App.Writer, "User deleted")
					return nil
				},
			},
			{
				Name:      "set-role",
				Usage:     "Change the role of an account",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "user or admin", Required: true, Destination: &role},
				},
				Action: func(ctx *cli.Context) error {
					id, err := singleArg(ctx)
					if err != nil {
						return err
					}
					if !account.Role(role).Valid() {
						return fmt.Errorf("role must be user or admin, got %q", role)
					}
					user, err := g.api.SetRole(ctx.Context, id, account.Role(role))
					if err != nil {
						return err
					}
					return g.printAccount(ctx.App.Writer, "User role updated", user)
				},
			},
		},
	}
}

func passwordFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "password",
		Aliases:     []string{"p"},
		Usage:       "Password (prompted when omitted; use - to read a line from stdin)",
		EnvVars:     []string{"ADMINCTL_PASSWORD"},
		Destination: out,
	}
}

func resolvePassword(ctx *cli.Context, flagValue string) (string, error) {
	switch flagValue {
	case "":
	case "-":
		sc := bufio.NewScanner(ctx.App.Reader)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", errors.New("missing password from stdin")
		}
		return strings.TrimSpace(sc.Text()), nil
	default:
		return flagValue, nil
	}

	fmt.Fprint(ctx.App.ErrWriter, "Password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(ctx.App.ErrWriter)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func singleArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument, got %d", ctx.NArg())
	}
	return ctx.Args().First(), nil
}

func (g *globals) printAccount(w io.Writer, message string, a account.Account) error {
	if g.output == "json" {
		return json.NewEncoder(w).Encode(a)
	}

	if message != "" {
		fmt.Fprintln(w, message)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", a.ID)
	fmt.Fprintf(tw, "Name\t%s\n", a.Name)
	fmt.Fprintf(tw, "Email\t%s\n", a.Email)
	fmt.Fprintf(tw, "Role\t%s\n", a.Role)
	return tw.Flush()
}

func (g *globals) printAccounts(w io.Writer, users []account.Account) error {
	if g.output == "json" {
		return json.NewEncoder(w).Encode(users)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
