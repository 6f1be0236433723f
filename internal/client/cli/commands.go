package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/netx"
)

func (a *App) List(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	users, err := a.client.ListUsersAndTokens(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, ut := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ut.User.ID, ut.User.UserName, ut.User.Name)
		for _, t := range ut.Tokens {
			used := "unused"
			if t.IsUsed {
				used = "used"
			}
			fmt.Fprintf(tw, "  #%d\t%s\t%s .. %s\t%s left\t%s\n",
				t.ID, t.Name,
				t.StartAt.Local().Format(time.DateTime), t.EndAt.Local().Format(time.DateTime),
				time.Duration(t.Remaining)*time.Second, used)
		}
	}
	return tw.Flush()
}

func (a *App) Create(ctx context.Context) error {
	userID, err := GetSimpleText(a.reader, "User id", a.out)
	if err != nil {
		return err
	}
	name, err := GetSimpleText(a.reader, "Token name", a.out)
	if err != nil {
		return err
	}
	offset, err := GetInt(a.reader, "Start offset, minutes", 0, a.out)
	if err != nil {
		return err
	}
	ttl, err := GetInt(a.reader, "Duration, minutes", 60, a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	signed, err := a.client.CreateToken(ctx, userID, name, offset, ttl)
	if err != nil {
		return err
	}

	link, err := netx.LoginURL(a.config.PublicBaseURL, signed)
	if err != nil {
		fmt.Fprintln(a.out, "Token:", signed)
		return err
	}
	fmt.Fprintln(a.out, "Login link:", link)
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	s, err := GetSimpleText(a.reader, "Enter token id to delete", a.out)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not a token id: %q", s)
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.client.DeleteToken(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Token #%d deleted\n", id)
	return nil
}

func (a *App) AddUser(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		return errors.New("username is required")
	}
	name, err := GetSimpleText(a.reader, "Display name (empty for username)", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	u, err := a.client.CreateUser(ctx, userName, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s created, id %s\n", u.UserName, u.ID)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := netx.ProbeLogin(ctx, a.http, a.config.PublicBaseURL); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login endpoint OK")
	return nil
}
