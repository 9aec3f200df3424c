package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mmynk/cardsplit/internal/auth"
	"github.com/mmynk/cardsplit/internal/cli"
	"github.com/mmynk/cardsplit/internal/config"
	"github.com/mmynk/cardsplit/internal/middleware"
	"github.com/mmynk/cardsplit/internal/models"
	"github.com/mmynk/cardsplit/internal/service"
)

var errUsage = errors.New("unknown command")

type app struct {
	cfg        *config.Config
	token      string
	jwtManager *auth.JWTManager

	sharing  *service.SharingService
	invoices *service.InvoiceService
	accounts *service.AccountService

	out io.Writer
}

type command struct {
	run  middleware.Command
	auth bool
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"register":    {run: a.register},
		"login":       {run: a.login},
		"recalculate": {run: a.recalculate},

		"whoami":       {run: a.whoami, auth: true},
		"contact-add":  {run: a.contactAdd, auth: true},
		"card-add":     {run: a.cardAdd, auth: true},
		"invoice-add":  {run: a.invoiceAdd, auth: true},
		"item-add":     {run: a.itemAdd, auth: true},
		"item-edit":    {run: a.itemEdit, auth: true},
		"invoice":      {run: a.invoice, auth: true},
		"split":        {run: a.split, auth: true},
		"unsplit":      {run: a.unsplit, auth: true},
		"shares":       {run: a.shares, auth: true},
		"pay":          {run: a.pay, auth: true},
		"unpay":        {run: a.unpay, auth: true},
		"user-share":   {run: a.userShare, auth: true},
		"participants": {run: a.participants, auth: true},
	}
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	name := args[0]
	cmd, ok := a.commands()[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUsage, name)
	}

	interceptors := []middleware.Interceptor{middleware.Logging(name)}
	if cmd.auth || name == "register" || name == "login" {
		interceptors = append(interceptors, a.requireSecret)
	}
	if cmd.auth {
		interceptors = append(interceptors, middleware.RequireAuth(a.jwtManager, a.token))
	}

	return middleware.Chain(cmd.run, interceptors...)(ctx, args[1:])
}

// requireSecret fails token commands early when no JWT secret is configured.
func (a *app) requireSecret(next middleware.Command) middleware.Command {
	return func(ctx context.Context, args []string) error {
		if err := a.cfg.RequireJWTSecret(); err != nil {
			return err
		}
		return next(ctx, args)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	in, err := cli.ParseAccount("register", args)
	if err != nil {
		return err
	}
	user, token, err := a.accounts.Register(ctx, in.Email, in.Name, in.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user %s\ntoken %s\n", user.ID, token)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	in, err := cli.ParseAccount("login", args)
	if err != nil {
		return err
	}
	user, token, err := a.accounts.Login(ctx, in.Email, in.Password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user %s\ntoken %s\n", user.ID, token)
	return nil
}

func (a *app) whoami(ctx context.Context, _ []string) error {
	user, err := a.accounts.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", user.ID, user.DisplayName, user.Email)
	return nil
}

func (a *app) contactAdd(ctx context.Context, args []string) error {
	in, err := cli.ParseContact(args)
	if err != nil {
		return err
	}
	contact, err := a.accounts.AddContact(ctx, in.Name, in.Email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, models.ContactParticipant(contact.ID))
	return nil
}

func (a *app) cardAdd(ctx context.Context, args []string) error {
	name, err := cli.ParseCard(args)
	if err != nil {
		return err
	}
	card, err := a.invoices.CreateCard(ctx, middleware.GetUserID(ctx), name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, card.ID)
	return nil
}

func (a *app) invoiceAdd(ctx context.Context, args []string) error {
	in, err := cli.ParseInvoiceNew(args)
	if err != nil {
		return err
	}
	inv, err := a.invoices.CreateInvoice(ctx, middleware.GetUserID(ctx), in.CardID, in.Period)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, inv.ID)
	return nil
}

func (a *app) itemAdd(ctx context.Context, args []string) error {
	in, err := cli.ParseItemAdd(args)
	if err != nil {
		return err
	}
	item, err := a.invoices.AddItem(ctx, middleware.GetUserID(ctx), in.InvoiceID, in.Description, in.Amount)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, item.ID)
	return nil
}

func (a *app) itemEdit(ctx context.Context, args []string) error {
	in, err := cli.ParseItemEdit(args)
	if err != nil {
		return err
	}
	item, err := a.invoices.UpdateItemAmount(ctx, middleware.GetUserID(ctx), in.ItemID, in.Amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\n", item.ID, item.Amount.StringFixed(2))
	return nil
}

func (a *app) invoice(ctx context.Context, args []string) error {
	in, err := cli.ParseInvoice("invoice", args)
	if err != nil {
		return err
	}
	inv, err := a.invoices.GetInvoice(ctx, in.InvoiceID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ITEM\tDESCRIPTION\tAMOUNT\tSHARED\tUNSHARED\n")
	for i := range inv.Items {
		it := &inv.Items[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Description,
			it.Amount.StringFixed(2), it.SharedAmount().StringFixed(2), it.UnsharedAmount().StringFixed(2))
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\t\t\n", inv.Period, inv.Total().StringFixed(2))
	return w.Flush()
}

func (a *app) split(ctx context.Context, args []string) error {
	in, err := cli.ParseSplit(args)
	if err != nil {
		return err
	}
	shares, err := a.sharing.SplitItem(ctx, middleware.GetUserID(ctx), in.ItemID, in.Requests)
	if err != nil {
		return err
	}
	return a.printShares(shares)
}

func (a *app) unsplit(ctx context.Context, args []string) error {
	itemID, err := cli.ParseID("unsplit", "item", args)
	if err != nil {
		return err
	}
	n, err := a.sharing.UnsplitItem(ctx, middleware.GetUserID(ctx), itemID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d shares\n", n)
	return nil
}

func (a *app) shares(ctx context.Context, args []string) error {
	in, err := cli.ParseShares(args)
	if err != nil {
		return err
	}

	var shares []models.Share
	if in.ItemID != "" {
		shares, err = a.sharing.GetSharesForItem(ctx, in.ItemID)
	} else {
		userID := in.UserID
		if userID == "" {
			userID = middleware.GetUserID(ctx)
		}
		shares, err = a.sharing.GetSharesForUser(ctx, userID)
	}
	if err != nil {
		return err
	}
	return a.printShares(shares)
}

func (a *app) pay(ctx context.Context, args []string) error {
	in, err := cli.ParsePay(args)
	if err != nil {
		return err
	}
	shares, err := a.sharing.MarkSharesAsPaidBulk(ctx, in.ShareIDs, in.Method, in.PaidAt, middleware.GetUserID(ctx))
	if err != nil {
		return err
	}
	return a.printShares(shares)
}

func (a *app) unpay(ctx context.Context, args []string) error {
	shareID, err := cli.ParseID("unpay", "share", args)
	if err != nil {
		return err
	}
	share, err := a.sharing.MarkShareAsUnpaid(ctx, shareID, middleware.GetUserID(ctx))
	if err != nil {
		return err
	}
	return a.printShares([]models.Share{*share})
}

func (a *app) recalculate(ctx context.Context, _ []string) error {
	n, err := a.sharing.RecalculateAllShares(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "recalculated %d items\n", n)
	return nil
}

func (a *app) userShare(ctx context.Context, args []string) error {
	in, err := cli.ParseInvoice("user-share", args)
	if err != nil {
		return err
	}
	userID := in.UserID
	if userID == "" {
		userID = middleware.GetUserID(ctx)
	}
	amount, err := a.invoices.CalculateUserShare(ctx, in.InvoiceID, userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, amount.StringFixed(2))
	return nil
}

func (a *app) participants(ctx context.Context, args []string) error {
	in, err := cli.ParseInvoice("participants", args)
	if err != nil {
		return err
	}
	rows, err := a.invoices.CalculateOtherParticipantShares(ctx, in.InvoiceID, middleware.GetUserID(ctx))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tEMAIL\tSHARES\tTOTAL\tPAID\tPENDING\n")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", r.Name, r.Email, r.ShareCount,
			r.TotalAmount.StringFixed(2), r.PaidAmount.StringFixed(2), r.PendingAmount().StringFixed(2))
	}
	return w.Flush()
}

func (a *app) printShares(shares []models.Share) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "SHARE\tITEM\tPARTICIPANT\tPCT\tAMOUNT\tPAID\n")
	for _, s := range shares {
		paid := "no"
		if s.Paid {
			paid = "yes"
			if s.PaymentMethod != "" {
				paid += " (" + s.PaymentMethod + ")"
			}
		}
		resp := ""
		if s.Responsible {
			resp = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s%s\t%s\t%s\t%s\n", s.ID, s.ItemID, s.Participant, resp,
			s.Percentage.String(), s.Amount.StringFixed(2), paid)
	}
	return w.Flush()
}
