package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/cardsplit/internal/calculator"
	"github.com/mmynk/cardsplit/internal/models"
)

var ErrMissingCommand = errors.New("missing command")

type Global struct {
	DBPath string
	Token  string
}

// ParseGlobal parses the global flags and returns the remaining arguments,
// starting with the subcommand name.
func ParseGlobal(args []string) (Global, []string, error) {
	var g Global

	fs := newFlagSet("cardsplit")
	fs.StringVar(&g.DBPath, "db", "", "SQLite database path")
	fs.StringVar(&g.Token, "token", "", "Token naming the acting user (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Global{}, nil, err
	}

	if g.DBPath == "" {
		g.DBPath = os.Getenv("DB_PATH")
	}
	if g.Token == "" {
		g.Token = os.Getenv("CARDSPLIT_TOKEN")
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return Global{}, nil, ErrMissingCommand
	}
	return g, rest, nil
}

type SplitArgs struct {
	ItemID   string
	Requests []models.AllocationRequest
}

// ParseSplit parses "split -item ID spec..." or "split -item ID -even participant...".
func ParseSplit(args []string) (SplitArgs, error) {
	var (
		a    SplitArgs
		even bool
	)

	fs := newFlagSet("split")
	fs.StringVar(&a.ItemID, "item", "", "Invoice item ID")
	fs.BoolVar(&even, "even", false, "Split evenly among the listed participants")

	if err := fs.Parse(args); err != nil {
		return SplitArgs{}, err
	}
	if a.ItemID == "" {
		return SplitArgs{}, errors.New("-item is required")
	}

	if even {
		participants := make([]models.Participant, 0, fs.NArg())
		for _, s := range fs.Args() {
			p, err := models.ParseParticipant(s)
			if err != nil {
				return SplitArgs{}, err
			}
			participants = append(participants, p)
		}
		if len(participants) == 0 {
			return SplitArgs{}, errors.New("-even needs at least one participant")
		}
		a.Requests = calculator.EvenSplit(participants)
		return a, nil
	}

	reqs, err := ParseShareSpecs(fs.Args())
	if err != nil {
		return SplitArgs{}, err
	}
	a.Requests = reqs
	return a, nil
}

// ParseShareSpecs parses <kind>:<id>=<percentage>[*] specs in order.
func ParseShareSpecs(specs []string) ([]models.AllocationRequest, error) {
	reqs := make([]models.AllocationRequest, 0, len(specs))
	for _, spec := range specs {
		ref, pct, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("share %q: want <kind>:<id>=<percentage>", spec)
		}

		p, err := models.ParseParticipant(ref)
		if err != nil {
			return nil, err
		}

		responsible := strings.HasSuffix(pct, "*")
		pct = strings.TrimSuffix(pct, "*")

		percentage, err := parsePercentage(pct)
		if err != nil {
			return nil, fmt.Errorf("share %q: %w", spec, err)
		}

		reqs = append(reqs, models.AllocationRequest{
			Participant: p,
			Percentage:  percentage,
			Responsible: responsible,
		})
	}
	return reqs, nil
}

func parsePercentage(s string) (decimal.Decimal, error) {
	if trimmed, ok := strings.CutSuffix(s, "%"); ok {
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid percentage %q", s)
		}
		return d.Shift(-2), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid percentage %q", s)
	}
	return d, nil
}

type PayArgs struct {
	ShareIDs []string
	Method   string
	PaidAt   time.Time
}

// ParsePay parses "pay [-method M] [-at DATE] SHARE_ID...".
// -at accepts RFC 3339 or YYYY-MM-DD; empty means now.
func ParsePay(args []string) (PayArgs, error) {
	var (
		a  PayArgs
		at string
	)

	fs := newFlagSet("pay")
	fs.StringVar(&a.Method, "method", "", "Payment method, e.g. pix or cash")
	fs.StringVar(&at, "at", "", "Payment time (RFC 3339 or YYYY-MM-DD)")

	if err := fs.Parse(args); err != nil {
		return PayArgs{}, err
	}

	a.ShareIDs = fs.Args()
	if len(a.ShareIDs) == 0 {
		return PayArgs{}, errors.New("at least one share ID is required")
	}

	if at != "" {
		t, err := parseTime(at)
		if err != nil {
			return PayArgs{}, err
		}
		a.PaidAt = t
	}
	return a, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
}

// ParseID parses a subcommand that takes exactly one ID flag, such as
// "unsplit -item ID" or "unpay -share ID".
func ParseID(name, flagName string, args []string) (string, error) {
	var id string

	fs := newFlagSet(name)
	fs.StringVar(&id, flagName, "", "ID")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("-%s is required", flagName)
	}
	return id, nil
}

type SharesArgs struct {
	ItemID string
	UserID string
}

// ParseShares parses "shares -item ID" or "shares -user ID".
func ParseShares(args []string) (SharesArgs, error) {
	var a SharesArgs

	fs := newFlagSet("shares")
	fs.StringVar(&a.ItemID, "item", "", "List shares of an item")
	fs.StringVar(&a.UserID, "user", "", "List shares held by a user (default: acting user)")

	if err := fs.Parse(args); err != nil {
		return SharesArgs{}, err
	}
	if a.ItemID != "" && a.UserID != "" {
		return SharesArgs{}, errors.New("-item and -user are mutually exclusive")
	}
	return a, nil
}

type InvoiceArgs struct {
	InvoiceID string
	UserID    string
}

// ParseInvoice parses "user-share -invoice ID [-user ID]" and "participants -invoice ID".
func ParseInvoice(name string, args []string) (InvoiceArgs, error) {
	var a InvoiceArgs

	fs := newFlagSet(name)
	fs.StringVar(&a.InvoiceID, "invoice", "", "Invoice ID")
	fs.StringVar(&a.UserID, "user", "", "User ID (default: acting user)")

	if err := fs.Parse(args); err != nil {
		return InvoiceArgs{}, err
	}
	if a.InvoiceID == "" {
		return InvoiceArgs{}, errors.New("-invoice is required")
	}
	return a, nil
}

type AccountArgs struct {
	Email    string
	Name     string
	Password string
}

// ParseAccount parses "register -email E -name N" and "login -email E".
// The password falls back to CARDSPLIT_PASSWORD.
func ParseAccount(name string, args []string) (AccountArgs, error) {
	var a AccountArgs

	fs := newFlagSet(name)
	fs.StringVar(&a.Email, "email", "", "Email address")
	fs.StringVar(&a.Password, "password", "", "Password (prefer env)")
	if name == "register" {
		fs.StringVar(&a.Name, "name", "", "Display name")
	}

	if err := fs.Parse(args); err != nil {
		return AccountArgs{}, err
	}

	if a.Password == "" {
		a.Password = os.Getenv("CARDSPLIT_PASSWORD")
	}
	if a.Email == "" {
		return AccountArgs{}, errors.New("-email is required")
	}
	if a.Password == "" {
		return AccountArgs{}, errors.New("password required (use -password or CARDSPLIT_PASSWORD env)")
	}
	if name == "register" && a.Name == "" {
		return AccountArgs{}, errors.New("-name is required")
	}
	return a, nil
}

type ContactArgs struct {
	Name  string
	Email string
}

// ParseContact parses "contact-add -name N [-email E]".
func ParseContact(args []string) (ContactArgs, error) {
	var a ContactArgs

	fs := newFlagSet("contact-add")
	fs.StringVar(&a.Name, "name", "", "Contact name")
	fs.StringVar(&a.Email, "email", "", "Contact email")

	if err := fs.Parse(args); err != nil {
		return ContactArgs{}, err
	}
	if a.Name == "" {
		return ContactArgs{}, errors.New("-name is required")
	}
	return a, nil
}

// ParseCard parses "card-add -name N".
func ParseCard(args []string) (string, error) {
	var name string

	fs := newFlagSet("card-add")
	fs.StringVar(&name, "name", "", "Card name")

	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("-name is required")
	}
	return name, nil
}

type InvoiceNewArgs struct {
	CardID string
	Period string
}

// ParseInvoiceNew parses "invoice-add -card ID -period YYYY-MM".
func ParseInvoiceNew(args []string) (InvoiceNewArgs, error) {
	var a InvoiceNewArgs

	fs := newFlagSet("invoice-add")
	fs.StringVar(&a.CardID, "card", "", "Credit card ID")
	fs.StringVar(&a.Period, "period", "", "Billing month (YYYY-MM)")

	if err := fs.Parse(args); err != nil {
		return InvoiceNewArgs{}, err
	}
	if a.CardID == "" || a.Period == "" {
		return InvoiceNewArgs{}, errors.New("-card and -period are required")
	}
	return a, nil
}

type ItemArgs struct {
	InvoiceID   string
	ItemID      string
	Description string
	Amount      decimal.Decimal
}

// ParseItemAdd parses "item-add -invoice ID -amount A [-desc D]".
func ParseItemAdd(args []string) (ItemArgs, error) {
	var (
		a      ItemArgs
		amount string
	)

	fs := newFlagSet("item-add")
	fs.StringVar(&a.InvoiceID, "invoice", "", "Invoice ID")
	fs.StringVar(&a.Description, "desc", "", "Description")
	fs.StringVar(&amount, "amount", "", "Amount, e.g. 42.90")

	if err := fs.Parse(args); err != nil {
		return ItemArgs{}, err
	}
	if a.InvoiceID == "" {
		return ItemArgs{}, errors.New("-invoice is required")
	}

	d, err := parseAmount(amount)
	if err != nil {
		return ItemArgs{}, err
	}
	a.Amount = d
	return a, nil
}

// ParseItemEdit parses "item-edit -item ID -amount A".
func ParseItemEdit(args []string) (ItemArgs, error) {
	var (
		a      ItemArgs
		amount string
	)

	fs := newFlagSet("item-edit")
	fs.StringVar(&a.ItemID, "item", "", "Invoice item ID")
	fs.StringVar(&amount, "amount", "", "New amount")

	if err := fs.Parse(args); err != nil {
		return ItemArgs{}, err
	}
	if a.ItemID == "" {
		return ItemArgs{}, errors.New("-item is required")
	}

	d, err := parseAmount(amount)
	if err != nil {
		return ItemArgs{}, err
	}
	a.Amount = d
	return a, nil
}

// parseAmount accepts a dot or comma as decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, errors.New("-amount is required")
	}
	d, err := decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
