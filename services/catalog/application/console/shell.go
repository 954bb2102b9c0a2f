// Package console is the interactive menu front end of the catalog.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	appsvcs "github.com/ghuser/productcatalog/services/catalog/application/services"
	catalogdomain "github.com/ghuser/productcatalog/services/catalog/domain"
	"github.com/ghuser/productcatalog/services/catalog/domain/models"
)

// Menu entries, in display order.
const (
	ActionAddItem      = "Add Item"
	ActionAddBundle    = "Add Bundle"
	ActionAddDiscount  = "Add Discount"
	ActionAttach       = "Attach Item To Bundle"
	ActionListItems    = "List Items"
	ActionListBundles  = "List Bundles"
	ActionListDiscount = "List Discounts"
	ActionRemoveItem   = "Remove Item"
	ActionExit         = "Exit"
)

var menu = []string{
	ActionAddItem,
	ActionAddBundle,
	ActionAddDiscount,
	ActionAttach,
	ActionListItems,
	ActionListBundles,
	ActionListDiscount,
	ActionRemoveItem,
	ActionExit,
}

// Shell runs the menu loop against one catalog. Failed actions print a
// message and return to the menu; only Exit or end of input stop the loop.
type Shell struct {
	catalog *appsvcs.CatalogFacade
	in      *bufio.Scanner
	out     io.Writer
}

// NewShell reads answers from in and writes prompts and results to out.
func NewShell(catalog *appsvcs.CatalogFacade, in io.Reader, out io.Writer) *Shell {
	return &Shell{catalog: catalog, in: bufio.NewScanner(in), out: out}
}

// Run shows the menu until the user picks Exit, input ends, or ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.printMenu()
		answer, ok := s.ask("> ")
		if !ok {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		action, valid := resolveAction(answer)
		if !valid {
			fmt.Fprintf(s.out, "Unknown choice %q\n", answer)
			continue
		}
		if action == ActionExit {
			return nil
		}
		s.dispatch(ctx, action)
	}
}

func (s *Shell) dispatch(ctx context.Context, action string) {
	switch action {
	case ActionAddItem:
		s.addItem(ctx)
	case ActionAddBundle:
		s.addBundle(ctx)
	case ActionAddDiscount:
		s.addDiscount(ctx)
	case ActionAttach:
		s.attach(ctx)
	case ActionListItems:
		s.printTable(s.catalog.Items(ctx), "items")
	case ActionListBundles:
		s.printBundles(s.catalog.Bundles(ctx))
	case ActionListDiscount:
		s.printTable(s.catalog.Discounts(ctx), "discounts")
	case ActionRemoveItem:
		s.removeItem(ctx)
	}
}

func (s *Shell) addItem(ctx context.Context) {
	name, _ := s.ask("Item name? ")
	code, _ := s.ask("Item code? ")
	raw, _ := s.ask("Item price? ")
	price, err := decimal.NewFromString(raw)
	if err != nil {
		s.fail(fmt.Errorf("%w: %q is not a number", catalogdomain.ErrInvalidPrice, raw))
		return
	}
	l, err := s.catalog.AddItem(ctx, code, name, price)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Added %s\n", l.Display)
}

func (s *Shell) addBundle(ctx context.Context) {
	name, _ := s.ask("Bundle name? ")
	code, _ := s.ask("Bundle code? ")
	if _, err := s.catalog.AddBundle(ctx, code, name); err != nil {
		s.fail(err)
		return
	}
	for {
		itemCode, ok := s.ask("Enter an item code (or press enter to finish)? ")
		if !ok || itemCode == "" {
			break
		}
		if _, err := s.catalog.AttachItemToBundle(ctx, itemCode, code); err != nil {
			s.fail(err)
		}
	}
	l, err := s.catalog.Bundle(ctx, code)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Added %s\n", l.Display)
}

func (s *Shell) addDiscount(ctx context.Context) {
	code, _ := s.ask("Item code? ")
	offer, _ := s.ask("Offer name? ")
	raw, _ := s.ask("Discount rate (%)? ")
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		s.fail(fmt.Errorf("%w: %q is not a number", catalogdomain.ErrInvalidDiscount, raw))
		return
	}
	l, err := s.catalog.AddDiscountedItem(ctx, code, offer, rate)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Added %s, now $%s\n", l.Display, l.Price)
}

func (s *Shell) attach(ctx context.Context) {
	itemCode, _ := s.ask("Item code? ")
	bundleCode, _ := s.ask("Bundle code? ")
	l, err := s.catalog.AttachItemToBundle(ctx, itemCode, bundleCode)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "%s now costs $%s\n", l.Name, l.Price)
}

func (s *Shell) removeItem(ctx context.Context) {
	code, _ := s.ask("Item code? ")
	l, err := s.catalog.RemoveItem(ctx, code)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Removed %s\n", l.Code)
}

func (s *Shell) printMenu() {
	fmt.Fprintln(s.out, "What do you want to do?")
	for i, entry := range menu {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, entry)
	}
}

func (s *Shell) printTable(ls []models.Listing, noun string) {
	if len(ls) == 0 {
		fmt.Fprintf(s.out, "No %s.\n", noun)
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tPRICE\t")
	for _, l := range ls {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", l.Code, l.Name, l.Price)
	}
	_ = w.Flush()
}

func (s *Shell) printBundles(ls []models.Listing) {
	if len(ls) == 0 {
		fmt.Fprintln(s.out, "No bundles.")
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tPRICE\tITEMS\t")
	for _, l := range ls {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", l.Code, l.Name, l.Price, strings.Join(l.Children, ","))
	}
	_ = w.Flush()
	for _, l := range ls {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, l.Display)
	}
}

// ask prints prompt and returns the trimmed answer. ok is false at end of input.
func (s *Shell) ask(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *Shell) fail(err error) {
	fmt.Fprintln(s.out, describe(err))
}

// describe turns a catalog error into the line shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, catalogdomain.ErrBundleNotFound):
		return "Bundle does not exist"
	case errors.Is(err, catalogdomain.ErrItemNotFound):
		return "Item does not exist"
	case errors.Is(err, catalogdomain.ErrDuplicateCode):
		return "That code is already in use"
	case errors.Is(err, catalogdomain.ErrBundleCycle):
		return "A bundle cannot contain itself"
	default:
		return "Error: " + err.Error()
	}
}

// resolveAction accepts a menu number or an entry's label, ignoring case.
func resolveAction(answer string) (string, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(menu) {
			return "", false
		}
		return menu[n-1], true
	}
	for _, entry := range menu {
		if strings.EqualFold(entry, answer) {
			return entry, true
		}
	}
	return "", false
}
