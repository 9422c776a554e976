// Package main provides a CLI that drives the client-side consent core
// against a local profile file, for support and manual testing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"cookiegate/internal/consent/catalog"
	"cookiegate/internal/consent/hook"
	"cookiegate/internal/consent/manager"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/storage"
	"cookiegate/internal/consent/store"
	"cookiegate/internal/platform/config"
	"cookiegate/internal/platform/logger"
	"cookiegate/pkg/requestcontext"
	s "cookiegate/pkg/string"
)

const defaultProfile = ".cookiegate-profile.json"

type output struct {
	Command    string          `json:"command"`
	Categories map[string]bool `json:"categories"`
	ShowBanner bool            `json:"showBanner"`
	SaveFailed bool            `json:"saveFailed,omitempty"`
	HTML       string          `json:"html,omitempty"`
}

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout, logger.New()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: consentctl [-profile path] [-country CC] <command> [flags]

commands:
  status                         show the current decision
  accept-all                     grant every category
  reject-all                     deny every non-essential category
  update -grant a,b -deny c      change individual categories
  revoke [-reason text]          withdraw consent and purge tracking cookies
  scripts                        render the tags the current decision allows`)
}

func run(ctx context.Context, args []string, stdout io.Writer, log *slog.Logger) error {
	global := flag.NewFlagSet("consentctl", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	profile := global.String("profile", defaultProfile, "profile file holding cookies and local storage")
	country := global.String("country", "", "visitor country code used for regional rules")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errors.New("missing command")
	}
	command, rest := global.Arg(0), global.Args()[1:]

	if *country != "" {
		ctx = requestcontext.WithCountry(ctx, strings.ToUpper(*country))
	}

	cfg := config.FromEnv()
	kv := store.NewFileStore(*profile)
	jar := storage.NewStoreJar(kv)
	adapter := storage.NewClient(jar, kv,
		storage.WithLogger(log),
		storage.WithRetention(cfg.Consent.Retention),
	)
	doc := scripts.NewHeadDocument()
	registry := scripts.NewRegistry(scripts.Providers{
		GAMeasurementID: cfg.Scripts.GAMeasurementID,
		MetaPixelID:     cfg.Scripts.MetaPixelID,
		HotjarSiteID:    cfg.Scripts.HotjarSiteID,
		AffiliateTagURL: cfg.Scripts.AffiliateTagURL,
	})
	m := manager.New(adapter, scripts.NewDocumentInjector(doc, registry, nil), manager.NewJarPurger(jar), catalog.Default(), log)
	h := hook.Mount(ctx, m)
	defer h.Unmount()

	var err error
	switch command {
	case "status":
	case "accept-all":
		err = h.AcceptAll(ctx)
	case "reject-all":
		err = h.RejectAll(ctx)
	case "update":
		var update models.CategoryUpdate
		update, err = parseUpdate(rest)
		if err == nil {
			err = h.UpdateAllCategories(ctx, update)
		}
	case "revoke":
		fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		reason := fs.String("reason", "user_request", "revocation reason")
		if err = fs.Parse(rest); err == nil {
			err = h.RevokeConsent(ctx, *reason)
		}
	case "scripts":
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	snap := h.Snapshot()
	out := output{
		Command:    command,
		Categories: snap.Categories.Map(),
		ShowBanner: snap.ShowBanner,
		SaveFailed: snap.SaveFailed,
	}
	if command == "scripts" {
		html, renderErr := doc.HTML()
		if renderErr != nil {
			return renderErr
		}
		out.HTML = html
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return encErr
	}
	return err
}

func parseUpdate(args []string) (models.CategoryUpdate, error) {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	grant := fs.String("grant", "", "comma separated categories to grant")
	deny := fs.String("deny", "", "comma separated categories to deny")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	update := models.CategoryUpdate{}
	for _, pair := range []struct {
		list    string
		granted bool
	}{{*grant, true}, {*deny, false}} {
		for _, name := range s.SplitList(strings.ToLower(pair.list)) {
			update[models.Category(name)] = pair.granted
		}
	}
	if len(update) == 0 {
		return nil, errors.New("update needs -grant or -deny")
	}
	return update, nil
}
