// Command sessiondemo walks the session core through a full lifecycle
// against an in-memory identity service: bootstrap, login with a two-factor
// step-up, concurrent unauthorized calls settled by a single refresh, a shop
// switch, and logout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/identity/identityfakes"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/store"
)

const (
	demoIdentifier = "owner@shop.example"
	demoSecret     = "password123"
	demoProof      = "123456"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running demo: %s\n", err)
	}
	log.Printf("Demo finished\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.New()
	displayAppname(cfg.AppName)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	collector := metrics.NewCollector(prometheus.NewRegistry())

	identitySvc := identityfakes.NewFakeService()
	identitySvc.AddAccount(identityfakes.Account{
		Identifier:        demoIdentifier,
		Secret:            demoSecret,
		User:              identity.User{ID: "user-1", Email: demoIdentifier, DisplayName: "Shop Owner"},
		SecondFactorProof: demoProof,
		ShopAccesses: []permissions.ShopAccess{
			{ShopID: "S1", Role: "manager", Permissions: permissions.Set{"canViewSales": true, "canEditProducts": true}, IsActive: true},
			{ShopID: "S2", Role: "clerk", Permissions: permissions.Set{"canViewSales": true}, IsActive: true},
		},
	})

	manager, err := session.New(session.Deps{
		Identity: identitySvc,
		Store:    store.NewMemoryStore(),
	},
		session.WithLogger(logger),
		session.WithRecorder(collector),
		session.WithStaleAfter(cfg.StaleAfter),
	)
	if err != nil {
		return fmt.Errorf("session.New: %w", err)
	}

	ctx := context.Background()
	if err := manager.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info().Str("state", string(manager.State())).Msg("bootstrapped")

	outcome, err := manager.SubmitCredentials(ctx, demoIdentifier, demoSecret)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	if outcome.SecondFactorRequired {
		logger.Info().Msg("second factor required")
		if _, err := manager.CompleteTwoFactor(ctx, demoProof); err != nil {
			return fmt.Errorf("complete two-factor: %w", err)
		}
	}
	logger.Info().
		Str("shop", manager.Permissions().CurrentShopID()).
		Bool("canViewSales", manager.Permissions().Has("canViewSales")).
		Msg("authenticated")

	// Several screens hit an expired token at once; one refresh serves all.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := manager.OnUnauthorized(ctx); err != nil {
				logger.Error().Err(err).Int("caller", n).Msg("refresh failed")
				return
			}
			logger.Info().Int("caller", n).Msg("caller resumed with fresh token")
		}(i)
	}
	wg.Wait()

	if err := manager.SwitchShop(ctx, "S2"); err != nil {
		return fmt.Errorf("switch shop: %w", err)
	}
	logger.Info().
		Str("shop", manager.Permissions().CurrentShopID()).
		Bool("canEditProducts", manager.Permissions().Has("canEditProducts")).
		Msg("shop switched")

	if err := manager.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	logger.Info().Str("state", string(manager.State())).Msg("signed out")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
