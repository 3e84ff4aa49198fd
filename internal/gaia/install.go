package gaia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/poll"
)

// Marketplace origins.
const (
	MarketplaceURL    = "https://marketplace.firefox.com/"
	MarketplaceDevURL = "https://marketplace-dev.allizom.org/"
)

var (
	// ErrAppNotFound is returned when a marketplace search has no results.
	ErrAppNotFound = errors.New("app not found")
	// ErrMarketplaceNotInstalled is returned when the marketplace app is missing from the device.
	ErrMarketplaceNotInstalled = errors.New("marketplace app is not installed")
)

var (
	installButton   = marionette.ID("app-install-install-button")
	splashOverlay   = marionette.CSS("div#splash-overlay")
	searchInput     = marionette.ID("search-q")
	searchResult    = marionette.CSS("#search-results li.item")
	productInstall  = marionette.CSS(".button.product.install")
	marketplaceWrap = marionette.CSS("iframe")
	urlInput        = marionette.ID("url-input")
	urlButton       = marionette.ID("url-button")
	browserFrame    = marionette.CSS("iframe[mozbrowser]")
)

// InstallTimeout bounds each step of an installation.
var InstallTimeout = 30 * time.Second

// InstallManifest asks the device to install the app described by manifestURL and confirms the prompt.
func (d *Device) InstallManifest(ctx context.Context, manifestURL string) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}
	if _, err := d.mc.ExecuteScript(ctx, "navigator.mozApps.install(arguments[0]);", manifestURL); err != nil {
		return fmt.Errorf("install %s: %w", manifestURL, err)
	}
	return d.ConfirmInstall(ctx)
}

// ConfirmInstall taps the install button of the system prompt and waits for the prompt to go away.
func (d *Device) ConfirmInstall(ctx context.Context) error {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return err
	}

	button, err := marionette.WaitForDisplayed(ctx, d.mc, installButton, InstallTimeout)
	if err != nil {
		return err
	}
	if err := button.Tap(ctx); err != nil {
		return err
	}
	if err := marionette.WaitForNotDisplayed(ctx, d.mc, installButton, InstallTimeout); err != nil {
		return err
	}

	log.Info().Msg("App successfully installed.")
	return nil
}

// MarketplaceInstall describes an install from the marketplace.
type MarketplaceInstall struct {
	// App is searched for by name. Ignored when URL is set.
	App string
	// URL of the app's marketplace page. Implies Browser.
	URL string
	// Browser uses the marketplace web site in the browser instead of the marketplace app.
	Browser bool
	// Prod uses the production marketplace instead of the dev one.
	Prod bool
}

func (m MarketplaceInstall) appName() string {
	if m.Prod {
		return "Marketplace"
	}
	return "Marketplace Dev"
}

func (m MarketplaceInstall) siteURL() string {
	if m.URL != "" {
		return m.URL
	}
	if m.Prod {
		return MarketplaceURL
	}
	return MarketplaceDevURL
}

// InstallFromMarketplace installs an app through the marketplace app or web site.
func (d *Device) InstallFromMarketplace(ctx context.Context, m MarketplaceInstall) error {
	browser := m.Browser || m.URL != ""

	if browser {
		if err := d.OpenURL(ctx, m.siteURL()); err != nil {
			return err
		}
		if err := marionette.WaitForNotDisplayed(ctx, d.mc, splashOverlay, InstallTimeout); err != nil {
			return err
		}
	} else {
		if _, err := d.Launch(ctx, m.appName()); err != nil {
			if errors.Is(err, ErrAppNotInstalled) {
				return fmt.Errorf("%s: %w", m.appName(), ErrMarketplaceNotInstalled)
			}
			return err
		}
		if m.Prod {
			wrapper, err := marionette.WaitForPresent(ctx, d.mc, marketplaceWrap, InstallTimeout)
			if err != nil {
				return err
			}
			if err := d.mc.SwitchToFrame(ctx, wrapper); err != nil {
				return err
			}
		}
	}

	if m.URL == "" {
		if err := d.tapFirstSearchResult(ctx, m.App); err != nil {
			return err
		}
	} else {
		button, err := marionette.WaitForDisplayed(ctx, d.mc, productInstall, InstallTimeout)
		if err != nil {
			return err
		}
		if err := button.Tap(ctx); err != nil {
			return err
		}
	}

	return d.ConfirmInstall(ctx)
}

func (d *Device) tapFirstSearchResult(ctx context.Context, name string) error {
	search, err := marionette.WaitForDisplayed(ctx, d.mc, searchInput, InstallTimeout)
	if err != nil {
		return err
	}
	if err := search.SendKeys(ctx, name+"\n"); err != nil {
		return err
	}

	if _, err := marionette.WaitForPresent(ctx, d.mc, searchResult, InstallTimeout); err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return fmt.Errorf("%q: %w", name, ErrAppNotFound)
		}
		return err
	}
	results, err := d.mc.FindElements(ctx, searchResult)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("%q: %w", name, ErrAppNotFound)
	}

	button, err := marionette.WaitForDisplayed(ctx, results[0], productInstall, InstallTimeout)
	if err != nil {
		return err
	}
	return button.Tap(ctx)
}

// OpenURL launches the browser, navigates to url and switches into the page's frame.
func (d *Device) OpenURL(ctx context.Context, url string) error {
	if _, err := d.Launch(ctx, "Browser"); err != nil {
		return err
	}

	input, err := marionette.WaitForDisplayed(ctx, d.mc, urlInput, InstallTimeout)
	if err != nil {
		return err
	}
	if err := input.SendKeys(ctx, url); err != nil {
		return err
	}
	button, err := d.mc.FindElement(ctx, urlButton)
	if err != nil {
		return err
	}
	if err := button.Tap(ctx); err != nil {
		return err
	}

	frame, err := marionette.WaitForPresent(ctx, d.mc, browserFrame, InstallTimeout)
	if err != nil {
		return err
	}
	return d.mc.SwitchToFrame(ctx, frame)
}
