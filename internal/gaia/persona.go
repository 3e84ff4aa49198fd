package gaia

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/poll"
)

// ErrNoLoginPrompt is returned when the Persona dialog is not waiting for an email address.
var ErrNoLoginPrompt = errors.New("persona email input is not present")

var (
	trustedUIContainer = marionette.ID("trustedui-frame-container")
	personaFrame       = marionette.CSS("iframe")
	emailInput         = marionette.ID("authentication_email")
	passwordInput      = marionette.ID("authentication_password")
	newPassword        = marionette.ID("password")
	verifyNewPassword  = marionette.ID("vpassword")
	nextButton         = marionette.CSS("button.start")
	verifyStartButton  = marionette.CSS("button#verify_user")
	returningButton    = marionette.CSS("button.returning")
)

// Persona is the sign-in dialog shown in the trusted UI.
type Persona struct {
	d *Device
}

// Persona switches into the sign-in dialog. It returns ErrNoLoginPrompt when the dialog is not asking for
// an email address.
func (d *Device) Persona(ctx context.Context) (*Persona, error) {
	if err := d.mc.SwitchToFrame(ctx, nil); err != nil {
		return nil, err
	}

	container, err := marionette.WaitForPresent(ctx, d.mc, trustedUIContainer, 0)
	if err != nil {
		return nil, err
	}
	frame, err := marionette.WaitForPresent(ctx, container, personaFrame, 0)
	if err != nil {
		return nil, err
	}
	if err := d.mc.SwitchToFrame(ctx, frame); err != nil {
		return nil, err
	}

	email, err := d.mc.FindElement(ctx, emailInput)
	if errors.Is(err, marionette.ErrNoSuchElement) {
		return nil, ErrNoLoginPrompt
	}
	if err != nil {
		return nil, err
	}
	shown, err := email.Displayed(ctx)
	if err != nil {
		return nil, err
	}
	if !shown {
		return nil, ErrNoLoginPrompt
	}

	return &Persona{d: d}, nil
}

// SignIn enters the credentials. A new account is created when the dialog asks for a password to be
// chosen; otherwise the existing account is signed into. It reports whether an account was created.
func (p *Persona) SignIn(ctx context.Context, email, password string) (created bool, err error) {
	mc := p.d.mc

	if err := sendKeys(ctx, mc, emailInput, email); err != nil {
		return false, err
	}
	next, err := mc.FindElement(ctx, nextButton)
	if err != nil {
		return false, err
	}
	if err := next.Click(ctx); err != nil {
		return false, err
	}

	_, err = marionette.WaitForDisplayed(ctx, mc, newPassword, 0)
	switch {
	case err == nil:
		if err := sendKeys(ctx, mc, newPassword, password); err != nil {
			return false, err
		}
		if err := sendKeys(ctx, mc, verifyNewPassword, password); err != nil {
			return false, err
		}
		return true, tapWhenDisplayed(ctx, mc, verifyStartButton)
	case errors.Is(err, poll.ErrTimeout):
		log.Info().Msg("Not a new account? Trying to log in to existing account")
	default:
		return false, err
	}

	if err := sendKeys(ctx, mc, passwordInput, password); err != nil {
		return false, err
	}
	return false, tapWhenDisplayed(ctx, mc, returningButton)
}

func sendKeys(ctx context.Context, s marionette.Searcher, loc marionette.Locator, text string) error {
	el, err := s.FindElement(ctx, loc)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}
	return nil
}

func tapWhenDisplayed(ctx context.Context, s marionette.Searcher, loc marionette.Locator) error {
	el, err := marionette.WaitForDisplayed(ctx, s, loc, 0)
	if err != nil {
		return err
	}
	return el.Tap(ctx)
}
