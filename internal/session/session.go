// Package session opens the Marionette session used by every device interaction.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kumar303/ezboot/internal/marionette"
	"github.com/kumar303/ezboot/internal/retry"
)

// DefaultPort is the Marionette port on the device, forwarded to the same local port.
const DefaultPort = 2828

// MaxAttempts bounds the number of connection attempts.
const MaxAttempts = 3

// RetryInterval is the pause between connection attempts.
var RetryInterval = 200 * time.Millisecond

// ErrUnreachable is returned when no attempt reached the Marionette server.
var ErrUnreachable = errors.New("marionette is not reachable")

// Forwarder maps a local TCP port to a device port.
type Forwarder interface {
	Forward(ctx context.Context, local, remote int) error
}

// Config describes where to reach the automation endpoint.
type Config struct {
	Host string
	Port int
}

func (c Config) addr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Open connects to the Marionette server and starts a session. When the connection fails at the transport
// level the port is forwarded through fwd and the attempt repeated, up to MaxAttempts times. The last
// connection error is returned if no attempt succeeds.
func Open(ctx context.Context, cfg Config, fwd Forwarder) (*marionette.Client, error) {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	attempt := 0
	opts := retry.CreateOptions().WithMaxCount(MaxAttempts).WithInterval(RetryInterval)
	c, err := retry.Do(ctx, func() (*marionette.Client, error) {
		attempt++
		c, err := connect(ctx, cfg.addr())
		if err == nil {
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, retry.Stop(ctx.Err())
		}
		if !isTransport(err) {
			return nil, retry.Stop(err)
		}

		log.Debug().Err(err).Int("attempt", attempt).Msg("Marionette not reachable, forwarding port")
		if err := fwd.Forward(ctx, port, port); err != nil {
			return nil, retry.Stop(fmt.Errorf("forward port %d: %w", port, err))
		}
		return nil, err
	}, opts)
	if err == nil {
		return c, nil
	}
	if ctx.Err() != nil || !isTransport(err) {
		return nil, err
	}
	return nil, fmt.Errorf("%w at %s after %d attempts: %w", ErrUnreachable, cfg.addr(), attempt, err)
}

func connect(ctx context.Context, addr string) (*marionette.Client, error) {
	c, err := marionette.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := c.NewSession(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// isTransport reports whether err is a connection level failure, as opposed to a protocol error.
func isTransport(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
