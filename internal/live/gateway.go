// Package live is a thin, explicitly no-op stand-in for a future live-
// trading gateway adapter. Nothing in
// the backtesting core calls into it; it exists so a strategy written
// against strategy.EngineAPI has a typed target to be promoted onto
// without the backtesting core depending on any exchange SDK.
package live

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

// GatewayConfig names the wallet a live promotion of a backtested strategy
// would trade from. No private key or signing material lives here — this
// package never signs or submits anything.
type GatewayConfig struct {
	WalletAddress string
	FeedURL       string
}

// LiveGateway is an unimplemented trading venue adapter. Every method
// returns an error; Connect never dials FeedURL. It exists to give the
// streaming hook a concrete signature (*websocket.Conn), matching the
// teacher's exchange/ws.go feed shape, rather than leaving it an
// unconstrained interface{}.
type LiveGateway struct {
	address common.Address
	feedURL string
	conn    *websocket.Conn // always nil; no-op placeholder for a future feed
}

// NewGateway validates the configured wallet address and returns a gateway
// that performs no network I/O. An invalid address is rejected here so a
// strategy promoted to live trading fails fast on configuration, not on
// its first order.
func NewGateway(cfg GatewayConfig) (*LiveGateway, error) {
	if !common.IsHexAddress(cfg.WalletAddress) {
		return nil, fmt.Errorf("live: %q is not a valid wallet address", cfg.WalletAddress)
	}
	return &LiveGateway{
		address: common.HexToAddress(cfg.WalletAddress),
		feedURL: cfg.FeedURL,
	}, nil
}

// Address returns the gateway's validated wallet identity.
func (g *LiveGateway) Address() common.Address { return g.address }

// Connect always fails: this package never opens a network connection.
func (g *LiveGateway) Connect(_ context.Context) error {
	return fmt.Errorf("live: gateway is a no-op stub, cannot connect to %s", g.feedURL)
}

// SendOrder always fails: order submission has no implementation here.
func (g *LiveGateway) SendOrder(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("live: gateway is a no-op stub, cannot submit orders")
}

// Stream reports the (always-nil) underlying connection a real
// implementation would read from.
func (g *LiveGateway) Stream() *websocket.Conn { return g.conn }
