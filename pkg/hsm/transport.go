package hsm

import (
	"github.com/ebfe/scard"

	"github.com/pico-keys/go-pico/pkg/apdu"
)

// Card is a live card connection scoped to a single logical operation.
type Card interface {
	apdu.Transmitter
	Close() error
}

// Connector opens a card connection against a PC/SC reader name. It
// exists so the command layer can be exercised against a fake card.
type Connector interface {
	Connect(reader string) (Card, error)
}

// PCSCConnector connects through the platform PC/SC stack. Each
// Connect establishes its own context so concurrent operations never
// share a session.
type PCSCConnector struct{}

func (PCSCConnector) Connect(reader string) (Card, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, &CommunicationError{Message: "cannot establish smart card context", Err: err}
	}

	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		_ = ctx.Release()
		return nil, &CommunicationError{Message: "cannot connect to reader " + reader, Err: err}
	}

	return &pcscCard{ctx: ctx, card: card}, nil
}

type pcscCard struct {
	ctx  *scard.Context
	card *scard.Card
}

func (c *pcscCard) Transmit(cmd []byte) ([]byte, error) {
	return c.card.Transmit(cmd)
}

func (c *pcscCard) Close() error {
	err := c.card.Disconnect(scard.LeaveCard)
	if rerr := c.ctx.Release(); err == nil {
		err = rerr
	}
	return err
}
