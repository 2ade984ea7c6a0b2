package scan

import (
	"fmt"
	"log/slog"

	"github.com/mzyy94/ulcscan/internal/ccid"
	"github.com/mzyy94/ulcscan/internal/keyspace"
)

// WriteKey authenticates with current and commits next as the card's
// 3DES key. The reader requires a successful handshake before it accepts
// a key write, so a wrong current key aborts with ErrWrongKey before
// anything on the card changes. The card is powered off afterwards on a
// best-effort basis.
func WriteKey(tr Transport, current, next keyspace.Key) error {
	tr.ResetSequence()
	err := runSteps(tr, []ccid.Command{
		ccid.PowerOn(),
		ccid.GetUID(),
		ccid.LoadKey(ccid.DefaultKeySlot, current),
		ccid.Authenticate(ccid.DefaultAuthPage, ccid.DefaultKeySlot),
		ccid.LoadKey(ccid.DefaultKeySlot, next),
		ccid.WriteAuthKey(),
	})
	tr.Exchange(ccid.PowerOff())
	if err != nil {
		return err
	}
	slog.Info("card key written", "pages", fmt.Sprintf("0x%02X-0x%02X", ccid.KeyPageFirst, ccid.KeyPageLast))
	return nil
}

// VerifyKey power-cycles the card and authenticates with key. It returns
// ErrWrongKey when the card rejects the handshake.
func VerifyKey(tr Transport, key keyspace.Key) error {
	tr.ResetSequence()
	err := runSteps(tr, []ccid.Command{
		ccid.PowerOn(),
		ccid.LoadKey(ccid.DefaultKeySlot, key),
		ccid.Authenticate(ccid.DefaultAuthPage, ccid.DefaultKeySlot),
	})
	tr.Exchange(ccid.PowerOff())
	return err
}

// runSteps issues commands in order and stops at the first one the
// reader or card refuses.
func runSteps(tr Transport, steps []ccid.Command) error {
	for _, cmd := range steps {
		r, err := tr.Exchange(cmd)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd.Kind, err)
		}
		switch ccid.Classify(cmd.Kind, r) {
		case ccid.OutcomeOK, ccid.OutcomeAuthSuccess:
		case ccid.OutcomeAuthFailure:
			return fmt.Errorf("%s: %w", cmd.Kind, ErrWrongKey)
		case ccid.OutcomeCardMute:
			return fmt.Errorf("%s: %w", cmd.Kind, ccid.ErrCardMute)
		default:
			return fmt.Errorf("%s: reader error 0x%02X", cmd.Kind, r.Error)
		}
	}
	return nil
}
