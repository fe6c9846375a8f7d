package notify

import (
	"context"
	"strings"

	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

// Notifier emails transfer requests to the receive_mail group.
type Notifier struct {
	store    store.Store
	composer *Composer
	sender   Sender
	logger   *logger.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(st store.Store, composer *Composer, sender Sender, log *logger.Logger) *Notifier {
	return &Notifier{
		store:    st,
		composer: composer,
		sender:   sender,
		logger:   log.WithComponent("notifier"),
	}
}

// Recipients returns the addresses of active receive_mail users, without
// duplicates or blanks.
func (n *Notifier) Recipients(ctx context.Context) ([]string, error) {
	var out []string
	err := n.store.InTx(ctx, func(tx store.Tx) error {
		users, err := tx.ListUsersInGroup(ctx, actor.GroupReceiveMail)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(users))
		for _, u := range users {
			addr := strings.TrimSpace(u.Email)
			key := strings.ToLower(addr)
			if addr == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, addr)
		}
		return nil
	})
	return out, err
}

// HandleTransferRequested sends the notification for one request. When
// notifications were disabled at submit time it only logs what it would
// have sent.
func (n *Notifier) HandleTransferRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.TransferRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	log := n.logger.WithUser(data.UserID, data.Username)

	to, err := n.Recipients(ctx)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		log.Warn().Msg("no receive_mail recipients, transfer request not emailed")
		return nil
	}

	msg, err := n.composer.Compose(data)
	if err != nil {
		return err
	}

	if !data.Deliver {
		log.Info().
			Strs("recipients", to).
			Str("body", msg.Text).
			Msg("email notifications disabled, transfer request not sent")
		return nil
	}

	if err := n.sender.Send(ctx, msg, to); err != nil {
		return err
	}
	log.Info().Strs("recipients", to).Int("records", len(data.Records)).Msg("transfer request emailed")
	return nil
}
