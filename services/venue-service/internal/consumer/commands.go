package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/booking"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/metrics"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const TopicBookingCommands = "venue.booking.commands.v1"

const (
	CommandSave      = "save"
	CommandSetStatus = "set_status"
	CommandDelete    = "delete"
)

// Command is one message on the booking command topic.
type Command struct {
	Type    string         `json:"type"`
	ID      string         `json:"id,omitempty"`
	Status  string         `json:"status,omitempty"`
	Booking *booking.Input `json:"booking,omitempty"`
}

// CommandApplier is implemented by *booking.Service.
type CommandApplier interface {
	Save(ctx context.Context, in booking.Input) (booking.SaveResult, error)
	UpdateStatus(ctx context.Context, id, status string) (model.Booking, error)
	Delete(ctx context.Context, id string) error
}

var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler applies booking commands through the same service the HTTP
// API uses. Rejections caused by the command itself (bad input, slot taken,
// illegal transition, unknown booking) are logged and dropped; only
// infrastructure failures are returned.
func CommandHandler(app CommandApplier, logger *slog.Logger, m *metrics.Metrics) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var cmd Command
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			m.Command("malformed", "rejected")
			logger.WarnContext(ctx, "malformed booking command dropped", "err", err, "offset", msg.Offset)
			return nil
		}
		cmd.Type = strings.ToLower(strings.TrimSpace(cmd.Type))

		err := apply(ctx, app, cmd)
		switch {
		case err == nil:
			m.Command(cmd.Type, "ok")
			return nil
		case isRejection(err):
			m.Command(cmd.Type, "rejected")
			logger.WarnContext(ctx, "booking command rejected", "type", cmd.Type, "id", cmd.ID, "err", err)
			return nil
		default:
			m.Command(cmd.Type, "error")
			return fmt.Errorf("apply %s command: %w", cmd.Type, err)
		}
	}
}

func apply(ctx context.Context, app CommandApplier, cmd Command) error {
	switch cmd.Type {
	case CommandSave:
		if cmd.Booking == nil {
			return fmt.Errorf("%w: save command without booking", booking.ErrValidation)
		}
		_, err := app.Save(ctx, *cmd.Booking)
		return err
	case CommandSetStatus:
		_, err := app.UpdateStatus(ctx, cmd.ID, cmd.Status)
		return err
	case CommandDelete:
		return app.Delete(ctx, cmd.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func isRejection(err error) bool {
	return booking.IsInputError(err) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, booking.ErrNotFound) ||
		errors.Is(err, booking.ErrInvalidTransition) ||
		errors.Is(err, booking.ErrSlotConflict)
}
