package email

import (
	"context"
	"fmt"

	"github.com/dkoryagin/vehiclehold/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.HoldEvent) error {
	if event.CustomerEmail == "" {
		return nil
	}
	fmt.Printf("send email to %s about %s for vehicle %d (hold %s)\n", event.CustomerEmail, event.Type, event.VehicleID, event.HoldID)
	return nil
}
