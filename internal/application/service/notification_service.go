package service

import (
	"context"
	"fmt"

	"github.com/garyjia/procurement-engine/internal/application/dispatcher"
	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/event"
)

// NotificationService sends chat messages to vendors and approvers
type NotificationService interface {
	NotifyVendorSubscribed(ctx context.Context, requisitionID, vendorID int64) error
	NotifyOrderConfirmed(ctx context.Context, quoteID int64) error
	NotifyApprovers(ctx context.Context, message string) error

	// RegisterHandlers subscribes the notifications to domain events
	RegisterHandlers(d dispatcher.Dispatcher) error
}

type notificationServiceImpl struct {
	requisitionRepo port.RequisitionRepository
	quoteRepo       port.QuoteRepository
	vendorRepo      port.VendorRepository
	messageSender   port.MessageSender
	approversOpenID string
	logger          Logger
}

// NewNotificationService creates a new NotificationService. approversOpenID may be
// empty, in which case approver pings are skipped.
func NewNotificationService(
	requisitionRepo port.RequisitionRepository,
	quoteRepo port.QuoteRepository,
	vendorRepo port.VendorRepository,
	messageSender port.MessageSender,
	approversOpenID string,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requisitionRepo: requisitionRepo,
		quoteRepo:       quoteRepo,
		vendorRepo:      vendorRepo,
		messageSender:   messageSender,
		approversOpenID: approversOpenID,
		logger:          logger,
	}
}

// NotifyVendorSubscribed tells a vendor it now follows a requisition
func (s *notificationServiceImpl) NotifyVendorSubscribed(ctx context.Context, requisitionID, vendorID int64) error {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		s.logger.Error("Failed to get vendor", "error", err, "vendor_id", vendorID)
		return fmt.Errorf("get vendor: %w", err)
	}
	if vendor == nil || vendor.LarkOpenID == "" {
		s.logger.Info("Vendor has no chat account, skipping notification", "vendor_id", vendorID)
		return nil
	}

	req, err := s.requisitionRepo.GetByID(ctx, requisitionID)
	if err != nil {
		s.logger.Error("Failed to get requisition", "error", err, "requisition_id", requisitionID)
		return fmt.Errorf("get requisition: %w", err)
	}
	name := unknownRequisition
	if req != nil {
		name = req.Name
	}

	message := fmt.Sprintf("Hello %s,\n\nYou are now subscribed to updates on requisition %s.", vendor.Name, name)
	if err := s.messageSender.SendText(ctx, vendor.LarkOpenID, message); err != nil {
		s.logger.Error("Failed to send message", "error", err, "vendor_id", vendorID, "open_id", vendor.LarkOpenID)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Vendor subscription notification sent", "vendor_id", vendorID, "requisition_id", requisitionID)
	return nil
}

// NotifyOrderConfirmed tells the winning vendor that its quote was confirmed
func (s *notificationServiceImpl) NotifyOrderConfirmed(ctx context.Context, quoteID int64) error {
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		s.logger.Error("Failed to get quote", "error", err, "quote_id", quoteID)
		return fmt.Errorf("get quote: %w", err)
	}
	if quote == nil {
		s.logger.Info("Quote disappeared before notification", "quote_id", quoteID)
		return nil
	}

	vendor, err := s.vendorRepo.GetByID(ctx, quote.VendorID)
	if err != nil {
		s.logger.Error("Failed to get vendor", "error", err, "vendor_id", quote.VendorID)
		return fmt.Errorf("get vendor: %w", err)
	}
	if vendor == nil || vendor.LarkOpenID == "" {
		return nil
	}

	message := fmt.Sprintf(
		"Hello %s,\n\nYour quotation %s has been confirmed.\nOrder total: %s\n\nThank you.",
		vendor.Name,
		quote.Name,
		quote.Total().StringFixed(2),
	)
	if err := s.messageSender.SendText(ctx, vendor.LarkOpenID, message); err != nil {
		s.logger.Error("Failed to send message", "error", err, "quote_id", quoteID, "open_id", vendor.LarkOpenID)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Order confirmation notification sent", "quote_id", quoteID, "vendor_id", vendor.ID)
	return nil
}

// NotifyApprovers pings the configured approvers chat
func (s *notificationServiceImpl) NotifyApprovers(ctx context.Context, message string) error {
	if s.approversOpenID == "" {
		return nil
	}
	if err := s.messageSender.SendText(ctx, s.approversOpenID, message); err != nil {
		s.logger.Error("Failed to notify approvers", "error", err)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (s *notificationServiceImpl) RegisterHandlers(d dispatcher.Dispatcher) error {
	return d.Register(
		dispatcher.Route{
			Name:        "notify_vendor_subscribed",
			Description: "Tell the vendor it follows the requisition",
			Types:       []event.Type{event.TypeVendorSubscribed},
			Handle: func(ctx context.Context, evt *event.Event) error {
				return s.NotifyVendorSubscribed(ctx, evt.EntityID, evt.GetPayloadInt("vendor_id"))
			},
		},
		dispatcher.Route{
			Name:        "notify_order_confirmed",
			Description: "Tell the vendor its quotation was confirmed",
			Types:       []event.Type{event.TypeOrderConfirmed},
			Handle: func(ctx context.Context, evt *event.Event) error {
				return s.NotifyOrderConfirmed(ctx, evt.EntityID)
			},
		},
		dispatcher.Route{
			Name:        "notify_approvers_submitted",
			Description: "Ping approvers about a new request",
			Types:       []event.Type{event.TypeApprovalSubmitted},
			Handle: func(ctx context.Context, evt *event.Event) error {
				return s.NotifyApprovers(ctx, fmt.Sprintf("Approval request %s (%s) is waiting for %s.",
					evt.GetPayloadString("request_name"),
					evt.GetPayloadString("total_amount"),
					evt.GetPayloadString("level_name"),
				))
			},
		},
		dispatcher.Route{
			Name:        "notify_approvers_next_level",
			Description: "Ping approvers when a request climbs a level",
			Types:       []event.Type{event.TypeApprovalApproved},
			Handle: dispatcher.Unless(
				func(evt *event.Event) bool { return evt.GetPayloadBool("final") },
				func(ctx context.Context, evt *event.Event) error {
					return s.NotifyApprovers(ctx, fmt.Sprintf("Approval request %s moved to level %d of %d.",
						evt.GetPayloadString("request_name"),
						evt.GetPayloadInt("current_level"),
						evt.GetPayloadInt("required_level"),
					))
				},
			),
		},
	)
}

var _ NotificationService = (*notificationServiceImpl)(nil)
