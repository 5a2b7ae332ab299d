package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kgoldpotera/spotted-avenue-boutique/models"
	"github.com/kgoldpotera/spotted-avenue-boutique/repository"
)

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// allowedTransitions maps a fulfillment status to the states an admin
// may move it to. Cancellation is allowed from any non-terminal state.
var allowedTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

type OrderService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{orderRepo: orderRepo, logger: logger}
}

// GetUserOrders retrieves paginated orders for a specific user.
func (s *OrderService) GetUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orderRepo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch user orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to fetch orders"}
	}
	return buildOrderResponse(orders, total, page, limit), nil
}

// GetAllOrders retrieves paginated orders across all users (admin).
func (s *OrderService) GetAllOrders(ctx context.Context, page, limit int) (*OrderResponse, *ServiceError) {
	orders, total, err := s.orderRepo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to fetch orders", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to fetch orders"}
	}
	return buildOrderResponse(orders, total, page, limit), nil
}

// UpdateStatus moves an order along the fulfillment lifecycle. Only
// forward transitions are allowed, plus cancellation from any
// non-terminal state.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) *ServiceError {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "order not found"}
	}

	if !transitionAllowed(order.Status, status) {
		return &ServiceError{
			StatusCode: http.StatusUnprocessableEntity,
			Message:    "invalid status transition from " + order.Status + " to " + status,
		}
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		s.logger.Error("Failed to update order status",
			zap.String("order_id", orderID.String()),
			zap.String("status", status),
			zap.Error(err),
		)
		return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "failed to update order"}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", order.Status),
		zap.String("to", status),
	)
	return nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func buildOrderResponse(orders []models.Order, total int64, page, limit int) *OrderResponse {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  totalPages,
			HasMore:     int64(page) < totalPages,
		},
	}
}
