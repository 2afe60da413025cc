package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fooddelivery/payment-service/internal/constant/model/db"
	"github.com/fooddelivery/payment-service/internal/core"
	"github.com/fooddelivery/payment-service/internal/port/output"
)

// GormPaymentRepository is a secondary adapter that implements the
// PaymentRepository output port
type GormPaymentRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(gormDB *gorm.DB) output.PaymentRepository {
	return &GormPaymentRepository{gormDB: gormDB}
}

// toCore converts db.Payment to core.Payment
func toCore(p *db.Payment) *core.Payment {
	return &core.Payment{
		ID:              p.ID,
		OrderID:         p.OrderID,
		CustomerID:      p.CustomerID,
		Amount:          core.Money{Amount: p.Amount, Currency: p.Currency},
		Status:          core.PaymentStatus(p.Status),
		GatewayIntentID: p.GatewayIntentID,
		GatewayChargeID: p.GatewayChargeID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ProcessedAt:     p.ProcessedAt,
	}
}

// fromCore converts core.Payment to db.Payment
func fromCore(p *core.Payment) *db.Payment {
	return &db.Payment{
		ID:              p.ID,
		OrderID:         p.OrderID,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount.Amount,
		Currency:        p.Amount.Currency,
		Status:          string(p.Status),
		GatewayIntentID: p.GatewayIntentID,
		GatewayChargeID: p.GatewayChargeID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		ProcessedAt:     p.ProcessedAt,
	}
}

// Create persists a new payment. A violated order_id uniqueness constraint
// surfaces as core.ErrDuplicatePayment.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	dbPayment := fromCore(payment)
	if err := r.gormDB.WithContext(ctx).Create(dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return core.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	payment.CreatedAt = dbPayment.CreatedAt
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// FindByID retrieves a payment by its ID.
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderID retrieves the payment for an order.
func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*core.Payment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

// FindByIntentID retrieves the payment holding a gateway intent id.
func (r *GormPaymentRepository) FindByIntentID(ctx context.Context, intentID string) (*core.Payment, error) {
	return r.findOne(ctx, "gateway_intent_id = ?", intentID)
}

func (r *GormPaymentRepository) findOne(ctx context.Context, query string, arg interface{}) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.WithContext(ctx).Where(query, arg).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// FindByCustomerID retrieves all payments made by a customer, newest first.
func (r *GormPaymentRepository) FindByCustomerID(ctx context.Context, customerID string) ([]core.Payment, error) {
	var dbPayments []db.Payment
	if err := r.gormDB.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&dbPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	payments := make([]core.Payment, 0, len(dbPayments))
	for i := range dbPayments {
		payments = append(payments, *toCore(&dbPayments[i]))
	}
	return payments, nil
}

// UpdateStatus persists a status transition atomically. The row is locked
// with SELECT FOR UPDATE and its status compared against expected so that
// of two concurrent transitions exactly one wins.
func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, payment *core.Payment, expected core.PaymentStatus) error {
	return r.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbPayment db.Payment

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", payment.ID).
			First(&dbPayment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if dbPayment.Status != string(expected) {
			return fmt.Errorf("payment status changed to %s: %w", dbPayment.Status, core.ErrInvalidStateTransition)
		}

		dbPayment.Status = string(payment.Status)
		dbPayment.GatewayChargeID = payment.GatewayChargeID
		dbPayment.ProcessedAt = payment.ProcessedAt
		dbPayment.UpdatedAt = time.Now()

		if err := tx.Save(&dbPayment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		payment.UpdatedAt = dbPayment.UpdatedAt
		return nil
	})
}

// ListStaleProcessing returns payments stuck in PROCESSING since before the
// cutoff, oldest first, for the reconciliation sweep.
func (r *GormPaymentRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]core.Payment, error) {
	var dbPayments []db.Payment
	if err := r.gormDB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", string(core.PaymentStatusProcessing), cutoff).
		Order("updated_at ASC").
		Find(&dbPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	payments := make([]core.Payment, 0, len(dbPayments))
	for i := range dbPayments {
		payments = append(payments, *toCore(&dbPayments[i]))
	}
	return payments, nil
}
