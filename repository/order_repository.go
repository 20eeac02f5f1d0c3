package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"paypal-checkout-service/models"
)

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveProfile(ctx context.Context, profile *models.Profile) error
	SaveShipment(ctx context.Context, shipment *models.Shipment) error
}

type gormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) OrderRepository {
	return &gormOrderRepo{db: db}
}

func (r *gormOrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		Preload("Shipments").
		Preload("Shipments.ShippingProfile").
		Preload("PaymentMethod").
		Preload("BillingProfile").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepo) SaveOrder(ctx context.Context, order *models.Order) error {
	// Associations are saved through their own repository methods; saving the
	// order must not cascade into stale item/adjustment rows.
	return r.db.WithContext(ctx).Omit("Items", "Adjustments", "Shipments", "PaymentMethod", "BillingProfile").Save(order).Error
}

func (r *gormOrderRepo) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *gormOrderRepo) SaveShipment(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Omit("ShippingProfile").Save(shipment).Error
}
