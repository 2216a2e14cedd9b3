package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"machinery-backend/internal/model"
)

// SaveSubscription creates or replaces a push subscription and its machine set.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, machineIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
		}).Omit("Machines").Create(sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		var machines []*model.Machine
		if len(machineIDs) > 0 {
			if err := tx.Find(&machines, machineIDs).Error; err != nil {
				return fmt.Errorf("failed to load subscribed machines: %w", err)
			}
		}

		if err := tx.Model(sub).Association("Machines").Replace(machines); err != nil {
			return fmt.Errorf("failed to replace subscribed machines: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Machines").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err, "subscription", endpoint)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := &model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(sub).Association("Machines").Clear(); err != nil {
			return fmt.Errorf("failed to clear subscribed machines: %w", err)
		}
		if err := tx.Delete(sub).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}

// SubscriptionsForMachine returns every subscription following a machine.
func (s *gormStore) SubscriptionsForMachine(ctx context.Context, machineID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping smm ON smm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("smm.machine_id = ?", machineID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for machine %d: %w", machineID, err)
	}
	return subscriptions, nil
}
