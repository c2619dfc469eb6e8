package data

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

type PostgresStore struct {
	db *gorm.DB
}

func (s *PostgresStore) SaveOrder(order *models.Order) error {
	rec := toOrderRecord(order)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing OrderRecord
		err := tx.Where("order_id = ?", order.ID).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("failed to create order record: %w", err)
			}
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to look up order record: %w", err)
		}

		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("failed to save order record: %w", err)
		}

		return nil
	})
}

func (s *PostgresStore) LoadOrders(accountID string) ([]*models.Order, error) {
	var records []OrderRecord
	if err := s.db.Where("account_id = ?", accountID).Order("created_on asc, id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load order records: %w", err)
	}

	orders := make([]*models.Order, 0, len(records))
	for i := range records {
		order, err := records[i].ToOrder()
		if err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func (s *PostgresStore) LoadOrder(id uuid.UUID) (*models.Order, error) {
	var rec OrderRecord
	err := s.db.Where("order_id = ?", id).First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load order record: %w", err)
	}

	return rec.ToOrder()
}

func (s *PostgresStore) SavePortfolio(portfolio *models.Portfolio) error {
	rec := toPortfolioRecord(portfolio)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing PortfolioRecord
		err := tx.Where("account_id = ?", portfolio.AccountID).First(&existing).Error

		if err == nil {
			// positions are replaced wholesale on every snapshot write
			if err := tx.Where("portfolio_id = ?", existing.ID).Unscoped().Delete(&PositionRecord{}).Error; err != nil {
				return fmt.Errorf("failed to clear position records: %w", err)
			}

			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up portfolio record: %w", err)
		}

		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("failed to save portfolio record: %w", err)
		}

		return nil
	})
}

func (s *PostgresStore) LoadPortfolio(accountID string) (*models.Portfolio, error) {
	var rec PortfolioRecord
	err := s.db.Preload("Positions").Where("account_id = ?", accountID).First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio record: %w", err)
	}

	return rec.ToPortfolio()
}

func (s *PostgresStore) DeleteAccount(accountID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Unscoped().Delete(&OrderRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete order records: %w", err)
		}

		var rec PortfolioRecord
		err := tx.Where("account_id = ?", accountID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to look up portfolio record: %w", err)
		}

		if err := tx.Where("portfolio_id = ?", rec.ID).Unscoped().Delete(&PositionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete position records: %w", err)
		}

		if err := tx.Unscoped().Delete(&rec).Error; err != nil {
			return fmt.Errorf("failed to delete portfolio record: %w", err)
		}

		return nil
	})
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}
