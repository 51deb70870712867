package store

import (
	"errors"
	"fmt"

	"quickbite-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when the requested record does not exist
var ErrNotFound = errors.New("record not found")

// Open connects to the sqlite database and migrates all models
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.Driver{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Store wraps all persistence for orders, drivers and users.
// It is constructed once and injected into every component.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ── Orders ─────────────────────────────────────────────────────

func (s *Store) GetOrder(id string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// CreateOrderWithDriver persists the order and its courier record in
// one transaction so neither can exist without the other.
func (s *Store) CreateOrderWithDriver(order *models.Order, driver *models.Driver) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		driver.OrderID = order.ID
		if err := tx.Create(driver).Error; err != nil {
			return fmt.Errorf("create driver: %w", err)
		}
		return nil
	})
}

// UpdateOrder applies a partial field map to an order. Whole-field
// assignments only, so concurrent writers converge.
func (s *Store) UpdateOrder(id string, fields map[string]interface{}) error {
	res := s.db.Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOrder(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, "id = ?", id).Error
	})
}

// ListOrdersByCustomer returns a customer's orders, newest first,
// optionally filtered by status.
func (s *Store) ListOrdersByCustomer(customerID uint, status models.OrderStatus) ([]models.Order, error) {
	query := s.db.Preload("Items").Where("customer_id = ?", customerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ── Drivers ────────────────────────────────────────────────────

func (s *Store) GetDriverByOrder(orderID string) (*models.Driver, error) {
	var driver models.Driver
	err := s.db.First(&driver, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return &driver, nil
}

// UpdateDriverByOrder applies a partial field map to the courier
// record of an order. ErrNotFound after cancellation is how a stale
// simulator learns its order is gone.
func (s *Store) UpdateDriverByOrder(orderID string, fields map[string]interface{}) error {
	res := s.db.Model(&models.Driver{}).Where("order_id = ?", orderID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update driver: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDriversByOrder removes every courier record for the order.
func (s *Store) DeleteDriversByOrder(orderID string) error {
	if err := s.db.Where("order_id = ?", orderID).Delete(&models.Driver{}).Error; err != nil {
		return fmt.Errorf("delete drivers: %w", err)
	}
	return nil
}

// ── Users ──────────────────────────────────────────────────────

func (s *Store) CreateUser(user *models.User) error {
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUser(id uint) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
