package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"papertrade/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// D parses a decimal literal, panicking on malformed input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with the default 100000 balance and unique name and email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithBalance(t, db, "100000")
}

// CreateTestUserWithBalance creates a user with the given cash balance.
func CreateTestUserWithBalance(t *testing.T, db *gorm.DB, balance string) *models.User {
	t.Helper()
	n := nextID()
	return CreateTestUserWithEmail(t, db, fmt.Sprintf("user%d", n), fmt.Sprintf("user%d@test.com", n), balance)
}

// CreateTestUserWithEmail creates a user with password "password123".
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, username, email, balance string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Balance:  D(balance),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestHolding creates a holding at the given average and current prices.
func CreateTestHolding(t *testing.T, db *gorm.DB, userID uint, symbol string, qty int64, avg, current string) *models.Holding {
	t.Helper()

	h := &models.Holding{
		UserID:       userID,
		Symbol:       symbol,
		Quantity:     qty,
		AvgPrice:     D(avg),
		CurrentPrice: D(current),
	}
	if err := db.Create(h).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return h
}

// CreateTestStock creates a cached stock row.
func CreateTestStock(t *testing.T, db *gorm.DB, symbol, price string) *models.Stock {
	t.Helper()

	s := &models.Stock{
		Symbol:        symbol,
		Name:          symbol + " Corp",
		CurrentPrice:  D(price),
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		MarketCap:     decimal.Zero,
		Sector:        "Unknown",
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	return s
}

// CreateTestTransaction appends a trade record.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID uint, symbol string, side models.TradeSide, qty int64, price string) *models.Transaction {
	t.Helper()

	p := D(price)
	tx := &models.Transaction{
		UserID:   userID,
		Symbol:   symbol,
		Type:     side,
		Quantity: qty,
		Price:    p,
		Total:    p.Mul(decimal.NewFromInt(qty)),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
