package services

import (
	"testing"

	"github.com/souqapp/souq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCustomer(t *testing.T, conn *gorm.DB) models.User {
	t.Helper()
	u := models.User{Email: t.Name() + "-buyer@test", Password: "x", Type: models.UserTypeCustomer}
	require.NoError(t, conn.Create(&u).Error)
	return u
}

func newCartService(conn *gorm.DB) *CartService {
	return NewCartService(conn, NewStockService(conn))
}

func TestActiveCartNilWhenNone(t *testing.T) {
	conn := setupTestDB(t)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	cart, err := svc.ActiveCart(buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestAddLineCreatesCartAndMergesDuplicates(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedSizedProduct(t, conn, store.ID, "19.90", map[string]int{"M": 10})
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	cart, warn, err := svc.AddLine(buyer.ID, p.ID, "M", 2)
	require.NoError(t, err)
	assert.Nil(t, warn)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	// Same (product, size) again folds into the existing line.
	cart, warn, err = svc.AddLine(buyer.ID, p.ID, "M", 3)
	require.NoError(t, err)
	assert.Nil(t, warn)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)

	// A different size is its own line.
	require.NoError(t, conn.Create(&models.SizeStock{ProductID: p.ID, Size: "L", Quantity: 1}).Error)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("sizes", "M,L").Error)
	cart, _, err = svc.AddLine(buyer.ID, p.ID, "L", 1)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

func TestAddLineDefaultsQuantityToOne(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedPlainProduct(t, conn, store.ID, "5.00", 3)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	cart, _, err := svc.AddLine(buyer.ID, p.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestAddLineSizeMismatch(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	sized := seedSizedProduct(t, conn, store.ID, "19.90", map[string]int{"S": 2})
	plain := seedPlainProduct(t, conn, store.ID, "5.00", 2)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	var mismatch *ProductSizeMismatchError
	_, _, err := svc.AddLine(buyer.ID, sized.ID, "XL", 1)
	assert.ErrorAs(t, err, &mismatch)

	// Sized product demands a size.
	_, _, err = svc.AddLine(buyer.ID, sized.ID, "", 1)
	assert.ErrorAs(t, err, &mismatch)

	// Unsized product refuses one.
	_, _, err = svc.AddLine(buyer.ID, plain.ID, "M", 1)
	assert.ErrorAs(t, err, &mismatch)

	_, _, err = svc.AddLine(buyer.ID, 99999, "", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddLineWarnsWithoutBlocking(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedSizedProduct(t, conn, store.ID, "19.90", map[string]int{"S": 2})
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	// Asking for more than the ledger holds still lands in the cart.
	cart, warn, err := svc.AddLine(buyer.ID, p.ID, "S", 5)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, 5, warn.Requested)
	assert.Equal(t, 2, warn.Available)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestSetLineQuantity(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedPlainProduct(t, conn, store.ID, "5.00", 10)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	cart, _, err := svc.AddLine(buyer.ID, p.ID, "", 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	line, warn, err := svc.SetLineQuantity(buyer.ID, lineID, 7)
	require.NoError(t, err)
	assert.Nil(t, warn)
	assert.Equal(t, 7, line.Quantity)

	line, warn, err = svc.SetLineQuantity(buyer.ID, lineID, 25)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, 25, warn.Requested)
	assert.Equal(t, 10, warn.Available)
	assert.Equal(t, 25, line.Quantity)

	// Zero deletes the line.
	line, _, err = svc.SetLineQuantity(buyer.ID, lineID, 0)
	require.NoError(t, err)
	assert.Nil(t, line)
	cart, err = svc.ActiveCart(buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, _, err = svc.SetLineQuantity(buyer.ID, lineID, 3)
	assert.ErrorIs(t, err, ErrCartLineNotFound)
}

func TestRemoveLine(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedPlainProduct(t, conn, store.ID, "5.00", 10)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	cart, _, err := svc.AddLine(buyer.ID, p.ID, "", 2)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveLine(buyer.ID, cart.Lines[0].ID))
	assert.ErrorIs(t, svc.RemoveLine(buyer.ID, cart.Lines[0].ID), ErrCartLineNotFound)
}

func TestCartLineOwnership(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	p := seedPlainProduct(t, conn, store.ID, "5.00", 10)
	alice := seedCustomer(t, conn)
	mallory := models.User{Email: t.Name() + "-mallory@test", Password: "x", Type: models.UserTypeCustomer}
	require.NoError(t, conn.Create(&mallory).Error)
	svc := newCartService(conn)

	cart, _, err := svc.AddLine(alice.ID, p.ID, "", 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	// Another user's line reads as not found, for update and remove alike.
	_, _, err = svc.SetLineQuantity(mallory.ID, lineID, 9)
	assert.ErrorIs(t, err, ErrCartLineNotFound)
	assert.ErrorIs(t, svc.RemoveLine(mallory.ID, lineID), ErrCartLineNotFound)

	// The line is untouched and still owned by alice.
	cart, err = svc.ActiveCart(alice.ID)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestCartTotalPrice(t *testing.T) {
	conn := setupTestDB(t)
	_, store := seedStore(t, conn, models.StoreStatusApproved)
	tee := seedSizedProduct(t, conn, store.ID, "19.90", map[string]int{"M": 10})
	mug := seedPlainProduct(t, conn, store.ID, "5.25", 10)
	buyer := seedCustomer(t, conn)
	svc := newCartService(conn)

	_, _, err := svc.AddLine(buyer.ID, tee.ID, "M", 2)
	require.NoError(t, err)
	cart, _, err := svc.AddLine(buyer.ID, mug.ID, "", 3)
	require.NoError(t, err)

	// 2 * 19.90 + 3 * 5.25
	assert.Equal(t, "55.55", svc.TotalPrice(cart).StringFixed(2))
	assert.Equal(t, "0.00", svc.TotalPrice(nil).StringFixed(2))
}
