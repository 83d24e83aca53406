package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

const dateLayout = "2006-01-02"

// PlannedOrderStore persists planned orders in SQLite. Replacing a product's
// orders happens in a single transaction.
type PlannedOrderStore struct {
	db  *sql.DB
	now func() time.Time
}

// Verify interface compliance
var (
	_ repositories.PlannedOrderWriter   = (*PlannedOrderStore)(nil)
	_ repositories.PlannedOrderReplacer = (*PlannedOrderStore)(nil)
	_ repositories.PlannedOrderReader   = (*PlannedOrderStore)(nil)
)

// Open opens (creating if needed) the database at path and migrates it
func Open(ctx context.Context, path string) (*PlannedOrderStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PlannedOrderStore{db: db, now: time.Now}, nil
}

func (s *PlannedOrderStore) Close() error {
	return s.db.Close()
}

func (s *PlannedOrderStore) DeletePlannedOrders(ctx context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteOverlapping(ctx, tx, rootProductID, horizon)
	})
}

func (s *PlannedOrderStore) SavePlannedOrder(ctx context.Context, order *entities.PlannedOrder) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, order)
	})
}

// ReplacePlannedOrders deletes the product's orders overlapping the horizon
// and inserts orders; on any failure the previous orders remain
func (s *PlannedOrderStore) ReplacePlannedOrders(ctx context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon, orders []*entities.PlannedOrder) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteOverlapping(ctx, tx, rootProductID, horizon); err != nil {
			return err
		}
		for _, order := range orders {
			if err := s.insert(ctx, tx, order); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindPlannedOrders returns the orders starting within the horizon
func (s *PlannedOrderStore) FindPlannedOrders(ctx context.Context, horizon entities.PlanningHorizon) ([]*entities.PlannedOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, root_product_id, parent_product_id, quantity, start_date, due_date, replenishment_type, past_due
		FROM planned_orders
		WHERE start_date >= ? AND start_date <= ?
		ORDER BY start_date, product_id, id
	`, horizon.Start.Format(dateLayout), horizon.End.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query planned orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []*entities.PlannedOrder
	for rows.Next() {
		order, err := scanPlannedOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read planned orders: %w", err)
	}
	return orders, nil
}

func (s *PlannedOrderStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteOverlapping(ctx context.Context, tx *sql.Tx, rootProductID entities.ProductID, horizon entities.PlanningHorizon) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM planned_orders
		WHERE root_product_id = ? AND due_date >= ? AND start_date <= ?
	`, string(rootProductID), horizon.Start.Format(dateLayout), horizon.End.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("delete planned orders of %s: %w", rootProductID, err)
	}
	return nil
}

func (s *PlannedOrderStore) insert(ctx context.Context, tx *sql.Tx, order *entities.PlannedOrder) error {
	root := order.RootProductID
	if root == "" {
		root = order.ProductID
	}
	pastDue := 0
	if order.PastDue {
		pastDue = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO planned_orders (id, product_id, root_product_id, parent_product_id, quantity, start_date, due_date, replenishment_type, past_due, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.ID, string(order.ProductID), string(root), string(order.ParentProductID), order.Quantity.String(),
		order.StartDate.Format(dateLayout), order.DueDate.Format(dateLayout), order.ReplenishmentType.String(),
		pastDue, s.now().UTC())
	if err != nil {
		return fmt.Errorf("insert planned order %s: %w", order.ID, err)
	}
	return nil
}

func scanPlannedOrder(rows *sql.Rows) (*entities.PlannedOrder, error) {
	var (
		order                                  entities.PlannedOrder
		product, root, parent                  string
		quantity, start, due, replenishmentStr string
		pastDue                                int
	)
	if err := rows.Scan(&order.ID, &product, &root, &parent, &quantity, &start, &due, &replenishmentStr, &pastDue); err != nil {
		return nil, fmt.Errorf("scan planned order: %w", err)
	}

	var err error
	if order.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("planned order %s quantity: %w", order.ID, err)
	}
	if order.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return nil, fmt.Errorf("planned order %s start date: %w", order.ID, err)
	}
	if order.DueDate, err = time.Parse(dateLayout, due); err != nil {
		return nil, fmt.Errorf("planned order %s due date: %w", order.ID, err)
	}
	if order.ReplenishmentType, err = entities.ParseReplenishmentType(replenishmentStr); err != nil {
		return nil, fmt.Errorf("planned order %s: %w", order.ID, err)
	}
	order.ProductID = entities.ProductID(product)
	order.RootProductID = entities.ProductID(root)
	order.ParentProductID = entities.ProductID(parent)
	order.PastDue = pastDue != 0
	return &order, nil
}

// DemandProvider pairs an external demand source with the store so the MRP
// engine writes its plans to SQLite
type DemandProvider struct {
	repositories.DemandSource
	*PlannedOrderStore
}

var (
	_ repositories.DemandDataProvider   = DemandProvider{}
	_ repositories.PlannedOrderReplacer = DemandProvider{}
)
