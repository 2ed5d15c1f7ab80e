package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/hetro/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// CreateWithLines は注文と注文明細を作成し、同一トランザクションで
// 注文元のカート明細を削除する。カート行をロックしてから、呼び出し元が
// 読み取ったconsumedの各明細がコミット済みのカートに同じ数量で残っている
// ことを検証する。数量マージや削除が割り込んでいた場合はErrCartModifiedを
// 返して何も書き込まない。削除対象はconsumedの明細に限定し、読み取りと
// ロック取得の間に追加された別明細は残す。
func (r *PostgresOrderRepo) CreateWithLines(ctx context.Context, order *model.Order, cartID string, consumed []model.CartLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCart(ctx, tx, cartID); err != nil {
		return err
	}

	if err := verifyCartLines(ctx, tx, cartID, consumed); err != nil {
		return err
	}

	lineIDs := make([]string, len(consumed))
	for i, line := range consumed {
		lineIDs[i] = line.ID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, subject_id, ordered_at, total, shipping_address, contact_phone, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.SubjectID, order.OrderedAt, order.Total,
		order.ShippingAddress, order.ContactPhone, order.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			line.ID, order.ID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = ANY($2)`,
		cartID, pq.Array(lineIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to clear ordered cart items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET last_updated = $2 WHERE id = $1`,
		cartID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to update cart timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// verifyCartLines はロック済みカートの現在の明細とconsumedを突き合わせる。
// consumedの明細が削除されていた場合も数量が変わっていた場合もErrCartModified。
func verifyCartLines(ctx context.Context, tx *sql.Tx, cartID string, consumed []model.CartLine) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, quantity FROM cart_items WHERE cart_id = $1`,
		cartID,
	)
	if err != nil {
		return fmt.Errorf("failed to read cart items for verification: %w", err)
	}
	defer rows.Close()

	current := make(map[string]int)
	for rows.Next() {
		var id string
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			return fmt.Errorf("failed to scan cart item: %w", err)
		}
		current[id] = quantity
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate cart items: %w", err)
	}

	for _, line := range consumed {
		quantity, ok := current[line.ID]
		if !ok || quantity != line.Quantity {
			return ErrCartModified
		}
	}
	return nil
}

// FindByIDAndSubject は注文IDとサブジェクトの組で注文を明細付きで取得する。
// 他サブジェクトの注文IDを指定した場合も見つからない扱いでnilを返す。
func (r *PostgresOrderRepo) FindByIDAndSubject(ctx context.Context, orderID, subjectID string) (*model.Order, error) {
	order := &model.Order{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject_id, ordered_at, total, shipping_address, contact_phone, status
		 FROM orders
		 WHERE id = $1 AND subject_id = $2`,
		orderID, subjectID,
	).Scan(&order.ID, &order.SubjectID, &order.OrderedAt, &order.Total,
		&order.ShippingAddress, &order.ContactPhone, &order.Status)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.listOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListBySubjectID は指定サブジェクトの注文一覧を明細付きで新しい順に返す。
func (r *PostgresOrderRepo) ListBySubjectID(ctx context.Context, subjectID string) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, ordered_at, total, shipping_address, contact_phone, status
		 FROM orders
		 WHERE subject_id = $1
		 ORDER BY ordered_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	for rows.Next() {
		order := &model.Order{}
		if err := rows.Scan(&order.ID, &order.SubjectID, &order.OrderedAt, &order.Total,
			&order.ShippingAddress, &order.ContactPhone, &order.Status); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.listOrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

// listOrderItems は指定注文の明細一覧を返す。
func (r *PostgresOrderRepo) listOrderItems(ctx context.Context, orderID string) ([]model.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product_name, unit_price, quantity
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY product_name, id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderLine
	for rows.Next() {
		line := model.OrderLine{}
		if err := rows.Scan(&line.ID, &line.ProductID, &line.ProductName, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return items, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
