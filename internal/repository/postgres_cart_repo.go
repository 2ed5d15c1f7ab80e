package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/hetro/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
// 変更操作はcarts行のFOR UPDATEロックを含むトランザクションで直列化する。
// 同一サブジェクトへの並行AddLineで更新が失われることはない。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// FindBySubjectID は指定サブジェクトのカートを明細付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresCartRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, subject_id, last_updated FROM carts WHERE subject_id = $1`,
		subjectID,
	).Scan(&cart.ID, &cart.SubjectID, &cart.LastUpdated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product_name, unit_price, quantity
		 FROM cart_items
		 WHERE cart_id = $1
		 ORDER BY product_name, id`,
		cart.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := model.CartLine{}
		if err := rows.Scan(&line.ID, &line.ProductID, &line.ProductName, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}

	return cart, nil
}

// Create はカートを作成する。同一サブジェクトのカートが既に存在する場合は何もしない。
// 並行作成の勝者はFindBySubjectIDで取り直すこと。
func (r *PostgresCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, subject_id, last_updated)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (subject_id) DO NOTHING`,
		cart.ID, cart.SubjectID, cart.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cart: %w", err)
	}
	return nil
}

// AddLine は明細を追加する。同一商品の明細が既に存在する場合は数量のみを加算し、
// product_name / unit_price は最初の追加時のスナップショットを維持する。
func (r *PostgresCartRepo) AddLine(ctx context.Context, cartID string, line *model.CartLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCart(ctx, tx, cartID); err != nil {
		return err
	}

	// ON CONFLICTで数量のみを加算する。スナップショット列は更新しない。
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cart_items (id, cart_id, product_id, product_name, unit_price, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		line.ID, cartID, line.ProductID, line.ProductName, line.UnitPrice, line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveLine は指定明細を削除する。明細が存在した場合はtrueを返す。
func (r *PostgresCartRepo) RemoveLine(ctx context.Context, cartID, lineID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCart(ctx, tx, cartID); err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`,
		lineID, cartID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete cart item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		if err := touchCart(ctx, tx, cartID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rowsAffected > 0, nil
}

// ClearLines はカートの全明細を削除する。空のカートには何もしない。
func (r *PostgresCartRepo) ClearLines(ctx context.Context, cartID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCart(ctx, tx, cartID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1`,
		cartID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		if err := touchCart(ctx, tx, cartID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ItemCount は指定サブジェクトのカートの数量合計を返す。カートが無い場合は0。
func (r *PostgresCartRepo) ItemCount(ctx context.Context, subjectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(ci.quantity), 0)
		 FROM carts c
		 JOIN cart_items ci ON ci.cart_id = c.id
		 WHERE c.subject_id = $1`,
		subjectID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return count, nil
}

// lockCart はトランザクション内でカート行の排他ロックを取得する。
// 同一カートへの変更操作とチェックアウトを直列化する。
func lockCart(ctx context.Context, tx *sql.Tx, cartID string) error {
	var id string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE id = $1 FOR UPDATE`,
		cartID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("cart not found: %s", cartID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	return nil
}

// touchCart はカートの最終更新時刻を現在時刻に更新する。
func touchCart(ctx context.Context, tx *sql.Tx, cartID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE carts SET last_updated = $2 WHERE id = $1`,
		cartID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to update cart timestamp: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)
