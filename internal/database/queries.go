package database

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (id, number, customer_id, discount, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`

	UpdateOrderSQL = `
		UPDATE orders
		SET discount = $2, status = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND version = $5`

	GetOrderByIDSQL = `
		SELECT id, number, customer_id, discount, status, version, created_at, updated_at
		FROM orders WHERE id = $1`

	GetOrderByNumberSQL = `
		SELECT id, number, customer_id, discount, status, version, created_at, updated_at
		FROM orders WHERE number = $1`

	DeleteOrderItemsSQL = `
		DELETE FROM order_items WHERE order_id = $1`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, position)
		VALUES ($1, $2, $3, $4, $5, $6)`

	GetOrderItemsSQL = `
		SELECT id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1
		ORDER BY position ASC`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_at)
		VALUES ($1, $2, $3)`

	GetOrderStatusHistorySQL = `
		SELECT status, changed_at
		FROM order_status_log
		WHERE order_id = (SELECT id FROM orders WHERE number = $1)
		ORDER BY changed_at ASC`

	GetNextOrderNumberSQL = `
		SELECT COALESCE(MAX(CAST(SUBSTRING(number FROM 'ORD_[0-9]{8}_([0-9]{3})') AS INTEGER)), 0) + 1
		FROM orders
		WHERE number LIKE $1`
)

// Payment queries
const (
	InsertPaymentSQL = `
		INSERT INTO payments (id, order_id, amount, status, reference_id, qr_code_data, version, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`

	UpdatePaymentSQL = `
		UPDATE payments
		SET status = $2, confirmed_at = $3, version = version + 1
		WHERE id = $1 AND version = $4`

	GetPaymentByIDSQL = `
		SELECT id, order_id, amount, status, reference_id, qr_code_data, version, created_at, confirmed_at
		FROM payments WHERE id = $1`

	GetPaymentsByOrderIDSQL = `
		SELECT id, order_id, amount, status, reference_id, qr_code_data, version, created_at, confirmed_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at ASC`
)

// Outbox queries
const (
	InsertOutboxEventSQL = `
		INSERT INTO outbox (id, event_name, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	GetUnpublishedOutboxEventsSQL = `
		SELECT id, event_name, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	MarkOutboxEventPublishedSQL = `
		UPDATE outbox SET published_at = NOW() WHERE id = $1`
)

// Worker queries
const (
	InsertWorkerSQL = `
		INSERT INTO workers (name, status)
		VALUES ($1, 'online')
		ON CONFLICT (name) DO UPDATE SET
			status = 'online',
			last_seen = NOW()
		RETURNING id`

	UpdateWorkerStatusSQL = `
		UPDATE workers SET status = $1, last_seen = NOW()
		WHERE name = $2`

	UpdateWorkerHeartbeatSQL = `
		UPDATE workers SET last_seen = NOW(), orders_processed = orders_processed + $1
		WHERE name = $2`

	CheckWorkerOnlineSQL = `
		SELECT COUNT(*) FROM workers WHERE name = $1 AND status = 'online' AND last_seen > NOW() - INTERVAL '60 seconds'`

	GetAllWorkersSQL = `
		SELECT name, status, orders_processed, last_seen
		FROM workers
		ORDER BY name ASC`
)
