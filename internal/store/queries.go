package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// Target queries.
const (
	queryCreateTarget = `
		INSERT INTO tracked_targets (
			id, url, kind, channel_id, guild_id,
			interval_seconds, mentions, active, created_at, updated_at
		) VALUES (
			@id, @url, @kind, @channel_id, @guild_id,
			@interval_seconds, @mentions, @active, now(), now()
		)
		RETURNING created_at, updated_at`

	queryGetTarget = `
		SELECT id, url, kind, channel_id, guild_id,
		       interval_seconds, mentions, active, created_at, updated_at
		FROM tracked_targets
		WHERE id = $1`

	queryListTargets = `
		SELECT id, url, kind, channel_id, guild_id,
		       interval_seconds, mentions, active, created_at, updated_at
		FROM tracked_targets
		WHERE ($1 = false OR active = true)
		ORDER BY created_at`

	querySetTargetActive = `
		UPDATE tracked_targets
		SET active = $2, updated_at = now()
		WHERE id = $1`

	queryDeleteTarget = `
		DELETE FROM tracked_targets WHERE id = $1`
)

// Snapshot queries.
const (
	queryGetSnapshot = `
		SELECT item_id, target_id, title, price, raw_price, previous_price,
		       image_url, url, purchase_url, status, stock_detail,
		       site, delivery_info, marketplace, checked_at
		FROM item_snapshots
		WHERE item_id = $1`

	queryUpsertSnapshot = `
		INSERT INTO item_snapshots (
			item_id, target_id, title, price, raw_price, previous_price,
			image_url, url, purchase_url, status, stock_detail,
			site, delivery_info, marketplace, checked_at
		) VALUES (
			@item_id, @target_id, @title, @price, @raw_price, @previous_price,
			@image_url, @url, @purchase_url, @status, @stock_detail,
			@site, @delivery_info, @marketplace, @checked_at
		)
		ON CONFLICT (item_id) DO UPDATE SET
			target_id = EXCLUDED.target_id,
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			raw_price = EXCLUDED.raw_price,
			previous_price = EXCLUDED.previous_price,
			image_url = EXCLUDED.image_url,
			url = EXCLUDED.url,
			purchase_url = EXCLUDED.purchase_url,
			status = EXCLUDED.status,
			stock_detail = EXCLUDED.stock_detail,
			site = EXCLUDED.site,
			delivery_info = EXCLUDED.delivery_info,
			marketplace = EXCLUDED.marketplace,
			checked_at = EXCLUDED.checked_at`

	queryInsertPricePoint = `
		INSERT INTO price_points (item_id, target_id, price, observed_at)
		VALUES ($1, $2, $3, $4)`

	queryListPricePoints = `
		SELECT item_id, target_id, price, observed_at
		FROM price_points
		WHERE item_id = $1
		ORDER BY observed_at DESC
		LIMIT $2`
)

// Change event queries.
const (
	queryInsertChangeEvent = `
		INSERT INTO change_events (
			id, item_id, target_id, previous_status, current_status,
			price_delta, notified, detected_at
		) VALUES (
			@id, @item_id, @target_id, @previous_status, @current_status,
			@price_delta, @notified, @detected_at
		)`

	queryListUnnotifiedEvents = `
		SELECT id, item_id, target_id, previous_status, current_status,
		       price_delta, notified, detected_at
		FROM change_events
		WHERE notified = false
		ORDER BY detected_at`

	queryMarkEventNotified = `
		UPDATE change_events SET notified = true WHERE id = $1`
)

// Notification queries.
const (
	queryInsertNotification = `
		INSERT INTO notifications (
			id, item_id, channel_id, payload, mentions, priority,
			scheduled_at, batch_id, retry_count, max_retries, created_at
		) VALUES (
			@id, @item_id, @channel_id, @payload, @mentions, @priority,
			@scheduled_at, @batch_id, @retry_count, @max_retries, @created_at
		)`

	queryUpdateNotification = `
		UPDATE notifications SET
			scheduled_at = @scheduled_at,
			batch_id = @batch_id,
			retry_count = @retry_count
		WHERE id = @id`

	queryGetNotification = `
		SELECT n.id, n.item_id, n.channel_id, n.payload, n.mentions,
		       n.priority, n.scheduled_at, n.batch_id, n.retry_count,
		       n.max_retries, n.created_at
		FROM notifications n
		WHERE n.id = $1`

	queryListDueNotifications = `
		SELECT n.id, n.item_id, n.channel_id, n.payload, n.mentions,
		       n.priority, n.scheduled_at, n.batch_id, n.retry_count,
		       n.max_retries, n.created_at
		FROM notifications n
		LEFT JOIN delivery_status d ON d.notification_id = n.id
		WHERE COALESCE(d.delivered, false) = false
		  AND COALESCE(d.dropped, false) = false
		  AND COALESCE(d.attempts, 0) < $2
		  AND (n.scheduled_at IS NULL OR n.scheduled_at <= $1)
		ORDER BY n.priority, n.created_at`

	queryGetDeliveryStatus = `
		SELECT notification_id, attempts, last_attempt,
		       delivered, delivered_at, dropped, last_error
		FROM delivery_status
		WHERE notification_id = $1`

	queryUpsertDeliveryStatus = `
		INSERT INTO delivery_status (
			notification_id, attempts, last_attempt,
			delivered, delivered_at, dropped, last_error
		) VALUES (
			@notification_id, @attempts, @last_attempt,
			@delivered, @delivered_at, @dropped, @last_error
		)
		ON CONFLICT (notification_id) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			last_attempt = EXCLUDED.last_attempt,
			delivered = delivery_status.delivered OR EXCLUDED.delivered,
			delivered_at = COALESCE(delivery_status.delivered_at, EXCLUDED.delivered_at),
			dropped = delivery_status.dropped OR EXCLUDED.dropped,
			last_error = EXCLUDED.last_error`
)

// Batch queries.
const (
	queryCreateBatch = `
		INSERT INTO notification_batches (
			id, channel_id, window_seconds, status, created_at
		) VALUES (
			@id, @channel_id, @window_seconds, @status, @created_at
		)`

	queryGetBatch = `
		SELECT id, channel_id, window_seconds, status, created_at, processed_at
		FROM notification_batches
		WHERE id = $1`

	queryFindOpenBatch = `
		SELECT id, channel_id, window_seconds, status, created_at, processed_at
		FROM notification_batches
		WHERE channel_id = $1
		  AND status = 'pending'
		  AND created_at + make_interval(secs => window_seconds) > $2
		ORDER BY created_at DESC
		LIMIT 1`

	queryListBatchNotifications = `
		SELECT n.id, n.item_id, n.channel_id, n.payload, n.mentions,
		       n.priority, n.scheduled_at, n.batch_id, n.retry_count,
		       n.max_retries, n.created_at
		FROM notifications n
		WHERE n.batch_id = $1
		ORDER BY n.priority, n.created_at`

	queryMarkBatchProcessed = `
		UPDATE notification_batches
		SET status = 'processed', processed_at = $2
		WHERE id = $1 AND status = 'pending'`
)

// Threshold and interval queries.
const (
	queryListThresholds = `
		SELECT keyword, max_price
		FROM price_thresholds
		ORDER BY keyword`

	queryUpsertThreshold = `
		INSERT INTO price_thresholds (keyword, max_price)
		VALUES ($1, $2)
		ON CONFLICT (keyword) DO UPDATE SET max_price = EXCLUDED.max_price`

	queryDeleteThreshold = `
		DELETE FROM price_thresholds WHERE keyword = $1`

	queryGetDomainInterval = `
		SELECT interval_seconds FROM domain_intervals WHERE site = $1`

	querySetDomainInterval = `
		INSERT INTO domain_intervals (site, interval_seconds)
		VALUES ($1, $2)
		ON CONFLICT (site) DO UPDATE SET interval_seconds = EXCLUDED.interval_seconds`
)
