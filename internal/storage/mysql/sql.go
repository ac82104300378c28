package mysql

// Re-adding an existing (user, facility) pair keeps its id and created_at
// and refreshes the display name.
const upsertFavoriteSQL = `
INSERT INTO favorites
  (id, user_id, facility_id, name)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  updated_at = CURRENT_TIMESTAMP
`

const getFavoriteSQL = `
SELECT id, user_id, facility_id, name, created_at
FROM favorites
WHERE user_id = ? AND facility_id = ?
`

const listFavoritesSQL = `
SELECT id, user_id, facility_id, name, created_at
FROM favorites
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

const deleteFavoriteSQL = `
DELETE FROM favorites
WHERE user_id = ? AND facility_id = ?
`

const insertFetchFailureSQL = `
INSERT INTO fetch_failures
  (lat, lon, radius_m, reason)
VALUES
  (?, ?, ?, ?)
`

const insertRequestSQL = `
INSERT INTO ambulance_requests
  (id, user_id, facility_id, facility_name, pickup_lat, pickup_lon, dest_lat, dest_lon,
   payment_method, emergency_type, distance_km, eta_minutes, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const requestColumns = `
  id, user_id, facility_id, facility_name, pickup_lat, pickup_lon, dest_lat, dest_lon,
  payment_method, emergency_type, distance_km, eta_minutes, status, created_at, updated_at
`

const getRequestSQL = `
SELECT` + requestColumns + `
FROM ambulance_requests
WHERE user_id = ? AND id = ?
`

const listRequestsSQL = `
SELECT` + requestColumns + `
FROM ambulance_requests
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

// The status guard makes concurrent transitions lose cleanly.
const updateRequestStatusSQL = `
UPDATE ambulance_requests
SET status = ?
WHERE user_id = ? AND id = ? AND status = ?
`
