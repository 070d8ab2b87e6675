// Package adapters lets the Postgres engine run on pgxpool.Pool, sql.DB or sqlx.DB.
//
// Each adapter executes fully interpolated SQL strings and exposes the rows through the small DBRows interface,
// so the engine never depends on a particular driver.
package adapters
