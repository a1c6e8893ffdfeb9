// Package domain models Cape Cod & Islands ferry sailings, routes, and the
// weather context used to score disruption risk.
//
// # Data Sources
//
// Sailing observations arrive from two independent scrapers running against
// each operator's public website: a full schedule scrape (~every 30 minutes)
// that enumerates the whole published day, and a live status scrape (~every
// 3 minutes) that sees only sailings which have not yet departed plus any
// cancellation-reason text. Both feed the same canonical per-service-day
// sailing set. Wind conditions arrive either as operator-measured readings
// bundled with scrape payloads or from a secondary weather service.
//
// # Sailing Keys
//
// A sailing is identified within a service date by
//
//	<origin slug>|<destination slug>|<normalized departure time>
//
// Port names map to fixed slugs ("Woods Hole" -> "woods-hole"). Times are
// lowercased, whitespace-stripped, and leading-zero-stripped
// ("08:35 AM" -> "8:35am"). The key must match byte-for-byte across both
// scrapers and every downstream consumer because it is the merge join key.
//
// # Status Semantics
//
// OperatorStatus is nil-like ("") until a live observation declares one.
// Transitions between on_time and delayed are free. Cancellation is terminal:
// once a sailing is canceled, no later observation (including the sailing
// disappearing from the operator's page entirely) may revert the status or
// clear the reason. Absence from a scrape is never evidence of anything on
// its own; a sailing missing from the live view is only flagged as removed
// when its scheduled departure is still inside the 15-minute grace window.
//
// # Compass Buckets
//
// Wind directions bucket to the nearest of 16 compass sectors (22.5° each):
// N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSW, SW, WSW, W, WNW, NW, NNW.
// Route exposure tables are keyed by these buckets; exposure values are
// log-normalized open-water fetch distances (0 = fully sheltered, 1 = fully
// exposed, 50 km fetch saturates the scale).
package domain
