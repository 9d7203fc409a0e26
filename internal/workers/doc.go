// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workers implements trackerd's background maintenance loops:
// the daily summary generator, the compressed-view publisher, and the
// midnight live-state clearer. Each is a suture.Service ticking on its
// own interval, one instance shared across every active event so the
// supervisor tree only ever holds three long-lived goroutines regardless
// of event count.
package workers
