// Package events carries live task-progress notifications from the scheduler
// to interested consumers (logging, progress UIs) without coupling the
// scheduler to any particular delivery mechanism.
package events
