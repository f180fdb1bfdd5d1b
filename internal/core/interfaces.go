// Package core defines the shared interfaces and helpers for dispatchdesk.
package core

import "time"

// NotificationKind classifies an operator-facing notification.
type NotificationKind string

const (
	KindInfo       NotificationKind = "info"
	KindSuccess    NotificationKind = "success"
	KindError      NotificationKind = "error"
	KindDispatched NotificationKind = "dispatched"
)

// Notification is a dismissible operator-facing message (a toast).
type Notification struct {
	Kind      NotificationKind
	Title     string
	Message   string
	CallID    string
	Timestamp time.Time
}

// Notifier is the interface components use to surface notifications.
type Notifier interface {
	Notify(Notification)
}

// NullNotifier discards all notifications.
var NullNotifier Notifier = nullNotifier{}

type nullNotifier struct{}

func (nullNotifier) Notify(Notification) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
