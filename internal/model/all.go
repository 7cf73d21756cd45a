package model

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&Facility{},
		&MaintenanceRecord{},
		&Reservation{},
		&Observation{},
		&NotificationRequest{},
		&PushSubscription{},
	}
}
