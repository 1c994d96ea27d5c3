package model

import "github.com/google/uuid"

func newID() string {
	return uuid.NewString()
}

// All lists every persisted model in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Country{},
		&DeptoState{},
		&CityMunicipality{},
		&User{},
		&Case{},
		&Chat{},
		&Message{},
		&Vote{},
		&Stream{},
		&Document{},
		&Suggestion{},
		&CaseFile{},
		&PasswordResetToken{},
		&Subscription{},
		&SubscriptionEvent{},
		&Invoice{},
	}
}
