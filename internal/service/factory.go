package service

import (
	"lintel.app/tracker/internal/queue"
	"lintel.app/tracker/internal/store"
)

type Services struct {
	stores *store.Stores
	events queue.Producer
}

func NewServices(stores *store.Stores, events queue.Producer) *Services {
	return &Services{
		stores: stores,
		events: events,
	}
}

func (s *Services) Issues() IssueService {
	return NewIssueService(s.stores.Issues(), s.events)
}
