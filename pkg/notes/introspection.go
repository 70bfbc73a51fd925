package notes

import (
	"github.com/aretw0/introspection"
)

// Stats counts operations handled by a Service since it was created.
type Stats struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Deleted    int `json:"deleted"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
}

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Stats     Stats  `json:"stats"`
	StoreType string `json:"store_type"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServiceState{
		Stats:     s.stats,
		StoreType: "sqlite",
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "note-service"
}

func (s *Service) record(fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
