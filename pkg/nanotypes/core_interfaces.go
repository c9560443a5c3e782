// Package nanotypes defines the shared types and interfaces of tswnano.
// It holds the capability model, command records, chat state and the
// provider contracts that the invoker, chat session and CLI are built on.
package nanotypes

// Service defines the interface for tswnano services that provide specific functionality.
// Services are initialized at startup and looked up through the service registry.
type Service interface {
	Name() string
	Initialize() error
}

// ServiceRegistry manages the registration and retrieval of services.
type ServiceRegistry interface {
	GetService(name string) (Service, error)
	RegisterService(service Service) error
}
