//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"echoforge/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the delivery endpoint lent to the core for the duration
// of a connection. Consume must never block on a slow consumer.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ITokenVerifier resolves a bearer credential into a user identity.
// Every failure reason (missing, malformed, expired, bad signature) is
// treated identically by the caller: refuse the connection.
type ITokenVerifier interface {
	Verify(token string) (int64, error)
}
