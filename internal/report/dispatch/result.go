package dispatch

import "github.com/emperorhan/taxindexer/internal/domain/model"

// Result is a handler's verdict on one message. Handlers signal "could not
// handle" by returning Unhandled() rather than by raising; errors and
// panics are reserved for genuinely unexpected conditions and both degrade
// to the fallback in production mode.
type Result struct {
	rows    []model.Row
	handled bool
}

// Handled wraps the rows a handler produced. Handled() with no rows is a
// valid outcome for messages with no economic effect.
func Handled(rows ...model.Row) Result {
	return Result{rows: rows, handled: true}
}

// Unhandled signals that the handler does not recognize the message and
// the fallback should run.
func Unhandled() Result {
	return Result{}
}

// Handler interprets one message into accounting rows. Handlers may mutate
// the transaction's Comment but must not mutate the message's Index.
type Handler interface {
	Name() string
	Handle(tc *model.TransactionContext, mc *model.MessageContext) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	name string
	fn   func(tc *model.TransactionContext, mc *model.MessageContext) (Result, error)
}

func NewHandlerFunc(name string, fn func(tc *model.TransactionContext, mc *model.MessageContext) (Result, error)) HandlerFunc {
	return HandlerFunc{name: name, fn: fn}
}

func (h HandlerFunc) Name() string { return h.name }

func (h HandlerFunc) Handle(tc *model.TransactionContext, mc *model.MessageContext) (Result, error) {
	return h.fn(tc, mc)
}
