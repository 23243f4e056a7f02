package stream

// Observer receives the events of one subscription.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

type observerFuncs[T any] struct {
	next     func(T)
	err      func(error)
	complete func()
}

func (o observerFuncs[T]) OnNext(value T) {
	if o.next != nil {
		o.next(value)
	}
}

func (o observerFuncs[T]) OnError(err error) {
	if o.err != nil {
		o.err(err)
	}
}

func (o observerFuncs[T]) OnComplete() {
	if o.complete != nil {
		o.complete()
	}
}

// Observe builds an Observer from functions. Any of them may be nil.
func Observe[T any](next func(T), onError func(error), complete func()) Observer[T] {
	return observerFuncs[T]{next: next, err: onError, complete: complete}
}
