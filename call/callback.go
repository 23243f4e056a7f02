package call

// Callback receives the outcome of an enqueued call. Exactly one method is
// invoked, at most once, from whichever goroutine completed the request.
// Neither is invoked once the call has been cancelled.
type Callback[T any] interface {
	OnSuccess(value T)
	OnFailure(err error)
}

type funcs[T any] struct {
	onSuccess func(T)
	onFailure func(error)
}

func (f funcs[T]) OnSuccess(value T) {
	if f.onSuccess != nil {
		f.onSuccess(value)
	}
}

func (f funcs[T]) OnFailure(err error) {
	if f.onFailure != nil {
		f.onFailure(err)
	}
}

// Funcs builds a Callback from two functions. Either may be nil.
func Funcs[T any](onSuccess func(T), onFailure func(error)) Callback[T] {
	return funcs[T]{onSuccess: onSuccess, onFailure: onFailure}
}
