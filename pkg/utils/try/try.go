package try

// something having method `Fatal`.
//
// For example in standard libraries: *testing.T, log.Logger
type Fataler interface {
	Fatal(...any)
}

// Wrapper of a pair of (T, error).
//
// When error is nil, such Either is "ok" and the T value is valid.
type Either[T any] interface {
	// get value & error pair.
	Get() (T, error)

	// When the Either is "ok", return the T value.
	//
	// Otherwise, call ftl.Fatal(err). If ftl has a "Helper()" method
	// (like *testing.T), that is called before Fatal.
	OrFatal(ftl Fataler) T

	// When the Either is "ok", return the T value. Otherwise, the
	// fallback.
	OrDefault(T) T
}

type helper interface {
	Helper()
}

type tryOk[T any] struct {
	value T
}

func (t tryOk[T]) Get() (T, error) {
	return t.value, nil
}

func (t tryOk[T]) OrFatal(Fataler) T {
	return t.value
}

func (t tryOk[T]) OrDefault(T) T {
	return t.value
}

type tryNg[T any] struct {
	err error
}

func (t tryNg[T]) Get() (T, error) {
	return *new(T), t.err
}

func (t tryNg[T]) OrFatal(ftl Fataler) T {
	if h, ok := ftl.(helper); ok {
		h.Helper()
	}
	ftl.Fatal(t.err)
	return *new(T) // not reached when Fatal panics/exits
}

func (t tryNg[T]) OrDefault(def T) T {
	return def
}

// To wraps a (value, error) pair into an Either.
func To[T any](value T, err error) Either[T] {
	if err != nil {
		return tryNg[T]{err: err}
	}
	return tryOk[T]{value: value}
}
