package descriptor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/declhttp/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a descriptor. Any problem is a ContractViolation.
func (m Method) Validate() error {
	if err := structValidator().Struct(m); err != nil {
		return errors.ContractViolation("method %q: invalid descriptor: %s", m.Name, describe(err)).
			WithDetail(errors.DetailMethod, m.Name).
			WithCause(err)
	}
	if !m.Result.Valid() {
		return errors.ContractViolation("method %q: unclassifiable result type %s", m.Name, m.Result).
			WithDetail(errors.DetailMethod, m.Name)
	}
	seen := make([]bool, len(m.Bindings))
	for _, b := range m.Bindings {
		if b.Param >= len(m.Bindings) || seen[b.Param] {
			return errors.ContractViolation("method %q: parameter indices must cover 0..%d exactly once (bad index %d)",
				m.Name, len(m.Bindings)-1, b.Param).
				WithDetail(errors.DetailMethod, m.Name)
		}
		seen[b.Param] = true
	}
	return nil
}

// describe flattens validator errors into "Field:tag" pairs.
func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return strings.Join(parts, ", ")
}

// Table is the immutable lookup table of method descriptors, keyed by name.
type Table struct {
	methods map[string]Method
}

// NewTable validates methods and builds a table. Duplicate names are rejected.
func NewTable(methods ...Method) (*Table, error) {
	t := &Table{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, exists := t.methods[m.Name]; exists {
			return nil, errors.ContractViolation("method %q declared twice", m.Name).
				WithDetail(errors.DetailMethod, m.Name)
		}
		t.methods[m.Name] = m.clone()
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Use it for package-level tables.
func MustTable(methods ...Method) *Table {
	t, err := NewTable(methods...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the descriptor for name.
func (t *Table) Lookup(name string) (Method, bool) {
	m, ok := t.methods[name]
	if !ok {
		return Method{}, false
	}
	return m.clone(), true
}

// Names returns the declared method names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared methods.
func (t *Table) Len() int {
	return len(t.methods)
}
