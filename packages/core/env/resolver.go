package env

import (
	"os"
	"regexp"
	"sync"
)

// ${NAME} or ${NAME:-default}
var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands ${VAR} references. Lookup order is the process
// environment, then variables set on the resolver, then the inline default.
// Unresolved references are left in place.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	lookup    func(string) (string, bool)
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		lookup:    os.LookupEnv,
	}
}

// SetWarnFunc sets a function to be called for unresolved references.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) value(name string) (string, bool) {
	if v, ok := r.lookup(name); ok {
		return v, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := variablePattern.FindStringSubmatch(match)
		name := groups[1]

		if v, ok := r.value(name); ok {
			return v
		}
		if len(match) > len(name)+3 {
			return groups[2]
		}

		r.warn("unresolved environment variable: ${%s}", name)
		return match
	})
}

// Unresolved lists the names in input that have neither a value nor a
// default.
func (r *Resolver) Unresolved(input string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, groups := range variablePattern.FindAllStringSubmatch(input, -1) {
		name := groups[1]
		if seen[name] || len(groups[0]) > len(name)+3 {
			continue
		}
		if _, ok := r.value(name); ok {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Expand resolves input against the process environment only.
func Expand(input string) string {
	return NewResolver().Resolve(input)
}
