package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestResolver(environ map[string]string) *Resolver {
	r := NewResolver()
	r.lookup = func(name string) (string, bool) {
		v, ok := environ[name]
		return v, ok
	}
	return r
}

func TestResolverResolve(t *testing.T) {
	r := newTestResolver(map[string]string{"HOST": "api.internal", "EMPTY": ""})
	r.SetVariables(map[string]string{"PORT": "8080", "HOST": "ignored"})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no references", "plain", "plain"},
		{"process env", "${HOST}", "api.internal"},
		{"process env wins", "http://${HOST}:${PORT}", "http://api.internal:8080"},
		{"empty but set", "[${EMPTY}]", "[]"},
		{"default used", "${SCHEME:-https}", "https"},
		{"empty default", "[${SCHEME:-}]", "[]"},
		{"default ignored when set", "${PORT:-80}", "8080"},
		{"unresolved kept", "${MISSING}", "${MISSING}"},
		{"not a reference", "$HOST {HOST}", "$HOST {HOST}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.input))
		})
	}
}

func TestResolverWarns(t *testing.T) {
	r := newTestResolver(nil)
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("${A} ${B:-b}")
	assert.Equal(t, []string{"unresolved environment variable: ${A}"}, warnings)
}

func TestResolverUnresolved(t *testing.T) {
	r := newTestResolver(map[string]string{"SET": "1"})

	assert.Equal(t, []string{"A", "C"}, r.Unresolved("${A} ${SET} ${B:-x} ${C} ${A}"))
	assert.Empty(t, r.Unresolved("no refs"))
}

func TestExpand(t *testing.T) {
	t.Setenv("QAKIT_EXPAND_TEST", "yes")
	assert.Equal(t, "yes/no", Expand("${QAKIT_EXPAND_TEST}/${QAKIT_EXPAND_MISSING:-no}"))
}
