package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonSource = `from vector_db import index_for_vector_db
import vector_db


@index_for_vector_db
class User(Base):
    """A registered user.

    Holds profile data.
    """

    table = "users"
    email: str = ""
    _cache = {}

    def save(self):
        x = 1
        return x

    async def load(cls):
        pass

    @index_for_vector_db
    class Settings:
        'Nested settings.'
        theme = "dark"


class Plain:
    name = "x"


@vector_db.index_for_vector_db(version=2,
                               tags=["a"])
class Order:
    total = 0  # comment with def fake()
    if total == 0:
        pass

    @property
    def amount(self):
        return self.total


@other
class Skipped:
    pass
`

func TestPythonParser_Parse(t *testing.T) {
	p := &pythonParser{marker: DefaultMarker}
	recs, err := p.Parse("models.py", []byte(pythonSource))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	user := recs[0]
	assert.Equal(t, "User", user.ClassName)
	assert.Equal(t, 6, user.Line)
	assert.Equal(t, "A registered user.\n\nHolds profile data.", user.Docstring)
	assert.Equal(t, []string{"table", "email", "_cache"}, user.Attributes)
	assert.Equal(t, []string{"save", "load"}, user.Methods)

	settings := recs[1]
	assert.Equal(t, "Settings", settings.ClassName)
	assert.Equal(t, 24, settings.Line)
	assert.Equal(t, "Nested settings.", settings.Docstring)
	assert.Equal(t, []string{"theme"}, settings.Attributes)
	assert.Empty(t, settings.Methods)

	order := recs[2]
	assert.Equal(t, "Order", order.ClassName)
	assert.Equal(t, 35, order.Line)
	assert.Empty(t, order.Docstring)
	assert.Equal(t, []string{"total"}, order.Attributes)
	assert.Equal(t, []string{"amount"}, order.Methods)
}

func TestPythonParser_CustomMarker(t *testing.T) {
	p := &pythonParser{marker: "other"}
	recs, err := p.Parse("models.py", []byte(pythonSource))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Skipped", recs[0].ClassName)
}

func TestPythonParser_MarkerInsideString(t *testing.T) {
	src := "text = \"\"\"\n@index_for_vector_db\nclass Fake:\n    pass\n\"\"\"\n"
	p := &pythonParser{marker: DefaultMarker}
	recs, err := p.Parse("x.py", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPythonParser_DecoratorWithoutClass(t *testing.T) {
	src := "@index_for_vector_db\ndef handler():\n    pass\n"
	p := &pythonParser{marker: DefaultMarker}
	recs, err := p.Parse("x.py", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPyStringLiteral(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"triple double", `"""Doc."""`, "Doc.", true},
		{"triple single", `'''Doc.'''`, "Doc.", true},
		{"double", `"Doc."`, "Doc.", true},
		{"escaped quote", `"say \"hi\""`, `say "hi"`, true},
		{"raw keeps escapes", `r"a\nb"`, `a\nb`, true},
		{"newline escape", `"a\nb"`, "a\nb", true},
		{"concatenation", `"a" + "b"`, "", false},
		{"call", `run()`, "", false},
		{"assignment", `x = "a"`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pyStringLiteral(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanDoc(t *testing.T) {
	in := "\n    First line.\n\n      indented\n    last\n    "
	assert.Equal(t, "First line.\n\n  indented\nlast", cleanDoc(in))
}

func TestIndentWidth(t *testing.T) {
	assert.Equal(t, 0, indentWidth("x"))
	assert.Equal(t, 4, indentWidth("    x"))
	assert.Equal(t, 8, indentWidth("\tx"))
	assert.Equal(t, 8, indentWidth("  \tx"))
}
