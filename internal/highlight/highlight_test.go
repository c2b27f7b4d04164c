package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func join(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func kinds(spans []Span, k Kind) []string {
	var out []string
	for _, s := range spans {
		if s.Kind == k {
			out = append(out, s.Text)
		}
	}
	return out
}

func TestTokenize_Kinds(t *testing.T) {
	src := `@Override
public String nome() { // devolve o nome
    char c = 'x';
    int MAX_IDADE = 0x1F;
    /* bloco */ return "Olá, \"mundo\"" + c + 3.5;
}`

	spans := Tokenize(src)
	assert.Equal(t, src, join(spans))

	assert.Equal(t, []string{"@Override"}, kinds(spans, KindAnnotation))
	assert.Equal(t, []string{"public", "char", "int", "return"}, kinds(spans, KindKeyword))
	assert.Equal(t, []string{"String"}, kinds(spans, KindClass))
	assert.Equal(t, []string{"// devolve o nome", "/* bloco */"}, kinds(spans, KindComment))
	assert.Equal(t, []string{`"Olá, \"mundo\""`}, kinds(spans, KindString))
	assert.Equal(t, []string{"'x'"}, kinds(spans, KindChar))
	assert.Equal(t, []string{"0x1F", "3.5"}, kinds(spans, KindNumber))
}

func TestTokenize_PreservesInput(t *testing.T) {
	inputs := []string{
		"",
		`"unterminated`,
		"/* never closed",
		"a\n'",
		`String s = """
texto
""";`,
		"x ≠ y; // ünïcödé",
		"@",
	}
	for _, in := range inputs {
		assert.Equal(t, in, join(Tokenize(in)), "input %q", in)
	}
}

func TestTokenize_ConstantsAreNotClasses(t *testing.T) {
	spans := Tokenize("Math.PI + List.of(A)")
	assert.Equal(t, []string{"Math", "List", "A"}, kinds(spans, KindClass))
}
