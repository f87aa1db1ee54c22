package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicDetector(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		ok          bool
		instruction string
		subject     string
	}{
		{"example", "draw me a cat, search for the best breed", true, "draw me a cat, ", "the best breed"},
		{"capitalized", "Search for golang releases", true, "", "golang releases"},
		{"quotes ignored when matching", `"search" the web for 'news'`, true, `"`, "'news'"},
		{"no for", "search the web", false, "", ""},
		{"no search", "looking for a cat", false, "", ""},
		{"upper case only", "SEARCH FOR cats", false, "", ""},
		{"for before search only", "for fun, search cats", false, "", ""},
		{"empty subject", "please search for", false, "", ""},
		{"for inside word", "search information about forests", true, "", "mation about forests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, ok := HeuristicDetector{}.Detect(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.instruction, intent.Instruction)
				assert.Equal(t, tt.subject, intent.Subject)
			}
		})
	}
}

func TestTableText(t *testing.T) {
	html := `<p>intro</p><table><tr><th> Name </th><th>Value</th></tr><tr><td>a</td><td><b>1</b></td></tr></table><table><tr><td>x</td></tr></table>`
	assert.Equal(t, "Name Value\na 1\nx\n", TableText(html))
}

func TestTableTextWithoutTables(t *testing.T) {
	assert.Equal(t, "", TableText("<p>no tables here</p>"))
}
