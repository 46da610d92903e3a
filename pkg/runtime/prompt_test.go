package runtime

import (
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/docent/pkg/directive"
	"github.com/Protocol-Lattice/docent/pkg/tools"
	"github.com/stretchr/testify/require"
)

func TestDocumentationPrompt(t *testing.T) {
	ts := tools.NewToolSet()
	ts.MustRegister(tools.NewRead(), tools.NewTree())

	prompt, err := DocumentationPrompt("/src/project", ts.Help())
	require.NoError(t, err)

	require.Contains(t, prompt, `"/src/project"`)
	require.Contains(t, prompt, `"/path/to/directory"`)
	require.Contains(t, prompt, directive.InvokeHeading+"\n"+directive.OpenFence)
	require.Contains(t, prompt, directive.DocumentMarker)
	require.Contains(t, prompt, directive.DoneMarker)
	require.NotContains(t, prompt, "{{")

	// the worked example in the prompt is itself a valid directive
	example := prompt[strings.Index(prompt, "For example"):]
	inv, err := directive.Parse(example[:strings.Index(example, "Please note")])
	require.NoError(t, err)
	require.Equal(t, "read", inv.Tool)
}

func TestCorrectionIncludesCause(t *testing.T) {
	msg := Correction(errors.New("no heading"))
	require.True(t, strings.HasPrefix(msg, "Error: no heading\n"))
	require.Contains(t, msg, directive.DocumentMarker)
	require.True(t, strings.HasPrefix(ToolOutput("x"), "\n============= TOOL OUTPUT =============\n"))
}
