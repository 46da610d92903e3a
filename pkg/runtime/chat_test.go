package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/docent/pkg/agent"
	"github.com/Protocol-Lattice/docent/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestChatSession(t *testing.T) {
	backend := models.NewDummy("", "first reply", "second reply")
	a, err := agent.New(backend, agent.WithSystemPrompt("sys"))
	require.NoError(t, err)

	input := strings.Join([]string{
		":set temp 0.5",
		":set top_k nope",
		":s model tiny",
		"hello",
		"there",
		"",
		":show",
		":list",
		":clear",
		"again",
		"",
		":bogus",
		":q",
		"never read",
		"",
	}, "\n")

	var out strings.Builder
	require.NoError(t, NewChat(a, strings.NewReader(input), &out).Run(context.Background()))

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	require.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "hello\nthere"},
	}, reqs[0].Messages)
	require.Equal(t, "tiny", reqs[0].Config.Model)
	require.Equal(t, 0.5, *reqs[0].Config.Temperature)

	// :clear dropped the first exchange
	require.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: "again"},
	}, reqs[1].Messages)
	require.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "again"},
		{Role: models.RoleAssistant, Content: "second reply"},
	}, a.History())

	printed := out.String()
	require.Contains(t, printed, `invalid value "nope" for top_k`)
	require.Contains(t, printed, `"model": "tiny"`)
	require.Contains(t, printed, "dummy\n")
	require.Contains(t, printed, "Unknown command :bogus")
	require.NotContains(t, printed, "never read")
}

func TestChatEndsAtEOF(t *testing.T) {
	backend := models.NewDummy("", "ok")
	a, err := agent.New(backend)
	require.NoError(t, err)

	require.NoError(t, NewChat(a, strings.NewReader("last words"), &strings.Builder{}).Run(context.Background()))
	require.Len(t, backend.Requests(), 1)
	require.Equal(t, "last words", backend.Requests()[0].Messages[0].Content)
}

func TestChatSetUsage(t *testing.T) {
	a, err := agent.New(models.NewDummy(""))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, NewChat(a, strings.NewReader(":set model\n:exit\n"), &out).Run(context.Background()))
	require.Contains(t, out.String(), "Usage: :set <key> <value>")
}
