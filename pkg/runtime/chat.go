package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Protocol-Lattice/docent/pkg/models"
)

// ChatAgent is the part of *agent.Agent an interactive session needs.
type ChatAgent interface {
	Poster
	ClearMessages()
	ListModels(ctx context.Context) []string
	Set(key, value string) error
	Config() models.GenerationConfig
}

// Chat is an interactive session. Input is read as messages that end at a
// blank line; a message starting with ':' is a command and ends at its own
// line.
type Chat struct {
	agent  ChatAgent
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

func NewChat(agent ChatAgent, in io.Reader, out io.Writer) *Chat {
	return &Chat{agent: agent, in: bufio.NewReader(in), out: out, prompt: "\nYou: "}
}

// Run serves commands and messages until :exit, end of input or ctx is
// done. The conversation starts empty.
func (c *Chat) Run(ctx context.Context) error {
	c.agent.ClearMessages()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, c.prompt)
		input, readErr := c.read()
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}

		if quit := c.handle(ctx, input); quit {
			return nil
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
	}
}

func (c *Chat) read() (string, error) {
	var sb strings.Builder
	for {
		line, err := c.in.ReadString('\n')
		sb.WriteString(line)
		text := sb.String()
		if strings.HasPrefix(strings.TrimLeft(text, " \t"), ":") || strings.HasSuffix(text, "\n\n") || err != nil {
			return strings.TrimSpace(text), err
		}
	}
}

func (c *Chat) handle(ctx context.Context, input string) (quit bool) {
	fields := strings.Fields(input)
	switch {
	case input == "":
	case input == ":exit" || input == ":quit" || input == ":q":
		return true
	case input == ":list" || input == ":l":
		for _, id := range c.agent.ListModels(ctx) {
			fmt.Fprintln(c.out, id)
		}
	case fields[0] == ":set" || fields[0] == ":s":
		if len(fields) < 3 {
			fmt.Fprintln(c.out, "Usage: :set <key> <value>")
			break
		}
		if err := c.agent.Set(fields[1], fields[2]); err != nil {
			fmt.Fprintln(c.out, err)
		}
	case input == ":clear" || input == ":c":
		c.agent.ClearMessages()
	case input == ":show":
		data, err := json.MarshalIndent(c.agent.Config(), "", "  ")
		if err != nil {
			fmt.Fprintln(c.out, err)
			break
		}
		fmt.Fprintln(c.out, string(data))
	case strings.HasPrefix(input, ":"):
		fmt.Fprintf(c.out, "Unknown command %s\n", fields[0])
	default:
		c.agent.AddMessage(models.RoleUser, input)
		reply, err := c.agent.Post(ctx)
		if err != nil {
			fmt.Fprintf(c.out, "\nError: %v\n", err)
			break
		}
		fmt.Fprintln(c.out)
		c.agent.AddMessage(models.RoleAssistant, reply)
	}
	return false
}
