package main

import (
	"fmt"
	"io"

	"github.com/mitchellh/colorstring"

	"github.com/Protocol-Lattice/docent/pkg/runtime"
)

type console struct {
	w     io.Writer
	color colorstring.Colorize
}

func newConsole(w io.Writer, color bool) *console {
	return &console{
		w: w,
		color: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !color,
			Reset:   true,
		},
	}
}

func (c *console) heading(title string) string {
	return c.color.Color(fmt.Sprintf("[bold][cyan]============= %s =============", title))
}

func (c *console) section(title, body string) {
	fmt.Fprintf(c.w, "\n%s\n%s\n%s\n\n", c.heading(title), body, c.color.Color("[bold][cyan]=================================="))
}

// observe renders loop events. Model text itself is streamed by the agent.
func (c *console) observe(ev runtime.Event) {
	switch ev.Kind {
	case runtime.EventPosting:
		fmt.Fprintf(c.w, "\n%s\n", c.heading("LLM RESPONSE"))
	case runtime.EventFailure:
		fmt.Fprintf(c.w, "\n%s %v\n", c.color.Color("[red]request failed:"), ev.Err)
	case runtime.EventToolOutput:
		fmt.Fprintln(c.w, ev.Text)
	case runtime.EventDone:
		fmt.Fprintln(c.w, c.color.Color("\n\n[green]Done."))
	}
}
