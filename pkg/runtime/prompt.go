package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/docent/pkg/directive"
)

const toolOutputFormat = "\n============= TOOL OUTPUT =============\n%s\n"

// ToolOutput frames text as the user message that answers a model turn.
func ToolOutput(text string) string {
	return fmt.Sprintf(toolOutputFormat, text)
}

// DocumentAcknowledgement answers a turn that delivered a document section.
const DocumentAcknowledgement = "File has been documented. Please keep up the good work!\n\n" +
	"Or, if you think you have finished your task and want to stop,\n" +
	"please just output a special token " + directive.DoneMarker + "."

// Correction explains a turn that contained neither a usable invocation nor
// a marker.
func Correction(err error) string {
	var sb strings.Builder
	sb.WriteString("Error: ")
	if err != nil {
		sb.WriteString(err.Error())
		sb.WriteString("\n\n")
	}
	sb.WriteString("I cannot find a correct tool name or arguments in the request.\n")
	sb.WriteString("Please check the format of the request and try again.\n\n")
	sb.WriteString("If you think you have finished your task and want to stop,\n")
	sb.WriteString("please just output a special token " + directive.DoneMarker + ".\n\n")
	sb.WriteString("Otherwise, please either continue to use a tool with " + directive.InvokeHeading + " or\n")
	sb.WriteString("write the documentation with " + directive.DocumentMarker + " without outputting any " + directive.DoneMarker + ".")
	return sb.String()
}

// DocumentationPrompt is the system prompt of a documentation run over
// codebase. toolHelp is embedded as indented JSON.
func DocumentationPrompt(codebase string, toolHelp map[string]any) (string, error) {
	help, err := json.MarshalIndent(toolHelp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode tool help: %w", err)
	}
	r := strings.NewReplacer(
		"{{codebase}}", fmt.Sprintf("%q", codebase),
		"{{tools}}", string(help),
		"{{invoke}}", directive.InvokeHeading,
		"{{open}}", directive.OpenFence,
		"{{close}}", directive.CloseFence,
		"{{document}}", directive.DocumentMarker,
		"{{done}}", directive.DoneMarker,
	)
	return r.Replace(documentationTemplate), nil
}

const documentationTemplate = `
I would like you to help write documentation for the important interfaces, headers and source files in a codebase:
{{codebase}}

There are some tools you can use. You can call them by providing the tool name and the arguments in JSON.
Here are the tools:
{{tools}}

Now tell me what you want to do and I will return you the output of the tool.
Please output a special heading and then a JSON request in the following format (it must be wrapped in triple backticks):

{{invoke}}
{{open}}
{
  "<tool-name>": {
    "arg1": value1,
    "arg2": value2
  }
}
{{close}}

For example, if you want to read the contents of a file, you can use the ` + "`read`" + ` tool like this:
{{invoke}}
{{open}}
{
  "read": {
    "path": "/path/to/file"
  }
}
{{close}}

Please note that you can only call **one** tool **once** at a time. Otherwise errors will be returned.

If you would like to document a file, please output a special {{document}} token and then the
documentation in the target language's standard format (or doxygen format as a fallback):
{{document}}
<file name here with path on a new line>

<<<<<<< SEARCH
LINE 00001: mod xxx;
LINE 00002: use yyyy;
======= REPLACE
/// Some description here
/// Some description here
mod xxx;
use yyyy;
>>>>>>> FINISH

<<<<<<< SEARCH
LINE 00123: fn foo() {
======= REPLACE
/// Some description here
/// Some description here
fn foo() {
...
>>>>>>> FINISH

Note that you **MUST** output the changes in the diff style, with "<<<<<<< SEARCH", "======= REPLACE" and ">>>>>>> FINISH" signs!

And you **MUST** keep the part between "<<<<<<< SEARCH" and "======= REPLACE" AS SMALL AS POSSIBLE! DO NOT INCLUDE THE WHOLE FILE CONTENTS!

You may want to look at the README (if any) and make a plan first, determining all the files to be processed.
During each step, check that you are still on the right track.
Do not leave any files unprocessed. Remember to check and update the plan carefully.

Keep track of the files you have processed and the ones you have not.
When every file is documented, output {{done}} on its own line.
`
