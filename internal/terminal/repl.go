package terminal

import (
	"bufio"
	"fmt"
	"io"
)

const prompt = "> "

// REPL drives a History from a line-oriented reader, printing outputs as
// plain text. It returns when in is exhausted or the user types exit.
func REPL(in io.Reader, out io.Writer, h *History, welcome string) error {
	if welcome != "" {
		fmt.Fprintln(out, welcome)
	}
	for _, e := range h.Entries() {
		printEntry(out, e)
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		line := scanner.Text()
		if n := Normalize(line); n == "exit" || n == "quit" {
			return nil
		}
		entry, result := h.Execute(line)
		switch result {
		case Cleared:
			fmt.Fprint(out, "\033[H\033[2J")
		case Appended, Unknown:
			fmt.Fprintln(out, entry.Output.String())
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}

func printEntry(out io.Writer, e Entry) {
	fmt.Fprintf(out, "%s%s\n%s\n", prompt, e.Command, e.Output.String())
}
