package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/eiannone/keyboard"
)

// getSingleKey is swappable for tests
var getSingleKey = keyboard.GetSingleKey

// newConfirm returns a y/N prompt. On a terminal it answers on a single
// keypress; otherwise, or when the keyboard cannot be opened, it reads a line.
func newConfirm(in io.Reader, out io.Writer, interactive bool) func(prompt string) (bool, error) {
	reader := bufio.NewReader(in)
	return func(prompt string) (bool, error) {
		fmt.Fprint(out, prompt)

		if interactive {
			ch, _, err := getSingleKey()
			if err == nil {
				fmt.Fprintln(out, string(ch))
				return ch == 'y' || ch == 'Y', nil
			}
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		if err == io.EOF && line == "" {
			fmt.Fprintln(out)
		}
		return strings.EqualFold(strings.TrimSpace(line), "y"), nil
	}
}
