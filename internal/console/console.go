// Package console reads operator input and renders screens on a terminal.
//
// Invalid input never leaves this package: numeric prompts, menus and
// yes/no questions re-prompt until they get a usable answer. The only error
// callers see is ErrClosed, when the input stream ends.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ErrClosed is returned once the input stream has ended.
var ErrClosed = errors.New("console input closed")

// Hint selects the style of a message line.
type Hint int

const (
	HintInfo Hint = iota
	HintSuccess
	HintWarn
	HintError
	HintTitle
)

// Style is the tag and color of a Hint.
type Style struct {
	Tag   string
	Color *color.Color
}

var theme = []struct {
	hint  Hint
	tag   string
	attrs []color.Attribute
}{
	{HintInfo, "===", []color.Attribute{color.FgWhite}},
	{HintSuccess, "<--", []color.Attribute{color.FgGreen}},
	{HintWarn, "+++", []color.Attribute{color.FgHiYellow}},
	{HintError, "***", []color.Attribute{color.FgHiRed}},
	{HintTitle, "", []color.Attribute{color.FgCyan, color.Bold}},
}

// Console is a line-oriented terminal.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	styles   map[Hint]Style
	clear    bool
	headline string

	// readPassword reads a line without echo. Nil falls back to a plain
	// line read.
	readPassword func() ([]byte, error)
}

// Option configures a Console.
type Option func(*Console)

// WithoutColor disables colors.
func WithoutColor() Option {
	return func(c *Console) {
		for _, s := range c.styles {
			s.Color.DisableColor()
		}
	}
}

// WithoutClear disables screen clearing.
func WithoutClear() Option {
	return func(c *Console) {
		c.clear = false
	}
}

// WithHeadline prints headline below every cleared screen.
func WithHeadline(headline string) Option {
	return func(c *Console) {
		c.headline = headline
	}
}

// New creates a Console on in and out.
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:     bufio.NewReader(in),
		out:    out,
		styles: make(map[Hint]Style, len(theme)),
		clear:  true,
	}
	for _, t := range theme {
		c.styles[t.hint] = Style{Tag: t.tag, Color: color.New(t.attrs...)}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stdio creates a Console on the process terminal. Passwords are read
// without echo when stdin is a terminal.
func Stdio(opts ...Option) *Console {
	c := New(os.Stdin, os.Stdout, opts...)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		c.readPassword = func() ([]byte, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(c.out)
			return b, err
		}
	}
	return c
}

// Clear wipes the screen and prints the headline.
func (c *Console) Clear() {
	if c.clear {
		fmt.Fprint(c.out, "\033[H\033[2J")
	}
	if c.headline != "" {
		c.styles[HintTitle].Color.Fprintln(c.out, c.headline)
		fmt.Fprintln(c.out)
	}
}

// Title prints a screen heading.
func (c *Console) Title(title string) {
	s := c.styles[HintTitle]
	s.Color.Fprintln(c.out, title)
	s.Color.Fprintln(c.out, strings.Repeat("-", len([]rune(title))))
}

// Println prints an unstyled line.
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Printf prints unstyled text.
func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// Message prints one tagged, colored line per line of msg.
func (c *Console) Message(hint Hint, msg string) {
	s := c.styles[hint]
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		if s.Tag != "" {
			line = s.Tag + " " + line
		}
		s.Color.Fprintln(c.out, line)
	}
}

// Infof prints an informational line.
func (c *Console) Infof(format string, a ...any) {
	c.Message(HintInfo, fmt.Sprintf(format, a...))
}

// Successf prints a success line.
func (c *Console) Successf(format string, a ...any) {
	c.Message(HintSuccess, fmt.Sprintf(format, a...))
}

// Warnf prints a warning line.
func (c *Console) Warnf(format string, a ...any) {
	c.Message(HintWarn, fmt.Sprintf(format, a...))
}

// Errorf prints an error line.
func (c *Console) Errorf(format string, a ...any) {
	c.Message(HintError, fmt.Sprintf(format, a...))
}

// ReadLine prints prompt and returns the trimmed answer.
func (c *Console) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		fmt.Fprintln(c.out)
		return "", ErrClosed
	}
	return strings.TrimSpace(line), nil
}

// Ask reads a value, returning def when the answer is empty.
func (c *Console) Ask(prompt, def string) (string, error) {
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", prompt, def)
	}
	answer, err := c.ReadLine(prompt + ": ")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// AskRequired reads a value until it is non-empty.
func (c *Console) AskRequired(prompt, def string) (string, error) {
	for {
		answer, err := c.Ask(prompt, def)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		c.Warnf("A value is required.")
	}
}

// AskInt reads an integer in [min, max]. def is used for an empty answer
// when it lies in range.
func (c *Console) AskInt(prompt string, def, min, max int) (int, error) {
	defText := ""
	if def >= min && def <= max {
		defText = strconv.Itoa(def)
	}
	for {
		answer, err := c.Ask(prompt, defText)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= min && n <= max {
			return n, nil
		}
		c.Warnf("Enter a number between %d and %d.", min, max)
	}
}

// Confirm asks a yes/no question. def is used for an empty answer.
func (c *Console) Confirm(prompt string, def bool) (bool, error) {
	choices := "y/N"
	if def {
		choices = "Y/n"
	}
	for {
		answer, err := c.ReadLine(fmt.Sprintf("%s (%s) ", prompt, choices))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.Warnf("Please answer y or n.")
	}
}

// Password reads a secret. On a terminal the input is not echoed.
func (c *Console) Password(prompt string) (string, error) {
	if c.readPassword == nil {
		return c.ReadLine(prompt)
	}
	fmt.Fprint(c.out, prompt)
	b, err := c.readPassword()
	if err != nil {
		return "", ErrClosed
	}
	return string(b), nil
}

// Pause waits for Enter.
func (c *Console) Pause() error {
	_, err := c.ReadLine("Press Enter to continue...")
	return err
}
