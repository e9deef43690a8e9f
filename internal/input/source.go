package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoPath means no source yielded an input file path.
var ErrNoPath = errors.New("no input file provided")

// PathSource supplies the path of the input export. The interactive prompt
// stands in for the original file picker; any one-method provider works.
type PathSource interface {
	Path() (string, error)
}

// Args takes the first command-line argument.
type Args struct {
	Argv []string
}

func (a Args) Path() (string, error) {
	if len(a.Argv) == 0 {
		return "", nil
	}
	return strings.TrimSpace(a.Argv[0]), nil
}

// Fixed returns a preconfigured path.
type Fixed string

func (f Fixed) Path() (string, error) {
	return strings.TrimSpace(string(f)), nil
}

// Prompt asks on the terminal and reads one line.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

func (p Prompt) Path() (string, error) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, "Input CSV file: ")

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read input path")
	}
	return strings.TrimSpace(line), nil
}

// Resolve returns the first non-empty path from: command-line argument,
// configured path, interactive prompt.
func Resolve(argv []string, configured string, in io.Reader) (string, error) {
	sources := []PathSource{
		Args{Argv: argv},
		Fixed(configured),
		Prompt{In: in},
	}

	for _, src := range sources {
		path, err := src.Path()
		if err != nil {
			return "", err
		}
		if path != "" {
			return path, nil
		}
	}

	return "", ErrNoPath
}
