/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package icmd

import (
	"errors"
	"strings"

	"github.com/google/shlex"
)

const shellExe = "/bin/sh"

var errEmptyCommand = errors.New("empty command line")

// Command is an iCommand with its arguments. Commands made with ParseShell are
// run through the shell, so their line may contain pipes and redirections.
type Command struct {
	Name Name
	Args []string

	line string
}

// New returns a Command that runs the given iCommand with the given args.
func New(name Name, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Parse splits line using shell word rules and returns a Command for it. The
// first word must be a known iCommand.
func Parse(line string) (Command, error) {
	words, err := Split(line)
	if err != nil {
		return Command{}, err
	}

	name, err := ParseName(words[0])
	if err != nil {
		return Command{}, err
	}

	return Command{Name: name, Args: words[1:]}, nil
}

// ParseArgv is like Parse, but for an already split command.
func ParseArgv(argv []string) (Command, error) {
	if len(argv) == 0 {
		return Command{}, errEmptyCommand
	}

	name, err := ParseName(argv[0])
	if err != nil {
		return Command{}, err
	}

	return Command{Name: name, Args: argv[1:]}, nil
}

// ParseShell returns a Command that will have the shell interpret line. The
// first word of line must still be a known iCommand.
func ParseShell(line string) (Command, error) {
	c, err := Parse(line)
	if err != nil {
		return Command{}, err
	}

	c.line = line

	return c, nil
}

// MustParse is like Parse, but panics on error. For use with literal command
// lines in tests and fixtures.
func MustParse(line string) Command {
	c, err := Parse(line)
	if err != nil {
		panic(err)
	}

	return c
}

// Shell reports whether c will be run via the shell.
func (c Command) Shell() bool {
	return c.line != ""
}

// Argv returns the executable name followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name.String()}, c.Args...)
}

// String returns the command line, as it would be typed.
func (c Command) String() string {
	if c.line != "" {
		return c.line
	}

	return strings.Join(c.Argv(), " ")
}

// Invocation returns an Invocation that will run c.
func (c Command) Invocation() Invocation {
	if c.line != "" {
		return Invocation{Line: c.line, Shell: true}
	}

	return Invocation{Argv: c.Argv()}
}

// Split splits line into words using shell quoting rules.
func Split(line string) ([]string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, err
	}

	if len(words) == 0 {
		return nil, errEmptyCommand
	}

	return words, nil
}
