package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

type commandKind int

const (
	cmdSearch commandKind = iota + 1
	cmdAuto
	cmdQuit
)

type command struct {
	kind commandKind
	text string
	on   bool
}

var errEmptyCommand = errors.New("empty command")

// parseCommand reads one console line: "search <title>", "auto on|off" or "quit".
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errEmptyCommand
	}
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(verb) {
	case "search":
		if rest == "" {
			return command{}, errors.New("search needs a title")
		}
		return command{kind: cmdSearch, text: rest}, nil
	case "auto":
		switch strings.ToLower(rest) {
		case "on":
			return command{kind: cmdAuto, on: true}, nil
		case "off":
			return command{kind: cmdAuto, on: false}, nil
		}
		return command{}, fmt.Errorf("auto expects on or off, got %q", rest)
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", verb)
}

// controls is the part of the dispatcher the console drives.
type controls interface {
	SetSearchTarget(text string)
	SetAutoMode(on bool)
}

// console applies commands from r until quit, EOF or ctx ends. It returns
// true when the user asked to quit.
func console(ctx context.Context, r io.Reader, c controls, logger zerolog.Logger) bool {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			cmd, err := parseCommand(line)
			if errors.Is(err, errEmptyCommand) {
				continue
			}
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring command")
				continue
			}
			switch cmd.kind {
			case cmdSearch:
				logger.Info().Str("target", cmd.text).Msg("search target set")
				c.SetSearchTarget(cmd.text)
			case cmdAuto:
				logger.Info().Bool("auto", cmd.on).Msg("auto mode set")
				c.SetAutoMode(cmd.on)
			case cmdQuit:
				return true
			}
		}
	}
}
