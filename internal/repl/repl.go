// Package repl runs the interactive question loop.
package repl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
)

// maxLine bounds a single input line.
const maxLine = 1 << 20

// ErrLineTooLong is reported for an input line over maxLine bytes.
var ErrLineTooLong = errors.New("input line too long")

// Answerer answers one question.
type Answerer interface {
	Answer(ctx context.Context, query string) (*models.Answer, error)
}

// Loop reads questions line by line and prints answers with their sources.
type Loop struct {
	answerer Answerer
	in       io.Reader
	printer  *cli.Printer
	logger   *zap.Logger
}

// New creates a loop reading from in and printing to out. logger may be nil.
func New(answerer Answerer, in io.Reader, out io.Writer, logger *zap.Logger) *Loop {
	return NewWithPrinter(answerer, in, cli.NewPrinter(out, false), logger)
}

// NewWithPrinter creates a loop that prints through p.
func NewWithPrinter(answerer Answerer, in io.Reader, p *cli.Printer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{answerer: answerer, in: in, printer: p, logger: logger}
}

// IsExit reports whether line asks to leave the loop.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// Run prints the banner and answers questions until exit, quit, end of input or
// context cancellation. Answer errors and overlong lines are printed and the loop
// continues. Lines reach the answerer as typed.
func (l *Loop) Run(ctx context.Context) error {
	reader := bufio.NewReader(l.in)

	l.printer.Banner()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.printer.Prompt()
		line, err := readLine(reader)
		if errors.Is(err, ErrLineTooLong) {
			l.logger.Warn("input line discarded", zap.Int("max_bytes", maxLine))
			l.printer.Error(err)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if IsExit(line) {
			l.logger.Debug("exit requested")
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		answer, err := l.answerer.Answer(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			if !errors.Is(err, rag.ErrInvalidQuery) {
				l.logger.Warn("query failed", zap.String("query", line), zap.Error(err))
			}
			l.printer.Error(err)
			continue
		}
		if err := l.printer.WriteAnswer(answer, cli.OutputText); err != nil {
			return err
		}
	}
}

// readLine returns the next line without its terminator. A line longer than maxLine
// is consumed up to its end and reported as ErrLineTooLong.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	tooLong := false
	for {
		frag, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (sb.Len() > 0 || tooLong) {
				break
			}
			return "", err
		}
		if !tooLong {
			if sb.Len()+len(frag) > maxLine {
				tooLong = true
				sb.Reset()
			} else {
				sb.Write(frag)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", ErrLineTooLong
	}
	return sb.String(), nil
}
