package wallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/ports"
)

// PromptSigner asks the user to approve each signature before delegating.
// A single goroutine owns the input; abandoning ctx returns early and a line
// typed after that answers the next request instead of being lost.
type PromptSigner struct {
	next ports.WalletSigner
	in   io.Reader
	out  io.Writer

	once  sync.Once
	lines chan promptAnswer

	// one prompt on screen at a time so each line answers exactly one request
	turn chan struct{}
}

// NewPromptSigner wraps next with an interactive confirmation
func NewPromptSigner(next ports.WalletSigner, in io.Reader, out io.Writer) *PromptSigner {
	return &PromptSigner{
		next:  next,
		in:    in,
		out:   out,
		lines: make(chan promptAnswer),
		turn:  make(chan struct{}, 1),
	}
}

type promptAnswer struct {
	line string
	err  error
}

// readLines feeds lines until the input fails; the terminal error is then
// delivered to every later request.
func (p *PromptSigner) readLines() {
	r := bufio.NewReader(p.in)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if line != "" {
				p.lines <- promptAnswer{line: line}
			}
			for {
				p.lines <- promptAnswer{err: err}
			}
		}
		p.lines <- promptAnswer{line: line}
	}
}

// SignMessage shows message and signs it only on an explicit yes
func (p *PromptSigner) SignMessage(ctx context.Context, address, message string) (string, error) {
	p.once.Do(func() { go p.readLines() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case p.turn <- struct{}{}:
	}
	defer func() { <-p.turn }()

	fmt.Fprintf(p.out, "Signature request for %s:\n  %s\nSign? [y/N] ", address, message)

	var a promptAnswer
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a = <-p.lines:
	}

	if a.err != nil {
		return "", fmt.Errorf("reading confirmation: %w", a.err)
	}
	switch strings.ToLower(strings.TrimSpace(a.line)) {
	case "y", "yes":
		return p.next.SignMessage(ctx, address, message)
	default:
		return "", core.ErrUserRejected
	}
}
