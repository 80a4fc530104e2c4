package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"exifrec-go/internal/app"
	"exifrec-go/internal/diff"
	"exifrec-go/internal/media"
)

var errReviewAborted = errors.New("review aborted")

// prompter reads single-key answers. On a terminal the key is read in raw
// mode; otherwise one line is read per answer.
type prompter struct {
	in  *os.File
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	return &prompter{in: in, out: out, r: bufio.NewReader(in)}
}

func (p *prompter) ask(question string) (byte, error) {
	fmt.Fprint(p.out, question)
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return 0, err
		}
		defer term.Restore(fd, state)
		var b [1]byte
		if _, err := p.in.Read(b[:]); err != nil {
			return 0, err
		}
		fmt.Fprint(p.out, "\r\n")
		if b[0] == 3 { // ctrl-c
			return 'x', nil
		}
		return b[0], nil
	}

	line, err := p.r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return 0, err
		}
		return '\n', nil
	}
	return line[0], nil
}

func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func readNewPassphrase() (string, error) {
	first, err := readPassphrase("New passphrase for the backup key: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("passphrase must not be empty")
	}
	second, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passphrases do not match")
	}
	return first, nil
}

// runReview walks every open change set entry by entry and commits each set
// once all its entries are decided.
func runReview(ctx context.Context, a *app.ExifrecApp, p *prompter) error {
	sets, err := a.Pending(ctx)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Println("Nothing to review.")
		return nil
	}

	committed, acceptRest := 0, false
	for n, cs := range sets {
		fmt.Printf("\n[%d/%d] %s\n", n+1, len(sets), cs.Identity.Path)
		for i := range cs.Entries {
			e := &cs.Entries[i]
			if e.Decision != diff.Pending {
				continue
			}
			printEntry(e)
			if acceptRest {
				e.Decision = diff.Accepted
				continue
			}
			if err := decide(p, e, &acceptRest); err != nil {
				if errors.Is(err, errReviewAborted) {
					fmt.Printf("Committed %d change set(s) before aborting\n", committed)
				}
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.Commit(ctx, cs); err != nil {
			return err
		}
		committed++
	}
	fmt.Printf("\nCommitted %d change set(s)\n", committed)
	return nil
}

func decide(p *prompter, e *diff.Entry, acceptRest *bool) error {
	question := "Accept? [y]es [n]o [a]ccept all remaining e[x]it"
	if len(e.Alternatives) > 0 {
		question += fmt.Sprintf(" or pick 1-%d", min(len(e.Alternatives), 9))
	}
	question += ": "

	for {
		key, err := p.ask(question)
		if err != nil {
			return err
		}
		switch key {
		case 'y', 'Y':
			e.Decision = diff.Accepted
			return nil
		case 'n', 'N':
			e.Decision = diff.Rejected
			return nil
		case 'a', 'A':
			e.Decision = diff.Accepted
			*acceptRest = true
			return nil
		case 'x', 'X', 'q', 'Q':
			return errReviewAborted
		}
		if key >= '1' && key <= '9' {
			if i := int(key - '1'); i < len(e.Alternatives) {
				e.Override = e.Alternatives[i]
				e.Decision = diff.Accepted
				return nil
			}
		}
	}
}

func printEntry(e *diff.Entry) {
	old := "(none)"
	if e.Old != nil {
		old = e.Old.String()
	}
	next := "(lost)"
	if e.New != nil {
		next = e.New.String()
	}
	fmt.Printf("  %-16s %s -> %s  [%s", e.Field, old, next, e.Origin)
	if e.Strategy != "" {
		fmt.Printf(" %s, %s confidence", e.Strategy, e.Confidence)
	}
	fmt.Println("]")
	for _, ev := range e.Evidence {
		fmt.Printf("      %s\n", ev)
	}
	for i, alt := range e.Alternatives {
		fmt.Printf("      %d) %s\n", i+1, alt)
	}
	if e.NeedsReview {
		fmt.Println("      needs review")
	}
}

func fieldText[T media.Value](f media.FieldValue[T]) string {
	if v, ok := f.Parsed(); ok {
		return v.String()
	}
	if f.Present() {
		return fmt.Sprintf("%q (%s)", f.RawText, f.Validity)
	}
	return "-"
}
