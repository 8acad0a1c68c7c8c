package challenge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Manual walks a human through solving the challenge in their own
// browser and pasting the resulting cookies back into the terminal.
type Manual struct {
	In  io.Reader
	Out io.Writer
}

func NewManual() Manual {
	return Manual{In: os.Stdin, Out: os.Stderr}
}

const manualInstructions = `
A verification challenge must be solved, please follow the instructions
below (only needs to be done once in a while):

1. On any PC, open the link in a web browser: %q
2. Solve and submit the challenge, you should be redirected to a results page
3. Open the console (press F12 -> Console) and paste the following code:

       console.log(document.cookie)

4. Copy the output. It will look something like: "tcc; gaDts48g=q8hppt; ..."
5. Paste the output in the terminal here

>>> `

func (m Manual) Resolve(ctx context.Context, challengeURL string) (map[string]string, error) {
	fmt.Fprintf(m.Out, manualInstructions, challengeURL)

	type answer struct {
		line string
		err  error
	}
	lines := make(chan answer, 1)
	go func() {
		reader := bufio.NewReader(m.In)
		line, err := reader.ReadString('\n')
		lines <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnresolved, ctx.Err())
	case a := <-lines:
		if a.err != nil && a.line == "" {
			return nil, fmt.Errorf("%w: failed to read cookie input: %v", ErrUnresolved, a.err)
		}
		raw := strings.Trim(strings.TrimSpace(a.line), `'"`)
		cookies := ParseCookieString(raw)
		if len(cookies) == 0 {
			return nil, fmt.Errorf("%w: no cookies in input", ErrUnresolved)
		}
		return cookies, nil
	}
}
