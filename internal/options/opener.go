package options

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// Opener tells the user where to configure the engine. It is the daemon's stand-in for an
// options page.
type Opener struct {
	Out io.Writer
}

var _ ports.OptionsOpener = (*Opener)(nil)

// OpenOptions prints configuration guidance.
func (o *Opener) OpenOptions(ctx context.Context) error {
	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := fmt.Fprintln(out, "mailnotify is not configured yet: run `mailnotify options` to review the options, "+
		"then `mailnotify options set foldersToCheck '[{\"accountId\":\"...\",\"path\":\"/INBOX\"}]'` to pick folders.")
	return err
}
