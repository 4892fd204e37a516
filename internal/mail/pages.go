// Package mail provides helpers on top of the mail client port.
package mail

import (
	"context"
	"iter"

	"github.com/cristianoliveira/mailnotify/internal/domain"
	"github.com/cristianoliveira/mailnotify/internal/ports"
)

// AllMessages lazily walks every page of a folder listing.
// Each call starts a fresh listing. Iteration stops at the first error,
// which is yielded with a zero Message.
func AllMessages(ctx context.Context, lister ports.MessageLister, folder domain.WatchedFolder) iter.Seq2[domain.Message, error] {
	return func(yield func(domain.Message, error) bool) {
		token := ""
		for {
			page, err := lister.ListMessages(ctx, folder, token)
			if err != nil {
				yield(domain.Message{}, err)
				return
			}
			for _, msg := range page.Messages {
				if !yield(msg, nil) {
					return
				}
			}
			if page.NextToken == "" {
				return
			}
			token = page.NextToken
		}
	}
}
