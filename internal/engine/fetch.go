package engine

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/scoutboard/internal/freescout"
)

const (
	// recentLimit is how many of the newest active conversations are scanned
	// for arrivals. Bursts larger than this within one interval under-count.
	recentLimit = 50

	// countPageSize is the narrowest page that still reports totalElements.
	countPageSize = 1
)

// collectPages calls fetch for page 1, 2, ... until page >= totalPages.
// A missing or zero totalPages is treated as a single page.
func collectPages[T any](ctx context.Context, fetch func(ctx context.Context, page int) ([]T, freescout.PageInfo, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		items, info, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		totalPages := info.TotalPages
		if totalPages < 1 {
			totalPages = 1
		}
		if page >= totalPages {
			return all, nil
		}
	}
}

// ListMailboxes returns every mailbox visible to the API key, across all pages.
func ListMailboxes(ctx context.Context, api API) ([]freescout.Mailbox, error) {
	return collectPages(ctx, func(ctx context.Context, page int) ([]freescout.Mailbox, freescout.PageInfo, error) {
		p, err := api.Mailboxes(ctx, page)
		return p.Embedded.Mailboxes, p.Page, err
	})
}

// resolveMailboxes returns the filter, or every mailbox id when the filter is
// empty. An API error listing mailboxes is soft: it yields no mailboxes so
// the count queries still produce a snapshot. Transport failures are hard.
func (e *Engine) resolveMailboxes(ctx context.Context, filter []int) ([]int, error) {
	if len(filter) > 0 {
		return filter, nil
	}

	mailboxes, err := ListMailboxes(ctx, e.api)
	if err != nil {
		var apiErr *freescout.APIError
		if errors.As(err, &apiErr) {
			e.logger.Warn("could not list mailboxes, folder counts will be empty",
				"status", apiErr.StatusCode,
				"error", apiErr.Message,
			)
			return nil, nil
		}
		return nil, err
	}

	ids := make([]int, 0, len(mailboxes))
	for _, mb := range mailboxes {
		ids = append(ids, mb.ID)
	}
	return ids, nil
}

// folderFetch is the outcome of enumerating one mailbox's folders.
// Err is a soft failure: the mailbox contributes no folders.
type folderFetch struct {
	MailboxID int
	Folders   []freescout.Folder
	Err       error
}

// fetchFolders enumerates every page of every mailbox's folders concurrently.
// Per-mailbox failures are logged and isolated; only cancellation of ctx and
// a hard mailbox-list failure are returned as errors.
func (e *Engine) fetchFolders(ctx context.Context, filter []int) ([]folderFetch, error) {
	mailboxIDs, err := e.resolveMailboxes(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]folderFetch, len(mailboxIDs))
	sem := make(chan struct{}, e.maxConcurrency)

	var wg sync.WaitGroup
	for i, id := range mailboxIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = folderFetch{MailboxID: id, Err: ctx.Err()}
				return
			}
			results[i] = e.fetchMailboxFolders(ctx, id)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("could not fetch folders for mailbox",
				"mailbox_id", r.MailboxID,
				"error", r.Err.Error(),
			)
		}
	}
	return results, nil
}

// fetchMailboxFolders returns all folders of one mailbox, or a soft failure.
// Pages fetched before a failure are discarded.
func (e *Engine) fetchMailboxFolders(ctx context.Context, mailboxID int) folderFetch {
	folders, err := collectPages(ctx, func(ctx context.Context, page int) ([]freescout.Folder, freescout.PageInfo, error) {
		p, err := e.api.Folders(ctx, mailboxID, page)
		return p.Embedded.Folders, p.Page, err
	})
	if err != nil {
		return folderFetch{MailboxID: mailboxID, Err: err}
	}
	return folderFetch{MailboxID: mailboxID, Folders: folders}
}

// count returns the totalElements for q, summed across the filter's mailboxes
// when a filter is set. Any failure is hard.
func (e *Engine) count(ctx context.Context, filter []int, q freescout.ConversationQuery) (int, error) {
	q.PerPage = countPageSize
	q.Page = 1

	if len(filter) == 0 {
		p, err := e.api.Conversations(ctx, q)
		if err != nil {
			return 0, err
		}
		return p.Page.TotalElements, nil
	}

	totals := make([]int, len(filter))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, id := range filter {
		g.Go(func() error {
			mq := q
			mq.MailboxID = id
			p, err := e.api.Conversations(gctx, mq)
			if err != nil {
				return err
			}
			totals[i] = p.Page.TotalElements
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sum := 0
	for _, n := range totals {
		sum += n
	}
	return sum, nil
}

// fetchRecent returns the newest active conversations, merged across the
// filter's mailboxes and de-duplicated by id. Merge order follows the filter,
// not completion order, so the result is deterministic.
func (e *Engine) fetchRecent(ctx context.Context, filter []int) ([]freescout.Conversation, error) {
	q := freescout.ConversationQuery{
		Status:  freescout.StatusActive,
		PerPage: recentLimit,
		Page:    1,
	}

	if len(filter) == 0 {
		p, err := e.api.Conversations(ctx, q)
		if err != nil {
			return nil, err
		}
		return mergeConversations([][]freescout.Conversation{p.Embedded.Conversations}), nil
	}

	perMailbox := make([][]freescout.Conversation, len(filter))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for i, id := range filter {
		g.Go(func() error {
			mq := q
			mq.MailboxID = id
			p, err := e.api.Conversations(gctx, mq)
			if err != nil {
				return err
			}
			perMailbox[i] = p.Embedded.Conversations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeConversations(perMailbox), nil
}

// mergeConversations flattens per-mailbox lists, keeping the first
// occurrence of each id.
func mergeConversations(lists [][]freescout.Conversation) []freescout.Conversation {
	seen := make(map[int]struct{})
	var merged []freescout.Conversation
	for _, list := range lists {
		for _, c := range list {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

// skippedMailboxes lists the mailboxes whose folder fetch failed.
func skippedMailboxes(results []folderFetch) []int {
	var skipped []int
	for _, r := range results {
		if r.Err != nil {
			skipped = append(skipped, r.MailboxID)
		}
	}
	return skipped
}
