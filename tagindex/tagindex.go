// Package tagindex keeps a reverse mapping from a tag to the keys written under
// it, on top of a store that has no notion of groups.
//
// Each tag owns one store-resident list at Prefix + "tag_" + md5(tag). Members
// are appended on write and the whole list is read back on clear. The index is
// best-effort bookkeeping: the existence probe before a tagged write and the
// append after it are separate commands, so concurrent writers may record a key
// twice. Duplicates are harmless because deletes are idempotent.
package tagindex

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/clustercache/internal/util"
	pr "github.com/unkn0wn-root/clustercache/provider"
)

var ErrNilProvider = errors.New("tagindex: nil provider")

type Index struct {
	p      pr.Provider
	prefix string
}

func New(p pr.Provider, prefix string) (*Index, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	return &Index{p: p, prefix: prefix}, nil
}

// RecordKey returns the storage key of tag's member list.
func (ix *Index) RecordKey(tag string) string { return util.TagRecordKey(ix.prefix, tag) }

// Begin probes storageKey right before a tagged write.
// first is true when the key does not exist yet, i.e. the write will create it
// and must be recorded.
func (ix *Index) Begin(ctx context.Context, storageKey string) (first bool, err error) {
	exists, err := ix.p.Exists(ctx, storageKey)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Record appends storageKey to tag's member list. Uniqueness is not enforced.
func (ix *Index) Record(ctx context.Context, tag, storageKey string) error {
	return ix.p.Append(ctx, ix.RecordKey(tag), storageKey)
}

// Attach records keys that already exist (or are written elsewhere) under tag.
func (ix *Index) Attach(ctx context.Context, tag string, storageKeys ...string) error {
	rk := ix.RecordKey(tag)
	for _, k := range storageKeys {
		if err := ix.p.Append(ctx, rk, k); err != nil {
			return err
		}
	}
	return nil
}

// Members returns the recorded keys of tag in write order; empty when absent.
// Members may no longer exist in the store.
func (ix *Index) Members(ctx context.Context, tag string) ([]string, error) {
	keys, err := ix.p.Range(ctx, ix.RecordKey(tag))
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Clear deletes every member of tag and then the tag record itself.
// Member deletes are independent: one failure does not stop the others.
// If any member delete fails the record is kept, so a later Clear can retry,
// and a *TagClearError is returned. deleted counts keys that actually existed.
func (ix *Index) Clear(ctx context.Context, tag string) (deleted int, err error) {
	keys, err := ix.Members(ctx, tag)
	if err != nil {
		return 0, &TagClearError{Tag: tag, ListErr: err}
	}

	var failed map[string]error
	for _, k := range keys {
		n, err := ix.p.Del(ctx, k)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[k] = err
			continue
		}
		deleted += int(n)
	}
	if len(failed) > 0 {
		return deleted, &TagClearError{Tag: tag, Failed: failed}
	}

	if _, err := ix.p.Del(ctx, ix.RecordKey(tag)); err != nil {
		return deleted, &TagClearError{Tag: tag, RecordErr: err}
	}
	return deleted, nil
}
