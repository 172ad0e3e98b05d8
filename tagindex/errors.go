package tagindex

import (
	"fmt"
	"sort"
)

// TagClearError reports a partially applied Clear. The tag record survives
// whenever ListErr or Failed is set; a RecordErr alone means every member is
// gone but the (now stale) record could not be removed.
type TagClearError struct {
	Tag       string
	ListErr   error
	Failed    map[string]error // storage key -> delete error
	RecordErr error
}

func (e *TagClearError) Error() string {
	switch {
	case e.ListErr != nil:
		return fmt.Sprintf("clear tag %q: list members: %v", e.Tag, e.ListErr)
	case len(e.Failed) > 0:
		return fmt.Sprintf("clear tag %q: %d member delete(s) failed, first: %v",
			e.Tag, len(e.Failed), e.Failed[e.FailedKeys()[0]])
	case e.RecordErr != nil:
		return fmt.Sprintf("clear tag %q: delete record: %v", e.Tag, e.RecordErr)
	default:
		return fmt.Sprintf("clear tag %q: unknown error", e.Tag)
	}
}

// FailedKeys returns the storage keys whose delete failed, sorted.
func (e *TagClearError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *TagClearError) Unwrap() []error {
	errs := make([]error, 0, 2+len(e.Failed))
	if e.ListErr != nil {
		errs = append(errs, e.ListErr)
	}
	for _, k := range e.FailedKeys() {
		errs = append(errs, e.Failed[k])
	}
	if e.RecordErr != nil {
		errs = append(errs, e.RecordErr)
	}
	return errs
}
