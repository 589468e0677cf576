package codemerge

import (
	"context"
	"fmt"

	"github.com/flarum/flarum-cli-sub000/internal/langsub"
)

// OpExtenderAdd is the subsystem operation inserting one extender.
const OpExtenderAdd = "extender.add"

// ProcessMerger delegates merging to the external language subsystem, one
// request per extender, feeding each answer into the next request.
type ProcessMerger struct {
	Caller langsub.Caller
}

// NewProcessMerger creates a merger backed by caller.
func NewProcessMerger(caller langsub.Caller) *ProcessMerger {
	return &ProcessMerger{Caller: caller}
}

// AddExtenders implements Merger.
func (m *ProcessMerger) AddExtenders(ctx context.Context, path string, src []byte, defs ...ExtenderDef) ([]byte, error) {
	code := string(src)
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		resp, err := m.Caller.Call(ctx, langsub.NewRequest(OpExtenderAdd, map[string]any{
			"file":   path,
			"code":   code,
			"params": def,
		}))
		if err != nil {
			return nil, fmt.Errorf("adding %s to %s: %w", def.Target, path, err)
		}
		code = resp.Code
	}
	return []byte(code), nil
}
