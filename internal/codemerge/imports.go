package codemerge

import (
	"fmt"
	"strconv"
	"strings"
)

// RewriteImports points imports of from, and of packages below it, at to.
// Imports already under to are left alone. It reports whether src changed.
func RewriteImports(path string, src []byte, from, to string) ([]byte, bool, error) {
	f := &goFile{path: path, src: src}
	if err := f.parse(); err != nil {
		return nil, false, fmt.Errorf("parsing %s: %w", path, err)
	}

	var edits []edit
	for _, spec := range f.file.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil || p == to || strings.HasPrefix(p, to+"/") {
			continue
		}

		var rewritten string
		switch {
		case p == from:
			rewritten = to
		case strings.HasPrefix(p, from+"/"):
			rewritten = to + strings.TrimPrefix(p, from)
		default:
			continue
		}

		start, end := f.offset(spec.Path.Pos()), f.offset(spec.Path.End())
		edits = append(edits, edit{off: start, del: end - start, text: strconv.Quote(rewritten)})
	}

	if len(edits) == 0 {
		return src, false, nil
	}
	if err := f.apply(edits...); err != nil {
		return nil, false, err
	}
	out, err := f.Bytes()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
