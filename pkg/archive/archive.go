// Package archive is the package façade: it drives one volume walker
// per volume, folds the results through rarbundle.Assemble, and
// exposes the resulting InnerFiles for range streaming.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"rarstream/pkg/rarblock"
	"rarstream/pkg/rarbundle"
	"rarstream/pkg/rarerr"
	"rarstream/pkg/rarreader"
	"rarstream/pkg/rarrange"
	"rarstream/pkg/rarvol"
	"rarstream/pkg/rarwalk"
)

// maxParallelWalks bounds how many volumes are walked concurrently.
// Volume walkers share no state, so this is purely a resource cap on
// simultaneous reads against the media adapters.
const maxParallelWalks = 8

// ParseOptions configures a Parse call.
type ParseOptions struct {
	// MaxFiles caps how many InnerFiles are returned; excess files
	// (by first-appearance order) are discarded after assembly. Zero
	// means unlimited.
	MaxFiles uint32

	// ReaderOptions is forwarded to each volume's rarreader.Reader.
	ReaderOptions rarreader.Options
}

// Callbacks receives the parse lifecycle events: ParsingStart
// precedes every FileParsed call, which all precede the single
// ParsingComplete call. A nil field is simply not invoked.
type Callbacks struct {
	ParsingStart    func()
	FileParsed      func(*File)
	ParsingComplete func([]*File)
}

// Rar5Parser is an optional plug-in a caller can supply to handle RAR5
// archives; this module's own pkg/rarblock only detects the RAR5
// marker and reports rarerr.ErrRar5Unsupported. No implementation
// ships here -- this is the extension point a caller who has one would
// wire in.
type Rar5Parser interface {
	Walk(ctx context.Context, volumeIndex int, src rarvol.Source) rarwalk.Result
}

// Package orchestrates parsing one (possibly multi-volume) RAR archive
// and serving its inner files as byte-range streams. It is the sole
// entry point a consumer of this module needs.
type Package struct {
	sources    []rarvol.Source
	rar5Parser Rar5Parser

	mu     sync.Mutex
	parsed bool
	files  []*File
	err    error
}

// Option configures a Package at construction.
type Option func(*Package)

// WithRar5Parser installs a Rar5Parser so volumes carrying the RAR5
// marker are walked instead of rejected with ErrRar5Unsupported.
func WithRar5Parser(p Rar5Parser) Option {
	return func(pkg *Package) { pkg.rar5Parser = p }
}

// New builds a Package over volumes, in the order supplied. Volume 0
// need not be the first archive volume; canonical ordering is
// established during Parse from the ArchiveHeader's IsFirstVolume flag
// and the volumes' names, not from this slice's order.
func New(volumes []rarvol.Source, opts ...Option) *Package {
	p := &Package{sources: volumes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse walks every volume, assembles the chunk graph, and returns the
// resulting InnerFiles. It is idempotent: a Package caches its first
// successful (or failed) result and returns it on every subsequent
// call without re-walking volumes or re-firing cb's events.
func (p *Package) Parse(ctx context.Context, opts ParseOptions, cb Callbacks) ([]*File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parsed {
		return p.files, p.err
	}

	if cb.ParsingStart != nil {
		cb.ParsingStart()
	}

	order, err := canonicalOrder(p.sources)
	if err != nil {
		p.parsed, p.err = true, err
		return nil, err
	}

	walks, err := p.walkAll(ctx, order, opts.ReaderOptions)
	if err != nil {
		p.parsed, p.err = true, err
		return nil, err
	}

	bundle, err := rarbundle.Assemble(walks)
	if err != nil {
		p.parsed, p.err = true, err
		return nil, err
	}

	sources := make(map[int]rarvol.Source, len(order))
	for i, src := range order {
		sources[i] = src
	}

	innerFiles := bundle.Files
	if opts.MaxFiles > 0 && uint32(len(innerFiles)) > opts.MaxFiles {
		innerFiles = innerFiles[:opts.MaxFiles]
	}

	files := make([]*File, 0, len(innerFiles))
	for _, inner := range innerFiles {
		f := &File{inner: inner, sources: sources}
		files = append(files, f)
		if cb.FileParsed != nil {
			cb.FileParsed(f)
		}
	}

	p.files = files
	p.parsed = true
	if cb.ParsingComplete != nil {
		cb.ParsingComplete(files)
	}
	return files, nil
}

// walkAll dispatches one walker per volume -- embarrassingly parallel,
// no shared state -- bounded by maxParallelWalks, preserving order in
// the returned slice regardless of completion order.
func (p *Package) walkAll(ctx context.Context, order []rarvol.Source, readerOpts rarreader.Options) ([]rarwalk.Result, error) {
	results := make([]rarwalk.Result, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelWalks)

	for i, src := range order {
		i, src := i, src
		g.Go(func() error {
			if p.rar5Parser != nil {
				if r := detectAndMaybeDelegate(gctx, i, src, p.rar5Parser); r != nil {
					results[i] = *r
					return nil
				}
			}
			results[i] = rarwalk.Walk(gctx, i, src, readerOpts)
			if errors.Is(results[i].Err, rarerr.ErrRar5Unsupported) || (i == 0 && errors.Is(results[i].Err, rarerr.ErrNotRar)) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// detectAndMaybeDelegate peeks volume src's marker; if it's a RAR5
// signature and a Rar5Parser was supplied, delegates the whole walk to
// it. Returns nil when the ordinary rarwalk path should run instead.
func detectAndMaybeDelegate(ctx context.Context, idx int, src rarvol.Source, parser Rar5Parser) *rarwalk.Result {
	r, err := rarreader.New(src, rarreader.Options{})
	if err != nil {
		return nil
	}
	buf, err := r.Peek(ctx, 0, len(rarblock.MarkerRAR5))
	if err != nil {
		return nil
	}
	if _, err := rarblock.DetectMarker(buf); errors.Is(err, rarerr.ErrRar5Unsupported) {
		res := parser.Walk(ctx, idx, src)
		return &res
	}
	return nil
}

// Probe peeks just first's headers to answer "does this look like a
// RAR archive, and how many files / how large is the biggest one" --
// without committing to a full, multi-volume Parse.
func Probe(ctx context.Context, first rarvol.Source) (ProbeResult, error) {
	res := rarwalk.Walk(ctx, 0, first, rarreader.Options{})
	if res.Err != nil && len(res.Blocks) == 0 {
		return ProbeResult{}, res.Err
	}

	var out ProbeResult
	for _, b := range res.Blocks {
		if b.Kind != rarblock.KindFileHeader {
			continue
		}
		out.FileCount++
		if int64(b.File.UnpackedSize) > out.LargestUnpackedSize {
			out.LargestUnpackedSize = int64(b.File.UnpackedSize)
			out.LargestFileName = b.File.Name
		}
		if b.File.ContinuesInNext {
			out.LikelyMultiVolume = true
		}
	}
	out.Truncated = res.Err != nil
	return out, nil
}

// ProbeResult summarizes a quick single-volume peek.
type ProbeResult struct {
	FileCount           int
	LargestFileName     string
	LargestUnpackedSize int64
	LikelyMultiVolume   bool
	Truncated           bool
}

// Nested opens the already-parsed inner file named name as the sole
// volume of a second Package, for the case where that inner file is
// itself a RAR archive the caller wants to recurse into. Only that one
// inner file becomes a volume: a nested archive split across several
// inner files is not gathered into one Package. The
// nested Package reads through the outer file's Stream,
// so it pays the outer archive's range-engine cost again for every byte
// the inner parse touches. Parse must already have succeeded on p.
func (p *Package) Nested(name string) (*Package, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.parsed {
		return nil, fmt.Errorf("archive: Nested called before Parse")
	}
	for _, f := range p.files {
		if f.Name() == name {
			return New([]rarvol.Source{&innerFileSource{file: f}}), nil
		}
	}
	return nil, fmt.Errorf("archive: no inner file named %q", name)
}

// innerFileSource adapts a File's logical byte range to the
// rarvol.Source contract, so a Package can be built over an inner
// file's own bytes without a second physical volume.
type innerFileSource struct {
	file *File
}

func (s *innerFileSource) Name() string  { return s.file.Name() }
func (s *innerFileSource) Length() int64 { return s.file.Length() }

func (s *innerFileSource) Read(ctx context.Context, start, end int64) ([]byte, error) {
	iv := rarrange.Interval{Start: start, End: end}
	rc, err := s.file.Stream(ctx, iv)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, end-start+1)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
