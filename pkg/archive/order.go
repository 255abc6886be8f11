package archive

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rarstream/pkg/rarblock"
	"rarstream/pkg/rarerr"
	"rarstream/pkg/rarreader"
	"rarstream/pkg/rarvol"
)

// canonicalOrder establishes the volume order a Parse walks in: the
// volume whose ArchiveHeader sets IsFirstVolume becomes index 0; ties
// and the rest
// of the sequence follow the .rar/.r00/.r01 or .partNN.rar naming
// convention when names match that shape, falling back to the caller's
// original order, with a final lexicographic tie-break.
func canonicalOrder(sources []rarvol.Source) ([]rarvol.Source, error) {
	if len(sources) == 0 {
		return nil, rarerr.ErrNotRar
	}
	if len(sources) == 1 {
		return sources, nil
	}

	type tagged struct {
		src      rarvol.Source
		callerIx int
		isFirst  bool
		seq      int
		hasSeq   bool
	}

	ctx := context.Background()
	items := make([]tagged, len(sources))
	for i, src := range sources {
		items[i] = tagged{src: src, callerIx: i}
		items[i].isFirst = detectIsFirstVolume(ctx, src)
		if seq, ok := volumeSequence(src.Name()); ok {
			items[i].seq = seq
			items[i].hasSeq = true
		}
	}

	sort.SliceStable(items, func(a, b int) bool {
		ia, ib := items[a], items[b]
		if ia.isFirst != ib.isFirst {
			return ia.isFirst
		}
		if ia.hasSeq && ib.hasSeq && ia.seq != ib.seq {
			return ia.seq < ib.seq
		}
		if ia.hasSeq != ib.hasSeq {
			return ia.hasSeq
		}
		if ia.hasSeq && ib.hasSeq {
			return ia.src.Name() < ib.src.Name()
		}
		return ia.callerIx < ib.callerIx
	})

	ordered := make([]rarvol.Source, len(items))
	for i, it := range items {
		ordered[i] = it.src
	}
	return ordered, nil
}

// detectIsFirstVolume peeks src's ArchiveHeader block to check its
// IsFirstVolume flag. Any failure (not a RAR volume, truncated) is
// treated as "not flagged first" rather than an error here; Walk will
// surface the real failure later.
func detectIsFirstVolume(ctx context.Context, src rarvol.Source) bool {
	r, err := rarreader.New(src, rarreader.Options{})
	if err != nil {
		return false
	}
	markerBuf, err := r.Peek(ctx, 0, len(rarblock.MarkerRAR5))
	if err != nil {
		return false
	}
	n, err := rarblock.DetectMarker(markerBuf)
	if err != nil {
		return false
	}
	peek, err := r.Peek(ctx, int64(n), 64)
	if err != nil {
		return false
	}
	hdr, _, err := rarblock.ParseArchiveHeader(peek)
	if err != nil {
		return false
	}
	return hdr.IsFirstVolume
}

// sequenceRe matches both the legacy .rNN extension and the .partNN.
// scheme; whichever of the named "partnum" or "rnum" groups matched
// holds the volume's sequence number.
var sequenceRe = regexp.MustCompile(`(?i)(?:\.part(?P<partnum>\d+)\.rar|\.r(?P<rnum>\d+))$`)

// volumeSequence extracts a volume's position in its naming scheme:
// the first volume of a .rar/.r00/.r01 set sorts before .r00 using -1,
// and .partNN.rar sets sort directly on their number (1-based).
func volumeSequence(name string) (int, bool) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".rar") && !strings.Contains(lower, ".part") {
		return -1, true
	}
	m := sequenceRe.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	for i, g := range sequenceRe.SubexpNames() {
		if g == "partnum" && m[i] != "" {
			n, err := strconv.Atoi(m[i])
			return n, err == nil
		}
		if g == "rnum" && m[i] != "" {
			n, err := strconv.Atoi(m[i])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
