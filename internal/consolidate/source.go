package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/elvin-stowell/csds-312-final-project/internal/manifest"
	"github.com/elvin-stowell/csds-312-final-project/internal/saver"
)

// Artifact is one batch's pair of table files. An empty path means the
// batch has no file of that kind.
type Artifact struct {
	BatchID          int
	PricePath        string
	FundamentalsPath string
}

// ArtifactSource discovers batch artifacts for ids in [from, to], ascending.
// LastID reports the highest batch id it knows of, 0 when there is none.
type ArtifactSource interface {
	Artifacts(ctx context.Context, from, to int) ([]Artifact, error)
	LastID(ctx context.Context) (int, error)
}

// DirSource checks the output directory for every id in the range.
type DirSource struct {
	Dir string
	Ext string
}

func (s DirSource) Artifacts(ctx context.Context, from, to int) ([]Artifact, error) {
	var out []Artifact
	for id := from; id <= to; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a, ok := s.find(id); ok {
			out = append(out, a)
		} else {
			slog.Debug("no artifacts for batch", "batch", id)
		}
	}
	return out, nil
}

func (s DirSource) find(id int) (Artifact, bool) {
	a := Artifact{BatchID: id}
	if p := filepath.Join(s.Dir, saver.PriceArtifactName(id, s.Ext)); exists(p) {
		a.PricePath = p
	}
	if p := filepath.Join(s.Dir, saver.FundamentalsArtifactName(id, s.Ext)); exists(p) {
		a.FundamentalsPath = p
	}
	return a, a.PricePath != "" || a.FundamentalsPath != ""
}

func (s DirSource) LastID(_ context.Context) (int, error) {
	last := 0
	for _, prefix := range []string{"price_batch_", "fundamentals_batch_"} {
		matches, err := filepath.Glob(filepath.Join(s.Dir, prefix+"*."+s.Ext))
		if err != nil {
			return 0, fmt.Errorf("glob artifacts: %w", err)
		}
		for _, m := range matches {
			n := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), "."+s.Ext)
			if id, err := strconv.Atoi(n); err == nil && id > last {
				last = id
			}
		}
	}
	return last, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// BatchLister is the part of the manifest a ManifestSource reads.
type BatchLister interface {
	Batches(ctx context.Context, from, to int) ([]manifest.BatchRecord, error)
	LastBatchID(ctx context.Context) (int, error)
}

// ManifestSource lists the batches recorded as complete. Batches recorded in
// another format are skipped. When Dir is set, ids without a manifest row
// are looked up in Dir, so artifacts whose recording failed still count.
type ManifestSource struct {
	Manifest BatchLister
	Ext      string
	Dir      string
}

func (s ManifestSource) Artifacts(ctx context.Context, from, to int) ([]Artifact, error) {
	recs, err := s.Manifest.Batches(ctx, from, to)
	if err != nil {
		return nil, err
	}
	recorded := make(map[int]manifest.BatchRecord, len(recs))
	for _, r := range recs {
		recorded[r.ID] = r
	}

	dir := DirSource{Dir: s.Dir, Ext: s.Ext}
	var out []Artifact
	for id := from; id <= to; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok := recorded[id]
		if !ok {
			if s.Dir == "" {
				continue
			}
			if a, found := dir.find(id); found {
				slog.Warn("batch artifacts not in manifest, using files", "batch", id)
				out = append(out, a)
			}
			continue
		}
		if r.Format != s.Ext {
			slog.Warn("batch recorded in another format, skipping", "batch", r.ID, "format", r.Format, "want", s.Ext)
			continue
		}
		out = append(out, Artifact{BatchID: r.ID, PricePath: r.PricePath, FundamentalsPath: r.FundamentalsPath})
	}
	return out, nil
}

func (s ManifestSource) LastID(ctx context.Context) (int, error) {
	last, err := s.Manifest.LastBatchID(ctx)
	if err != nil {
		return 0, err
	}
	if s.Dir == "" {
		return last, nil
	}
	onDisk, err := DirSource{Dir: s.Dir, Ext: s.Ext}.LastID(ctx)
	if err != nil {
		return 0, err
	}
	return max(last, onDisk), nil
}
