// Command rarstream is the example CLI/HTTP server: it opens the RAR
// volumes found in a directory, parses them with pkg/archive, and
// serves each inner file as an HTTP range-request endpoint plus a
// WebSocket feed of the parse lifecycle events and log lines.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"rarstream/pkg/archive"
	"rarstream/pkg/config"
	"rarstream/pkg/rangeserver"
	"rarstream/pkg/rarreader"
	"rarstream/pkg/rarvol"
	"rarstream/pkg/rlog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rlog.Init(cfg.LogLevel)
	rlog.Info("starting rarstream", "volumes_dir", cfg.VolumesDir, "bind_addr", cfg.BindAddr)

	volumes, err := openVolumes(cfg.VolumesDir)
	if err != nil {
		log.Fatalf("Failed to open RAR volumes in %s: %v", cfg.VolumesDir, err)
	}
	if len(volumes) == 0 {
		log.Fatalf("No .rar volumes found in %s", cfg.VolumesDir)
	}
	rlog.Info("volumes opened", "count", len(volumes))

	pkg := archive.New(volumes)
	srv := rangeserver.NewServer(cfg, pkg)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	parseOpts := archive.ParseOptions{
		MaxFiles: cfg.MaxInnerFiles,
		ReaderOptions: rarreader.Options{
			BufferSize:   cfg.BlockReaderBufferSize,
			CacheEntries: cfg.BlockReaderCacheEntries,
		},
	}
	if _, err := srv.Parse(context.Background(), parseOpts); err != nil {
		log.Fatalf("Failed to parse archive: %v", err)
	}

	rlog.Info("rarstream listening", "addr", cfg.BindAddr)
	if err := http.ListenAndServe(cfg.BindAddr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// openVolumes finds every first-level .rar-family file directly under
// dir and opens a rarvol.LocalFile source for each. It does not try to
// group or order them -- that's archive.Package.Parse's job -- it just
// needs one Source per physical volume.
func openVolumes(dir string) ([]rarvol.Source, error) {
	fs := afero.NewOsFs()
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var volumes []rarvol.Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !looksLikeRarVolume(e.Name()) {
			continue
		}
		src, err := rarvol.OpenLocalFile(fs, filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, src)
	}
	return volumes, nil
}

func looksLikeRarVolume(name string) bool {
	ext := filepath.Ext(name)
	if ext == ".rar" {
		return true
	}
	// .r00, .r01, ...
	if len(ext) == 4 && ext[1] == 'r' {
		for _, c := range ext[2:] {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	}
	return false
}
