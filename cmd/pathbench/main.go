// Command pathbench generates noise-scattered grids and times BFS
// pathfinding between opposite corners.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/mini-town/internal/world"
)

func main() {
	width := flag.Int("width", 120, "grid width")
	height := flag.Int("height", 80, "grid height")
	density := flag.Float64("density", 0.62, "noise threshold above which cells are blocked")
	seed := flag.Int64("seed", 1, "first seed")
	grids := flag.Int("grids", 10, "number of grids to generate")
	runs := flag.Int("runs", 20, "searches per grid")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var (
		searches, found int
		total           time.Duration
		cells           int
	)
	for i := 0; i < *grids; i++ {
		g, err := world.Generate(world.GenConfig{
			Width:   *width,
			Height:  *height,
			Seed:    *seed + int64(i),
			Density: *density,
		})
		if err != nil {
			slog.Error("generate failed", "error", err)
			os.Exit(1)
		}
		start, target := world.Pt(0, 0), world.Pt(g.Width-1, g.Height-1)
		reach := world.Reachable(g, start)

		var length int
		began := time.Now()
		for r := 0; r < *runs; r++ {
			path, ok := world.FindPath(start, target, g, nil)
			if ok {
				found++
				length = len(path)
			}
			searches++
		}
		elapsed := time.Since(began)
		total += elapsed
		cells += g.WalkableCount()

		slog.Info("grid",
			"seed", *seed+int64(i),
			"walkable", humanize.Comma(int64(g.WalkableCount())),
			"reachable", humanize.Comma(int64(reach)),
			"path_len", length,
			"per_search", elapsed/time.Duration(*runs),
		)
	}

	if searches == 0 {
		fmt.Println("nothing to do")
		return
	}
	fmt.Printf("%s searches over %d grids (%s walkable cells), %s found a path\n",
		humanize.Comma(int64(searches)), *grids, humanize.Comma(int64(cells)), humanize.Comma(int64(found)))
	fmt.Printf("mean %s per search\n", total/time.Duration(searches))
}
