// admin queries a world's sqlite event index offline.
//
// Usage:
//
//	admin -db data/worlds/valley_1/index.db summary
//	admin -db data/worlds/valley_1/index.db builds -n 20
//	admin -db data/worlds/valley_1/index.db failures -chunk 12
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"longwater/internal/persistence/indexdb"
)

func main() {
	dbPath := flag.String("db", "./data/worlds/valley_1/index.db", "path to index.db")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "summary"
	}

	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		os.Exit(1)
	}
	defer idx.Close()

	rest := flag.Args()
	if len(rest) > 0 {
		rest = rest[1:]
	}

	switch cmd {
	case "summary":
		sum, err := idx.Summarize()
		if err != nil {
			fatal("summarize:", err)
		}
		fmt.Printf("builds=%d evictions=%d failures=%d placements=%d avg_build_ms=%.2f\n",
			sum.Builds, sum.Evictions, sum.Failures, sum.Placements, sum.AvgBuildMs)

	case "builds":
		fs := flag.NewFlagSet("builds", flag.ExitOnError)
		n := fs.Int("n", 20, "rows to show")
		_ = fs.Parse(rest)
		rows, err := idx.RecentBuilds(*n)
		if err != nil {
			fatal("recent builds:", err)
		}
		for _, r := range rows {
			fmt.Printf("tick=%d chunk=%d span=[%.0f,%.0f) biomes=%s placements=%d spawned=%d build=%.2fms/%dsteps digest=%s\n",
				r.Tick, r.ChunkIndex, r.ZMin, r.ZMax, strings.Join(r.Biomes, ","),
				r.Placements, r.Spawned, r.BuildMs, r.BuildSteps, shortDigest(r.Digest))
		}

	case "failures":
		fs := flag.NewFlagSet("failures", flag.ExitOnError)
		chunk := fs.Int("chunk", 0, "chunk index")
		_ = fs.Parse(rest)
		errsFor, err := idx.FailuresFor(*chunk)
		if err != nil {
			fatal("failures:", err)
		}
		if len(errsFor) == 0 {
			fmt.Printf("no recorded failures for chunk %d\n", *chunk)
			return
		}
		for _, e := range errsFor {
			fmt.Printf("chunk=%d err=%s\n", *chunk, e)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want summary, builds, or failures)\n", cmd)
		os.Exit(2)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func fatal(msg string, err error) {
	fmt.Fprintln(os.Stderr, msg, err)
	os.Exit(1)
}
