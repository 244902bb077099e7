package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"chess-ai/engine"
	"chess-ai/position"
)

func main() {
	depthFlag := flag.Int("depth", 5, "search depth in plies")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run")
	fenFlag := flag.String("fen", position.StartFEN, "FEN to search")
	fresh := flag.Bool("fresh", true, "reset the engine between searches")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	if *depthFlag <= 0 || *depthFlag > engine.MaxPly {
		log.Fatalf("depth must be within 1..%d, got %d", engine.MaxPly, *depthFlag)
	}
	pos, err := position.Parse(*fenFlag)
	if err != nil {
		log.Fatalf("parse FEN: %v", err)
	}

	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}()
	}

	eng := engine.New(engine.DefaultOptions())
	limits := engine.Limits{MaxDepth: *depthFlag, FixedDepth: true}
	fmt.Printf("searchbench: fen=%q depth=%d repeat=%d\n", *fenFlag, *depthFlag, *repeatFlag)

	var totalNodes uint64
	startAll := time.Now()
	for i := 0; i < *repeatFlag; i++ {
		if *fresh {
			eng.NewGame()
		}
		res := eng.Search(context.Background(), pos.Clone(), limits)
		totalNodes += res.Stats.Nodes + res.Stats.QuiescenceNodes
		fmt.Printf("iteration %d: bestmove %s depth=%d score=%d nodes=%d qnodes=%d tt_hits=%d time=%v\n",
			i+1, res.Move, res.DepthReached, res.Score, res.Stats.Nodes, res.Stats.QuiescenceNodes, res.Stats.TTHits, res.Elapsed)
	}
	totalElapsed := time.Since(startAll)
	fmt.Printf("total time: %v  nps: %.0f\n", totalElapsed, float64(totalNodes)/totalElapsed.Seconds())

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
	}
}
