/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// hdx-beats analyzes audio files offline and writes one <name>.beats.json
// next to each input (or into -out).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"hdxloop/internal/analysis"
	"hdxloop/internal/codec"
)

func main() {
	workers := flag.Int("workers", runtime.NumCPU(), "parallel decoders")
	outDir := flag.String("out", "", "output folder (default: next to each input)")
	sep := flag.Duration("sep", 250*time.Millisecond, "minimum beat separation")
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		rl, err := readline.New("> ")
		if err != nil {
			fmt.Printf("[FAIL] %v\n", err)
			os.Exit(1)
		}
		folder := ask(rl, "Source folder", ".")
		rl.Close()
		inputs = []string{folder}
	}

	files := collect(inputs)
	if len(files) == 0 {
		fmt.Println("[FAIL] no audio files found")
		os.Exit(1)
	}
	if *workers < 1 {
		*workers = 1
	}

	an := analysis.NewDSPAnalyzer(*sep)
	prog := NewProgress(len(files))

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if _, err := analyzeFile(context.Background(), an, path, *outDir); err != nil {
					mu.Lock()
					failed = append(failed, fmt.Sprintf("%s: %v", path, err))
					mu.Unlock()
				}
				prog.Add(1)
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	prog.Wait()

	for _, f := range failed {
		fmt.Printf("[FAIL] %s\n", f)
	}
	fmt.Printf("[DONE] %d analyzed, %d failed\n", len(files)-len(failed), len(failed))
	if len(failed) > 0 {
		os.Exit(1)
	}
}

func ask(rl *readline.Instance, prompt, def string) string {
	rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, def))
	line, err := rl.Readline()
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// collect expands folders one level deep and keeps files with a known
// audio extension.
func collect(inputs []string) []string {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			fmt.Printf("[SKIP] %s: %v\n", in, err)
			continue
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		entries, err := os.ReadDir(in)
		if err != nil {
			fmt.Printf("[SKIP] %s: %v\n", in, err)
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if codec.Detect(e.Name(), nil) != "" {
				files = append(files, filepath.Join(in, e.Name()))
			}
		}
	}
	return files
}
