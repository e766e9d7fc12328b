/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"hdxloop/internal/config"
	"hdxloop/pkg/spec"
)

const app_name = "HDX-Loop-Client"

var completer = readline.NewPrefixCompleter(
	readline.PcItem("ABOUT"),
	readline.PcItem("PING"),
	readline.PcItem("WHOAMI"),
	readline.PcItem("STATUS"),
	readline.PcItem("TRACKS"),
	readline.PcItem("CLIP"),
	readline.PcItem("AUDIO-DATA"),
	readline.PcItem("BEATS"),
	readline.PcItem("TRANSITIONS"),
	readline.PcItem("PLAY"),
	readline.PcItem("PAUSE"),
	readline.PcItem("TOGGLE"),
	readline.PcItem("ADD-TRACK"),
	readline.PcItem("OPEN"),
	readline.PcItem("SEEK"),
	readline.PcItem("VOLUME"),
	readline.PcItem("LOOP"),
	readline.PcItem("LOOP-FRAMES"),
	readline.PcItem("CLEAR-LOOP"),
	readline.PcItem("REFRESH"),
	readline.PcItem("RELEASE"),
	readline.PcItem("QUIT"),
)

func main() {
	socket := config.Load().SocketPath
	if len(os.Args) > 1 {
		socket = os.Args[1]
	}

	fmt.Printf("\n%s V.%d.%d\n", app_name, spec.VersionMajor, spec.VersionMinor)

	conn, err := net.Dial("unix", socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FAIL] connect %s: %v\n", socket, err)
		os.Exit(1)
	}
	defer conn.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hdx> ",
		AutoComplete:    completer,
		HistoryFile:     filepath.Join(os.TempDir(), ".hdx-loop-history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "QUIT",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FAIL] readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("CONNECTED", socket)
	fmt.Println(`Type an IPC command, "QUIT" to exit`)
	fmt.Println()

	// ============================
	// IPC → STDOUT
	// ============================
	go func() {
		sc := bufio.NewScanner(conn)
		sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for sc.Scan() {
			fmt.Fprintln(rl.Stdout(), "RECV:", sc.Text())
		}
		fmt.Fprintln(rl.Stdout(), "SOCKET CLOSED")
		rl.Close()
	}()

	// ============================
	// STDIN → IPC
	// ============================
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) || err != nil {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") {
			fmt.Println("Bye.")
			return
		}

		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			fmt.Println("WRITE ERROR:", err)
			return
		}
	}
}
