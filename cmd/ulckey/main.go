package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/mzyy94/ulcscan/internal/keyspace"
	"github.com/mzyy94/ulcscan/internal/scan"
	"github.com/mzyy94/ulcscan/internal/transport"
)

func main() {
	portFlag := flag.String("port", "", "serial port of the reader (empty: pick interactively)")
	currentFlag := flag.String("current", "", "current card key as 32 hex digits (default: factory key)")
	newFlag := flag.String("new", "", "new card key as 32 hex digits (default: random)")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	current := keyspace.DefaultManufacturerKey
	if *currentFlag != "" {
		k, err := keyspace.ParseKey(*currentFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -current key: %v\n", err)
			os.Exit(1)
		}
		current = k
	}

	var next keyspace.Key
	if *newFlag != "" {
		k, err := keyspace.ParseKey(*newFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -new key: %v\n", err)
			os.Exit(1)
		}
		next = k
	} else {
		k, err := keyspace.RandomKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "random key generation failed: %v\n", err)
			os.Exit(1)
		}
		next = k
	}

	port := *portFlag
	if port == "" {
		ports, err := transport.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "serial port listing failed: %v\n", err)
			os.Exit(1)
		}
		if len(ports) == 0 {
			fmt.Fprintln(os.Stderr, "no serial ports found")
			os.Exit(1)
		}
		idx := selectMenu("Select reader port:", ports)
		if idx < 0 {
			os.Exit(1)
		}
		port = ports[idx]
	}

	fmt.Printf("Reader port: %s\n", port)
	fmt.Printf("Current key: %s\n", current)
	fmt.Printf("New key:     %s\n", next)
	fmt.Println()

	if !*yes && !confirm("Write the new key to the card?") {
		fmt.Println("Cancelled.")
		return
	}

	sess, err := transport.Open(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reader connection failed: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	if err := sess.Probe(); err != nil {
		fmt.Fprintf(os.Stderr, "reader probe failed: %v\n", err)
		sess.Close()
		os.Exit(1)
	}
	if uid, err := sess.CardUID(); err == nil {
		fmt.Printf("Card UID:    % X\n", uid)
	}

	fmt.Println("Writing key...")
	if err := scan.WriteKey(sess, current, next); err != nil {
		fmt.Fprintf(os.Stderr, "key write failed: %v\n", err)
		sess.Close()
		os.Exit(1)
	}

	fmt.Println("Verifying...")
	if err := scan.VerifyKey(sess, next); err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		fmt.Fprintln(os.Stderr, "the card may hold a partially written key")
		sess.Close()
		os.Exit(1)
	}

	fmt.Printf("\nSUCCESS: card key is now %s\n", next)
	fmt.Println("Keep a copy; recovering it from the card means scanning for it.")
}

// confirm asks a yes/no question on the terminal.
func confirm(prompt string) bool {
	fmt.Printf("%s (y/n): ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// selectMenu renders an arrow-key menu on the raw terminal and returns
// the chosen index, or -1 when selection fails.
func selectMenu(prompt string, items []string) int {
	if len(items) == 0 {
		return -1
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting raw mode: %v\r\n", err)
		return -1
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	selected := 0

	fmt.Printf("%s\r\n", prompt)
	for i, item := range items {
		if i == selected {
			fmt.Printf("> %s\r\n", item)
		} else {
			fmt.Printf("  %s\r\n", item)
		}
	}

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			break
		}

		if n == 1 {
			switch buf[0] {
			case 0x0D, 0x0A: // Enter
				fmt.Printf("\r\n")
				return selected
			case 0x03: // Ctrl-C
				term.Restore(int(os.Stdin.Fd()), oldState)
				fmt.Printf("\r\n")
				os.Exit(0)
			}
		} else if n == 3 && buf[0] == 0x1B && buf[1] == '[' {
			needRedraw := false
			switch buf[2] {
			case 'A': // Up arrow
				if selected > 0 {
					selected--
					needRedraw = true
				}
			case 'B': // Down arrow
				if selected < len(items)-1 {
					selected++
					needRedraw = true
				}
			}

			if needRedraw {
				// Move the cursor back to the top of the menu and
				// repaint every line.
				fmt.Printf("\033[%dA", len(items))
				for i, item := range items {
					fmt.Print("\033[2K\r")
					if i == selected {
						fmt.Printf("> %s\r\n", item)
					} else {
						fmt.Printf("  %s\r\n", item)
					}
				}
			}
		}
	}

	return selected
}
