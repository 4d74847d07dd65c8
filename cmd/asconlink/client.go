package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lightpq/asconlink/pkg/echo"
)

func runClient(addr, profileName, cipher, message, logLevel, logFormat string) {
	_, logger, err := setupObservability(logLevel, logFormat, "none")
	if err != nil {
		fatal(err)
	}

	prof, err := selectProfile(profileName)
	if err != nil {
		fatal(err)
	}
	if err := applyCipher(prof, cipher); err != nil {
		fatal(err)
	}

	fmt.Printf("Connecting to %s (%s)...\n", addr, prof.KEMProfile)

	start := time.Now()
	client, err := echo.Dial(context.Background(), addr, echo.ClientConfig{
		Link:       prof.LinkConfig(),
		Logger:     logger,
		MaxMessage: prof.MaxMessage,
	})
	if err != nil {
		fatal(err)
	}
	defer client.Close()

	session := client.Session()
	fmt.Printf("Connected in %s (session %x..., %s)\n",
		time.Since(start).Round(time.Millisecond), session.ID[:4], session.CipherSuite)
	fmt.Print(client.Banner())

	if message == "-" {
		runInteractive(client)
		return
	}

	reply, err := client.Send(message)
	if err != nil {
		fatal(err)
	}
	fmt.Print(reply)

	goodbye, err := client.Quit()
	if err == nil {
		fmt.Print(goodbye)
	}
}

func runInteractive(client *echo.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == echo.QuitCommand {
			goodbye, err := client.Quit()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Quit error: %v\n", err)
				return
			}
			fmt.Print(goodbye)
			return
		}
		reply, err := client.Send(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Send error: %v\n", err)
			return
		}
		fmt.Print(reply)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
	}
}
