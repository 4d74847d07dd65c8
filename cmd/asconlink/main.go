package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	pkgversion "github.com/lightpq/asconlink/pkg/version"
)

// Build-time variables (set via -ldflags)
var (
	version   = ""        // Set via -ldflags "-X main.version=x.y.z"
	buildTime = "unknown" // Set via -ldflags "-X main.buildTime=..."
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "serve":
		serveCommand()
	case "client":
		clientCommand()
	case "selftest":
		selftestCommand()
	case "compat":
		compatCommand()
	case "bench":
		benchCommand()
	case "version":
		fmt.Printf("asconlink version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`asconlink - Post-Quantum Secure Link with Ascon Primitives

USAGE:
    asconlink <command> [options]

COMMANDS:
    serve     Run the encrypted echo server
    client    Connect to an echo server
    selftest  Run primitive and handshake self-tests
    compat    Print the constrained-profile compatibility report
    bench     Run performance benchmarks
    version   Print version information
    help      Show this help message

Run 'asconlink <command> --help' for more information on a command.

EXAMPLES:
    # Start echo server
    asconlink serve --addr :11444

    # Connect and send one message
    asconlink client --addr localhost:11444 --message "hello"

    # Interactive client
    asconlink client --addr localhost:11444 --message -

    # Constrained profile (ML-KEM-512, Ascon only, one session)
    asconlink serve --addr :11444 --profile constrained

    # Benchmarks
    asconlink bench --iterations 100 --echo-duration 5s

PROTOCOL:
    A-KEM: ML-KEM-512/768 bound through Ascon-Hash256 and Ascon-XOF128
    Record protection: Ascon-AEAD128 or ChaCha20-Poly1305`)
}

func serveCommand() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":11444", "Address to listen on")
	profileName := fs.String("profile", "default", "Runtime profile: default or constrained")
	cipher := fs.String("cipher", "", "Restrict to one cipher suite: ascon or chacha20. Empty uses the profile's suites")
	obsAddr := fs.String("obs-addr", "", "Observability server address (e.g. :9090). Empty disables")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	tracing := fs.String("tracing", "none", "Tracing mode: none, simple, otel (requires -tags otel)")

	fs.Usage = func() {
		fmt.Println(`USAGE: asconlink serve [options]

Run the encrypted echo server.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # Default profile with metrics endpoint
    asconlink serve --addr :11444 --obs-addr :9090

    # Constrained profile, one session, then exit
    asconlink serve --addr :11444 --profile constrained`)
	}

	_ = fs.Parse(os.Args[2:])

	runServe(*addr, *profileName, *cipher, *obsAddr, *logLevel, *logFormat, *tracing)
}

func clientCommand() {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	addr := fs.String("addr", "localhost:11444", "Server address")
	profileName := fs.String("profile", "default", "Runtime profile: default or constrained")
	cipher := fs.String("cipher", "", "Restrict to one cipher suite: ascon or chacha20. Empty uses the profile's suites")
	message := fs.String("message", "hello from asconlink", "Message to send ('-' for interactive mode)")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")

	fs.Usage = func() {
		fmt.Println(`USAGE: asconlink client [options]

Connect to an echo server, print the banner, and exchange messages.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # Single message
    asconlink client --addr localhost:11444 --message "are you there?"

    # Interactive session (Ctrl+D to exit)
    asconlink client --addr localhost:11444 --message -`)
	}

	_ = fs.Parse(os.Args[2:])

	runClient(*addr, *profileName, *cipher, *message, *logLevel, *logFormat)
}

func selftestCommand() {
	fs := flag.NewFlagSet("selftest", flag.ExitOnError)
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")

	fs.Usage = func() {
		fmt.Println(`USAGE: asconlink selftest [options]

Run the primitive, KEM, and handshake self-test sequences for every
supported parameter set.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	runSelftest(*logLevel, *logFormat)
}

func compatCommand() {
	fs := flag.NewFlagSet("compat", flag.ExitOnError)
	profileName := fs.String("profile", "constrained", "Runtime profile: default or constrained")

	fs.Usage = func() {
		fmt.Println(`USAGE: asconlink compat [options]

Print the compatibility report: platform info, build toggles, and
primitive smoke tests.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	runCompat(*profileName)
}

func benchCommand() {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	profileName := fs.String("profile", "default", "Runtime profile: default or constrained")
	iterations := fs.Int("iterations", 100, "Iterations per measured operation")
	echoDuration := fs.Duration("echo-duration", 2*time.Second, "Echo throughput run duration (0 skips)")
	chunkSize := fs.Int("chunk-size", 1024, "Echo payload size in bytes")

	fs.Usage = func() {
		fmt.Println(`USAGE: asconlink bench [options]

Measure KEM operation latency, handshake latency, Ascon-XOF vs
SHAKE-256 key derivation, and echo round-trip throughput.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # Quick run
    asconlink bench --iterations 50 --echo-duration 1s

    # Constrained profile, KEM and handshake only
    asconlink bench --profile constrained --echo-duration 0`)
	}

	_ = fs.Parse(os.Args[2:])

	runBench(*profileName, *iterations, *echoDuration, *chunkSize)
}
