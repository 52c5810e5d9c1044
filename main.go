package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-authgate/codegrant/internal/bootstrap"
	"github.com/go-authgate/codegrant/internal/config"
	"github.com/go-authgate/codegrant/internal/token"
	"github.com/go-authgate/codegrant/internal/version"

	"pkt.systems/pslog"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	logger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("CODEGRANT_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "codegrant")

	// Handle subcommands
	switch args[0] {
	case "server":
		os.Exit(runServer(logger))
	case "genkey":
		os.Exit(runGenKey(args[1:], logger))
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("OAuth 2.0 Authorization Code Grant server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the OAuth server")
	fmt.Println("  genkey    Write a new RSA signing key pair")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer(logger pslog.Logger) int {
	cfg := config.Load()

	// Shutdown signals are handled by the graceful manager inside Run.
	if err := bootstrap.Run(context.Background(), cfg, logger); err != nil {
		logger.Error("server.start_failed", "error", err)
		return 1
	}
	return 0
}

func runGenKey(args []string, logger pslog.Logger) int {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	dir := fs.String("out", ".", "Directory for private.pem and public.pem")
	bits := fs.Int("bits", token.DefaultKeyBits, "RSA modulus size")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	priv, err := token.GenerateKeyPair(*bits)
	if err != nil {
		logger.Error("genkey.generate_failed", "error", err)
		return 1
	}
	privPEM, pubPEM, err := token.EncodeKeyPairPEM(priv)
	if err != nil {
		logger.Error("genkey.encode_failed", "error", err)
		return 1
	}

	privPath := filepath.Join(*dir, "private.pem")
	pubPath := filepath.Join(*dir, "public.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		logger.Error("genkey.write_failed", "path", privPath, "error", err)
		return 1
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		logger.Error("genkey.write_failed", "path", pubPath, "error", err)
		return 1
	}

	logger.Info("genkey.done",
		"private_key", privPath,
		"public_key", pubPath,
		"kid", token.KeyID(&priv.PublicKey),
	)
	return 0
}
