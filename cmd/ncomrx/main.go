package main

import (
	"flag"
	"log"
	"os"
)

func main() {
	var (
		mode       string
		configPath string
		inPath     string
		outPath    string
		trigPath   string
		logPath    string
		timezone   string
	)
	flag.StringVar(&mode, "mode", "live", "Operating mode: live, convert, summarize")
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config (live mode)")
	flag.StringVar(&inPath, "in", "", "Input NCom binary file (convert mode)")
	flag.StringVar(&outPath, "out", "", "CSV output for regular updates (convert mode)")
	flag.StringVar(&trigPath, "trig", "", "CSV output for falling-edge trigger updates (convert mode)")
	flag.StringVar(&logPath, "log", "", "Capture log to summarize (summarize mode)")
	flag.StringVar(&timezone, "tz", "", "IANA timezone for the civil-time column (default: local)")
	flag.Parse()

	switch mode {
	case "convert":
		if err := runConvert(inPath, outPath, trigPath, timezone, os.Stderr); err != nil {
			log.Fatalf("convert failed: %v", err)
		}
	case "summarize":
		if err := printStreamSummary(logPath); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
	case "live":
		if err := runLive(configPath); err != nil {
			log.Fatalf("live failed: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q (want live, convert, or summarize)", mode)
	}
}
