// Command keycheck reports whether the AI provider API keys are configured
// and look plausible, without printing them in full.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"outlay/internal/secrets"
)

func main() {
	showFull := flag.Bool("show-full", false, "print full keys (not recommended)")
	flag.Parse()

	_ = godotenv.Load()

	fmt.Println("AI key check")
	fmt.Println("-----------")
	reportKey("OPENAI_API_KEY", "openai", *showFull)
	reportKey("GEMINI_API_KEY", "gemini", *showFull)
}

func reportKey(envName, provider string, showFull bool) {
	raw := os.Getenv(envName)
	if raw == "" {
		fmt.Printf("%s: not set\n", envName)
		return
	}

	masked := secrets.Mask(raw)
	if showFull {
		masked = raw
	}

	if secrets.LooksValid(provider, raw) {
		fmt.Printf("%s: present (%s)\n", envName, masked)
	} else {
		fmt.Printf("%s: present but format looks unusual (%s)\n", envName, masked)
	}
}
