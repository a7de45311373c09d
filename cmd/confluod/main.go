package main

import (
	"fmt"
	"log"
	"os"

	"net/http"
	_ "net/http/pprof"

	"github.com/spf13/pflag"

	"github.com/awesome-nfv/confluo"
)

func main() {
	// Start pprof server
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()

	pflag.Bool("token", false, "Print a fresh API token for the configured auth secret and exit")

	if err := LoadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if pflag.Lookup("token").Value.String() == "true" {
		secret := confluo.GlobalConfig().AuthSecret
		if secret == "" {
			fmt.Fprintln(os.Stderr, "No auth secret configured")
			os.Exit(1)
		}
		token, err := confluo.GenerateToken("cli", []byte(secret))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := confluo.RunServer(); err != nil {
		log.Fatal(err)
	}
}
